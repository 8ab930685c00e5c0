// Package xretry 提供基于 [avast/retry-go/v5] 的有限次重试。
//
// 调用方用 [Policy] 描述预算（尝试次数与退避），用 [Permanent] 标记不应重试的错误：
//
//	err := xretry.Do(ctx, xretry.Policy{
//		Attempts: 3,
//		Backoff:  xretry.NewExponentialBackoff(xretry.WithInitialDelay(20 * time.Millisecond)),
//	}, func(ctx context.Context) error {
//		if err := load(); err != nil {
//			if isBadInput(err) {
//				return xretry.Permanent(err)
//			}
//			return err
//		}
//		return nil
//	})
//
// 返回的错误只包含最后一次失败，可用 errors.Is 判断原始错误。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
