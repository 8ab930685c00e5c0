package xretry

import (
	"context"
	"math"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// Policy 描述一次 [Do] 的重试预算。零值只尝试一次。
type Policy struct {
	// Attempts 最大尝试次数（含首次），小于 1 视为 1。
	Attempts int
	// Backoff 两次尝试之间的等待，nil 表示不等待。
	Backoff *ExponentialBackoff
	// OnRetry 每次失败且将要重试时调用，attempt 从 1 开始。
	OnRetry func(attempt int, err error)
}

// Do 执行 fn 直到成功、预算耗尽、遇到 [Permanent] 错误或 ctx 取消。
// 返回最后一次失败的错误。
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return retry.New(p.options(ctx)...).Do(func() error {
		return fn(ctx)
	})
}

func (p Policy) options(ctx context.Context) []retry.Option {
	backoff := p.Backoff
	opts := make([]retry.Option, 0, 6)
	opts = append(opts,
		retry.Context(ctx),
		retry.Attempts(uint(max(p.Attempts, 1))),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && ctx.Err() == nil
		}),
		// retry-go 的 n 从 1 开始，与 NextDelay 一致
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			if backoff == nil {
				return 0
			}
			return backoff.NextDelay(safeUintToInt(n))
		}),
		retry.LastErrorOnly(true),
	)
	if p.OnRetry != nil {
		onRetry := p.OnRetry
		// retry-go 的 n 从 0 开始
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			onRetry(safeUintToInt(n)+1, err)
		}))
	}
	return opts
}

func safeUintToInt(n uint) int {
	if n > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}
