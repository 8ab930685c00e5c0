// Package xrun 管理长时间运行任务的并发执行与协调关闭。
//
// [Group] 基于 errgroup：任一任务返回错误或调用 [Group.Cancel] 时，
// 其余任务的 context 都会被取消。[Run] 在 Group 之上自动监听系统信号，
// 收到信号时以 [*SignalError] 作为退出原因：
//
//	err := xrun.Run(ctx, nil, func(ctx context.Context) error {
//		w.StartAsync()
//		<-ctx.Done()
//		return w.Stop()
//	})
//	if errors.Is(err, xrun.ErrSignal) {
//		err = nil
//	}
package xrun
