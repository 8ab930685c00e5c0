package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xguard/pkg/observability/xlog"
)

// Group 基于 errgroup + context 管理多个任务的并发运行和协调关闭。
//
// Go、GoWithName、Cancel 可并发调用；Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 context 在任一任务出错或 Cancel 时取消。
// nil ctx 视为 context.Background()。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
	}, egCtx
}

// Go 启动一个任务。fn 应在 ctx 取消后尽快返回。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，并记录任务的启动与退出。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("service", name)}
		g.opts.logger.Debug(g.ctx, "service starting", attrs...)
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(g.ctx, "service exited with error", append(attrs, xlog.Err(err))...)
		} else {
			g.opts.logger.Debug(g.ctx, "service stopped", attrs...)
		}
		return err
	})
}

// Wait 等待全部任务结束并返回第一个错误。
//
// Group 被主动取消（Cancel 或父 context）时，任务返回的 context.Canceled 被过滤；
// 若取消时附带了原因（如 [*SignalError]），返回该原因。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	cause := context.Cause(g.causeCtx)
	explicit := g.causeCtx.Err() != nil && cause != nil && !errors.Is(cause, context.Canceled)

	if errors.Is(err, context.Canceled) {
		if g.causeCtx.Err() == nil {
			// 任务内部产生的取消，不过滤
			return err
		}
		if explicit {
			return cause
		}
		return nil
	}
	if err == nil && explicit {
		return cause
	}
	return err
}

// Cancel 以 cause 为原因取消全部任务。cause 为 nil 时 Wait 返回 nil。
// cause 不应包装 context.Canceled，否则会被 Wait 过滤。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 context。
func (g *Group) Context() context.Context {
	return g.ctx
}

// Run 运行 tasks 并监听信号（可用 [WithoutSignalHandler] 禁用）。
// 收到信号时全部任务被取消，Run 返回 [*SignalError]。
// 全部任务结束后 Run 返回；没有任务时 Run 阻塞到收到信号或 ctx 取消。
func Run(ctx context.Context, opts []Option, tasks ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)

	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		g.Go(func(ctx context.Context) error {
			testc := testSigChan(ctx)
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, signals...)
			defer signal.Stop(sigCh)

			var sig os.Signal
			select {
			case sig = <-testc:
			case sig = <-sigCh:
			case <-ctx.Done():
				return ctx.Err()
			}
			g.opts.logger.Info(ctx, "received signal",
				slog.String("group", g.opts.name),
				slog.String("signal", sig.String()),
			)
			g.cancel(&SignalError{Signal: sig})
			return nil
		})
	}

	// 全部任务正常结束后取消信号监听，避免 Wait 永久阻塞
	var remaining atomic.Int64
	remaining.Store(int64(len(tasks)))
	for _, task := range tasks {
		g.Go(func(ctx context.Context) error {
			defer func() {
				if remaining.Add(-1) == 0 {
					g.cancel(nil)
				}
			}()
			if task == nil {
				return ErrNilFunc
			}
			return task(ctx)
		})
	}
	return g.Wait()
}

// testSigChanKey 用于在测试中通过 context 注入信号通道。
type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, ok := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	if !ok {
		return nil
	}
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}
