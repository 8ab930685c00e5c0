package xmetrics

import "context"

// Status 表示操作结果状态。
type Status string

const (
	// StatusOK 表示成功。
	StatusOK Status = "ok"
	// StatusError 表示失败。
	StatusError Status = "error"
)

// 判定来源。
const (
	SourceEngine = "engine"
	SourceCache  = "cache"
)

// 规则变更操作名。
const (
	OpReset      = "reset"
	OpSetDefault = "set_default"
	OpAdd        = "add"
	OpSwap       = "swap"
	OpReload     = "reload"
)

// Recorder 记录判定与规则变更。实现必须并发安全。
type Recorder interface {
	// Verdict 记录一次判定，source 为 [SourceEngine] 或 [SourceCache]。
	Verdict(ctx context.Context, allowed bool, source string)

	// Mutation 记录一次规则变更，rules 为本次变更涉及的规则条数。
	Mutation(ctx context.Context, op string, rules int)

	// Start 开始一次操作跨度，返回的 Span 必须调用 End。
	Start(ctx context.Context, op string) (context.Context, Span)
}

// Span 表示一次进行中的操作。
type Span interface {
	// End 结束操作，err 非 nil 时记为失败。多次调用只生效一次。
	End(err error)
}

// Noop 返回不记录任何内容的 Recorder。
func Noop() Recorder { return noopRecorder{} }

type noopRecorder struct{}

func (noopRecorder) Verdict(context.Context, bool, string) {}

func (noopRecorder) Mutation(context.Context, string, int) {}

func (noopRecorder) Start(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}
