package xfirewall

import (
	"context"

	"github.com/omeyang/xguard/pkg/context/xclientip"
)

// HandlerFunc 在 [Engine.Handle] 判定后被调用，返回值作为 Handle 的结果。
type HandlerFunc func(ctx context.Context, v Verdict) bool

// Option 定义 Engine 的可选配置。
type Option func(*options)

type options struct {
	def      Policy
	mode     SortMode
	resolver xclientip.Resolver
	handler  HandlerFunc
}

func defaultOptions() options {
	return options{
		def:      Forbid,
		mode:     DeferredSort,
		resolver: xclientip.Context(),
	}
}

// WithDefault 设置默认策略，默认 Forbid。PolicyUndefined 被忽略。
func WithDefault(p Policy) Option {
	return func(o *options) {
		if p.IsValid() {
			o.def = p
		}
	}
}

// WithSortMode 设置排序模式，默认 DeferredSort。
func WithSortMode(m SortMode) Option {
	return func(o *options) {
		if m == DeferredSort || m == EagerSort {
			o.mode = m
		}
	}
}

// WithResolver 设置 [Engine.ValidateContext] 使用的地址解析器，
// 默认读取 xclientip.WithClientIP 放入 context 的地址。nil 被忽略。
func WithResolver(r xclientip.Resolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithHandler 设置 [Engine.Handle] 的回调。
func WithHandler(fn HandlerFunc) Option {
	return func(o *options) {
		o.handler = fn
	}
}
