package xfirewall

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/omeyang/xguard/pkg/context/xclientip"
	"github.com/omeyang/xguard/pkg/observability/xlog"
	"github.com/omeyang/xguard/pkg/observability/xmetrics"
	"github.com/omeyang/xguard/pkg/util/xlru"
	"github.com/omeyang/xguard/pkg/util/xnet"
)

// GuardOption 定义 Guard 的可选配置。
type GuardOption func(*guardOptions)

type guardOptions struct {
	cacheSize int
	cacheTTL  time.Duration
	logger    xlog.Logger
	recorder  xmetrics.Recorder
	trusted   []netip.Prefix
	trustSet  bool
}

// WithCacheSize 设置按地址缓存判定结果的条目上限，0 表示不缓存（默认）。
func WithCacheSize(n int) GuardOption {
	return func(o *guardOptions) {
		o.cacheSize = n
	}
}

// WithCacheTTL 设置判定缓存的过期时间，0 表示仅在规则变更时失效。
func WithCacheTTL(d time.Duration) GuardOption {
	return func(o *guardOptions) {
		o.cacheTTL = d
	}
}

// WithLogger 设置日志，默认丢弃。nil 被忽略。
func WithLogger(l xlog.Logger) GuardOption {
	return func(o *guardOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder 设置指标记录器，默认不记录。nil 被忽略。
func WithRecorder(r xmetrics.Recorder) GuardOption {
	return func(o *guardOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithTrustedProxies 限定 [Guard.Middleware] 只采信来自 proxies 的 X-Forwarded-For，
// 其余请求按 RemoteAddr 判定。不传 proxies 时完全忽略该请求头。
// 未设置此选项时中间件无条件采信 X-Forwarded-For，见 [xclientip.FromRequest]。
func WithTrustedProxies(proxies ...netip.Prefix) GuardOption {
	return func(o *guardOptions) {
		o.trusted = append([]netip.Prefix(nil), proxies...)
		o.trustSet = true
	}
}

// Guard 用一把互斥锁串行化对 [Engine] 的全部访问，供多 goroutine 共享。
//
// 可选的判定缓存以地址为键，任何规则变更都会清空缓存。
// Guard 只返回判定结果，不维护"当前判定"。
type Guard struct {
	mu       sync.Mutex
	engine   *Engine
	cache    *xlru.Cache[netip.Addr, Verdict]
	logger   xlog.Logger
	recorder xmetrics.Recorder
	clientIP func(*http.Request) (netip.Addr, bool)
}

// NewGuard 创建 Guard。e 为 nil 时返回 ErrNilEngine，缓存配置无效时返回 xlru 的错误。
func NewGuard(e *Engine, opts ...GuardOption) (*Guard, error) {
	if e == nil {
		return nil, ErrNilEngine
	}
	o := guardOptions{
		logger:   xlog.Discard(),
		recorder: xmetrics.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	g := &Guard{
		engine:   e,
		logger:   o.logger.With(xlog.Component("xfirewall")),
		recorder: o.recorder,
		clientIP: xclientip.FromRequest,
	}
	if o.trustSet {
		trusted := o.trusted
		g.clientIP = func(r *http.Request) (netip.Addr, bool) {
			return xclientip.FromTrustedRequest(r, trusted)
		}
	}
	if o.cacheSize != 0 {
		cache, err := xlru.New[netip.Addr, Verdict](xlru.Config{Size: o.cacheSize, TTL: o.cacheTTL})
		if err != nil {
			return nil, err
		}
		g.cache = cache
	}
	return g, nil
}

// mutate 在锁内执行规则变更，fn 返回本次变更的规则条数。
// 无论成败都清空缓存，AddRanges 失败时部分规则已经生效。
func (g *Guard) mutate(ctx context.Context, op string, fn func(e *Engine) (int, error)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, span := g.recorder.Start(ctx, op)
	n, err := fn(g.engine)
	g.purge()
	span.End(err)

	g.recorder.Mutation(ctx, op, n)
	if err != nil {
		g.logger.Warn(ctx, "rule mutation failed", xlog.Operation(op), xlog.Count(n), xlog.Err(err))
		return err
	}
	g.logger.Info(ctx, "rules changed", xlog.Operation(op), xlog.Count(n), slog.Int("rules", g.engine.Len()))
	return nil
}

func (g *Guard) purge() {
	if g.cache != nil {
		g.cache.Purge()
	}
}

// Reset 见 [Engine.Reset]。
func (g *Guard) Reset(ctx context.Context, p Policy) error {
	return g.mutate(ctx, xmetrics.OpReset, func(e *Engine) (int, error) {
		if err := e.Reset(p); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// SetDefault 见 [Engine.SetDefault]。
func (g *Guard) SetDefault(ctx context.Context, p Policy) error {
	return g.mutate(ctx, xmetrics.OpSetDefault, func(e *Engine) (int, error) {
		if err := e.SetDefault(p); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// AddRange 见 [Engine.AddRange]。
func (g *Guard) AddRange(ctx context.Context, spec string, p Policy) error {
	return g.mutate(ctx, xmetrics.OpAdd, func(e *Engine) (int, error) {
		if err := e.AddRange(spec, p); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// AddRanges 见 [Engine.AddRanges]，失败前的规则保留并计入变更条数。
func (g *Guard) AddRanges(ctx context.Context, specs []string, p Policy) error {
	return g.mutate(ctx, xmetrics.OpAdd, func(e *Engine) (int, error) {
		before := e.Len()
		err := e.AddRanges(specs, p)
		return e.Len() - before, err
	})
}

// Swap 以 next 整体替换当前引擎并返回旧引擎，用于规则文件热加载。
func (g *Guard) Swap(ctx context.Context, next *Engine) (*Engine, error) {
	if next == nil {
		return nil, ErrNilEngine
	}
	var prev *Engine
	err := g.mutate(ctx, xmetrics.OpSwap, func(e *Engine) (int, error) {
		prev = e
		g.engine = next
		return next.Len(), nil
	})
	return prev, err
}

// Validate 解析 addr 并判定。
func (g *Guard) Validate(ctx context.Context, addr string) (Verdict, error) {
	a, err := xnet.ParseAddr4(addr)
	if err != nil {
		g.logger.Debug(ctx, "invalid address", xlog.Err(err))
		return Verdict{}, err
	}
	return g.ValidateAddr(ctx, a)
}

// ValidateAddr 判定 addr，优先使用缓存。
func (g *Guard) ValidateAddr(ctx context.Context, addr netip.Addr) (Verdict, error) {
	v, _, err := g.validate(ctx, addr)
	return v, err
}

// validate 在同一次加锁内判定 addr，并返回给出判定的引擎。
// 缓存在 Swap 时清空，命中的判定总是来自当前引擎。
func (g *Guard) validate(ctx context.Context, addr netip.Addr) (Verdict, *Engine, error) {
	addr = addr.Unmap()

	g.mu.Lock()
	defer g.mu.Unlock()

	e := g.engine
	if g.cache != nil {
		if v, ok := g.cache.Get(addr); ok {
			g.recorder.Verdict(ctx, v.Allowed, xmetrics.SourceCache)
			return v, e, nil
		}
	}

	v, err := e.ValidateAddr(addr)
	if err != nil {
		g.logger.Debug(ctx, "invalid address", xlog.Address(addr), xlog.Err(err))
		return Verdict{}, e, err
	}
	if g.cache != nil {
		g.cache.Set(addr, v)
	}
	g.recorder.Verdict(ctx, v.Allowed, xmetrics.SourceEngine)
	if v.Forbidden {
		g.logger.Debug(ctx, "address forbidden", xlog.Address(addr), xlog.Range(v.Rule.Range.String()))
	}
	return v, e, nil
}

// ValidateContext 通过当前引擎的解析器取得地址并判定；没有地址时返回 ok=false。
func (g *Guard) ValidateContext(ctx context.Context) (v Verdict, ok bool, err error) {
	v, _, ok, err = g.validateContext(ctx)
	return v, ok, err
}

func (g *Guard) validateContext(ctx context.Context) (v Verdict, e *Engine, ok bool, err error) {
	g.mu.Lock()
	resolver := g.engine.resolver
	g.mu.Unlock()

	addr, found := resolver.Resolve(ctx)
	if !found {
		return Verdict{}, nil, false, nil
	}
	v, e, err = g.validate(ctx, addr)
	if err != nil {
		return Verdict{}, nil, false, err
	}
	return v, e, true, nil
}

// Handle 见 [Engine.Handle]。回调取自给出判定的那个引擎，
// 与并发的 Swap 交错时判定与回调不会错配。
func (g *Guard) Handle(ctx context.Context) (bool, error) {
	v, e, ok, err := g.validateContext(ctx)
	if err != nil || !ok {
		return false, err
	}
	if e.handler != nil {
		return e.handler(ctx, v), nil
	}
	return v.Allowed, nil
}

// Rules 见 [Engine.Rules]。
func (g *Guard) Rules() []Rule {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.Rules()
}

// Len 见 [Engine.Len]。
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.Len()
}

// Default 见 [Engine.Default]。
func (g *Guard) Default() Policy {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.Default()
}
