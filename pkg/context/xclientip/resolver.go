package xclientip

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/omeyang/xguard/pkg/util/xnet"
)

// Resolver 从调用上下文中解析客户端 IPv4 地址。
type Resolver interface {
	Resolve(ctx context.Context) (netip.Addr, bool)
}

// ResolverFunc 将普通函数适配为 [Resolver]。
type ResolverFunc func(ctx context.Context) (netip.Addr, bool)

// Resolve 实现 [Resolver]。
func (f ResolverFunc) Resolve(ctx context.Context) (netip.Addr, bool) {
	return f(ctx)
}

// Static 返回始终解析为 addr 的解析器。addr 不是 IPv4 时始终返回 false。
func Static(addr netip.Addr) Resolver {
	addr = addr.Unmap()
	return ResolverFunc(func(context.Context) (netip.Addr, bool) {
		return addr, addr.Is4()
	})
}

// Loopback 返回解析为 127.0.0.1 的解析器，用于命令行进程。
func Loopback() Resolver {
	return Static(netip.AddrFrom4([4]byte{127, 0, 0, 1}))
}

type addrKey struct{}

type requestKey struct{}

// WithClientIP 将客户端地址放入 context。
func WithClientIP(ctx context.Context, addr netip.Addr) context.Context {
	return context.WithValue(ctx, addrKey{}, addr)
}

// FromContext 读取 [WithClientIP] 放入的地址，仅当其为 IPv4 时返回 true。
func FromContext(ctx context.Context) (netip.Addr, bool) {
	if ctx == nil {
		return netip.Addr{}, false
	}
	addr, ok := ctx.Value(addrKey{}).(netip.Addr)
	if !ok {
		return netip.Addr{}, false
	}
	addr = addr.Unmap()
	return addr, addr.Is4()
}

// Context 返回读取 [WithClientIP] 地址的解析器。
func Context() Resolver {
	return ResolverFunc(FromContext)
}

// WithRequest 将 HTTP 请求放入 context，供 [HTTP] 解析器使用。
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

// RequestFromContext 读取 [WithRequest] 放入的请求。
func RequestFromContext(ctx context.Context) (*http.Request, bool) {
	if ctx == nil {
		return nil, false
	}
	r, ok := ctx.Value(requestKey{}).(*http.Request)
	return r, ok && r != nil
}

// HTTP 返回从 [WithRequest] 请求中解析客户端地址的解析器，规则见 [FromRequest]。
func HTTP() Resolver {
	return ResolverFunc(func(ctx context.Context) (netip.Addr, bool) {
		r, ok := RequestFromContext(ctx)
		if !ok {
			return netip.Addr{}, false
		}
		return FromRequest(r)
	})
}

// FromRequest 解析请求的客户端地址：
//   - RemoteAddr 为空时视为无地址
//   - X-Forwarded-For 存在时取最后一个逗号分隔项，合法 IPv4 即返回
//   - 否则取 RemoteAddr（host:port 或裸地址），合法 IPv4 即返回
//
// X-Forwarded-For 由客户端任意设置。直接面向不可信网络时应使用 [FromTrustedRequest]，
// 或确保前置代理会覆盖该请求头。
func FromRequest(r *http.Request) (netip.Addr, bool) {
	if r == nil || r.RemoteAddr == "" {
		return netip.Addr{}, false
	}
	if addr, ok := lastForwarded(r); ok {
		return addr, true
	}
	return parseRemoteAddr(r.RemoteAddr)
}

// FromTrustedRequest 与 [FromRequest] 相同，但只有 RemoteAddr 落在 trusted 中
// （即请求来自受信任的代理）时才采用 X-Forwarded-For。trusted 为空时只看 RemoteAddr。
func FromTrustedRequest(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	if r == nil || r.RemoteAddr == "" {
		return netip.Addr{}, false
	}
	remote, ok := parseRemoteAddr(r.RemoteAddr)
	if !ok {
		return netip.Addr{}, false
	}
	for _, p := range trusted {
		if p.Contains(remote) {
			if addr, ok := lastForwarded(r); ok {
				return addr, true
			}
			break
		}
	}
	return remote, true
}

func lastForwarded(r *http.Request) (netip.Addr, bool) {
	xff := r.Header.Values("X-Forwarded-For")
	if len(xff) == 0 {
		return netip.Addr{}, false
	}
	last := xff[len(xff)-1]
	if i := strings.LastIndexByte(last, ','); i >= 0 {
		last = last[i+1:]
	}
	addr, err := xnet.ParseAddr4(last)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}

func parseRemoteAddr(s string) (netip.Addr, bool) {
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := xnet.ParseAddr4(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}

// Chain 依次尝试 resolvers，返回第一个成功的结果。nil 解析器被跳过。
func Chain(resolvers ...Resolver) Resolver {
	return ResolverFunc(func(ctx context.Context) (netip.Addr, bool) {
		for _, r := range resolvers {
			if r == nil {
				continue
			}
			if addr, ok := r.Resolve(ctx); ok {
				return addr, true
			}
		}
		return netip.Addr{}, false
	})
}
