package xfirewall

import (
	"context"
	"net"
	"net/http"

	"github.com/omeyang/xguard/pkg/context/xclientip"
	"github.com/omeyang/xguard/pkg/util/xnet"
)

// Middleware 返回 HTTP 中间件：按 [xclientip.FromRequest] 取得客户端地址，
// 无地址或被拒绝时交给 deny 处理（nil 时返回 403）。
// 放行的请求通过 xclientip.WithClientIP 携带客户端地址进入 next。
//
// 默认采信 X-Forwarded-For 的最后一项，任何客户端都能伪造该请求头绕过拒绝规则。
// 直接面向不可信网络时，用 [WithTrustedProxies] 创建 Guard，
// 或部署在会覆盖 X-Forwarded-For 的代理之后。
func (g *Guard) Middleware(next, deny http.Handler) http.Handler {
	if deny == nil {
		deny = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr, ok := g.clientIP(r)
		if !ok {
			deny.ServeHTTP(w, r)
			return
		}
		v, err := g.ValidateAddr(r.Context(), addr)
		if err != nil || v.Forbidden {
			deny.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(xclientip.WithClientIP(r.Context(), addr)))
	})
}

// AllowConn 判定原始 TCP 连接的对端地址，在 Accept 之后、握手之前调用。
// 无法解析出 IPv4 地址的连接一律拒绝。
func (g *Guard) AllowConn(ctx context.Context, remote net.Addr) bool {
	if remote == nil {
		return false
	}
	host, _, err := net.SplitHostPort(remote.String())
	if err != nil {
		host = remote.String()
	}
	addr, err := xnet.ParseAddr4(host)
	if err != nil {
		return false
	}
	v, err := g.ValidateAddr(ctx, addr)
	return err == nil && v.Allowed
}
