// Package xfirewall 实现基于 IPv4 范围的放行/拒绝规则判定。
//
// # 规则与判定
//
// 每条规则由一个范围（见 xnet 支持的四种表示法）和一个策略（[Allow] / [Forbid]）组成。
// 判定采用"最小包含范围获胜"：在所有包含该地址的规则中，容量最小者决定结果；
// 容量相同时后插入者获胜。因此可以在大范围中开出相反策略的小例外，
// 与规则的添加顺序无关：
//
//	e := xfirewall.New(xfirewall.WithDefault(xfirewall.Allow))
//	_ = e.AddForbidden("192.168.0.0/16")
//	_ = e.AddAllowed("192.168.0.0/24")
//	_ = e.AddForbidden("192.168.0.10-192.168.0.80")
//	_ = e.AddAllowed("192.168.0.42")
//
//	v, _ := e.Validate("192.168.0.42") // allow，由 192.168.0.42 决定
//	v, _ = e.Validate("192.168.0.70")  // forbid，由 10-80 决定
//
// 默认策略以全量规则 *.*.*.*（容量 2^32）的形式始终存在，
// 没有命中任何规则的情况在结构上不会发生。
//
// # 排序模式
//
// [EagerSort] 每次插入立即维护有序性；[DeferredSort]（默认）只在下一次判定
// 或读取 [Engine.Rules] 时排序。两种模式的判定结果完全一致。
//
// # 错误
//
//   - [ErrMalformedRange]：范围表示法无效，插入时返回
//   - [ErrInvalidAddress]：待校验地址不是合法 IPv4，判定时返回
//   - [ErrUndefinedPolicy]：试图存储 [PolicyUndefined]
//
// 错误永远不会被折算成放行或拒绝。
//
// # 并发
//
// [Engine] 不加锁，调用方必须串行化。[Guard] 用一把互斥锁包装 Engine，
// 并提供可选的判定缓存、日志、指标、HTTP 中间件与连接过滤。
package xfirewall
