// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xnet: IPv4 范围表示法解析与匹配，基于 net/netip + go4.org/netipx
//   - xlru: LRU 缓存，泛型支持、惰性 TTL 过期
package util
