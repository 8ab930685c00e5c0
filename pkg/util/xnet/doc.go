// Package xnet 提供 IPv4 范围表示法的解析与匹配。
//
// xnet 基于 Go 标准库 [net/netip] 和社区库 [go4.org/netipx] 构建，
// 所有运算在 IPv4 的 uint32（网络字节序）表示上完成，容量以 uint64 表示，
// 因此 "0.0.0.0/0" 的容量 2^32 不会溢出。
//
// # 支持的表示法
//
//	| 表示法   | 示例                        | 包含判断                         | 容量             |
//	|----------|-----------------------------|----------------------------------|------------------|
//	| CIDR     | 192.168.0.0/24              | (addr & mask) == (subnet & mask) | 2^(32-prefix)    |
//	| 显式范围 | 192.168.0.10-192.168.0.50   | start <= addr <= end             | end - start + 1  |
//	| 通配符   | 192.168.0.*                 | 非 "*" 八位段逐段相等            | 256^k            |
//	| 单地址   | 192.168.0.42                | addr == value                    | 1                |
//
// 表示法由严格语法决定，而不是子串猜测：混用分隔符（"10.0.0.*/24"）、
// 重复分隔符、越界八位段、前导零、前缀长度不在 [0,32] 内都返回 [ErrMalformedRange]。
//
// # 快速示例
//
//	r, _ := xnet.ParseRange("192.168.0.0/24")
//	fmt.Println(r.Kind(), r.Capacity())                          // cidr 256
//	fmt.Println(r.Contains(netip.MustParseAddr("192.168.0.255"))) // true
//
// 待检测地址使用 [ParseAddr4] 严格解析，非法字面量返回 [ErrInvalidAddress]。
//
// # 通配符
//
// "*" 必须占据整个八位段，且不要求位于尾部："10.*.0.1" 合法，
// 容量为 256，但覆盖的地址并不连续。[Range.Contiguous] 报告这一点，
// [Range.IPRange] 与 [Range.Prefixes] 对不连续范围返回零值。
//
// # 序列化
//
// [WireRange] 是 JSON/YAML 友好的诊断格式，Notation 是唯一权威字段。
package xnet
