// Package xclientip 提供客户端地址解析器，为规则引擎提供待校验的 IPv4 地址。
//
// 解析器从 context 中取得"当前调用方"的地址，取不到时返回 false。
// 规则引擎把"无地址"视为空操作而非错误，保留上一次的判定结果。
//
// 内置解析器：
//   - [Static] / [Loopback]：固定地址，命令行进程使用 127.0.0.1
//   - [Context]：读取 [WithClientIP] 放入 context 的地址
//   - [HTTP]：读取 [WithRequest] 放入 context 的 *http.Request，
//     优先取 X-Forwarded-For 的最后一项，其次取 RemoteAddr
//   - [Chain]：按顺序尝试，返回第一个成功的结果
//
// 所有解析器只返回 IPv4 地址（IPv4-mapped IPv6 会被还原为 IPv4）。
package xclientip
