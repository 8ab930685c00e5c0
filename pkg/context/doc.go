// Package context 提供上下文相关的子包。
//
// 子包列表：
//   - xclientip: 从 context 或 HTTP 请求中解析客户端 IPv4 地址
//
// 设计原则：
//   - 所有上下文信息通过 context.Context 传递，不使用全局变量
package context
