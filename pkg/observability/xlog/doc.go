// Package xlog 基于 log/slog 的结构化日志库。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、轮转）
//   - 动态级别调整（运行时热更新）
//   - 规则引擎常用属性（地址、策略、范围、规则文件指纹）
//   - [Discard] 丢弃全部输出，用作组件的默认 Logger
//
// # 创建 Logger
//
// 使用 Builder 模式（first-error-wins：遇到第一个配置错误后，Build 返回该错误）：
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xguard/xguard.log", xlog.RotationOptions{MaxSizeMB: 50}).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// 所有方法都要求 context.Context 并且只接受 slog.Attr。
//
// # 日志级别
//
// LevelDebug(-4)、LevelInfo(0)、LevelWarn(4)、LevelError(8)。
// 可通过 [ParseLevel] 从字符串解析。
package xlog
