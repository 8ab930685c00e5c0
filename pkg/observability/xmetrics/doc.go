// Package xmetrics 提供规则引擎的可观测性接口（metrics + tracing）。
//
// # 设计理念
//
// xmetrics 仅定义最小化接口 [Recorder]，业务代码只依赖接口；
// 默认实现基于 OpenTelemetry，[Noop] 用于不需要观测的场景。
//
// # 使用示例
//
//	rec, _ := xmetrics.NewOTelRecorder()
//	ctx, span := rec.Start(ctx, xmetrics.OpReload)
//	err := reload(ctx)
//	span.End(err)
//	rec.Mutation(ctx, xmetrics.OpReload, n)
//
// # 指标命名
//
//   - xguard.verdict.total：判定次数，属性 policy / source
//   - xguard.rule.mutations.total：规则变更条数，属性 operation
//   - xguard.operation.duration：操作耗时（秒），属性 operation / status
package xmetrics
