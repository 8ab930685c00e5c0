// Package xconf 加载规则文件并在文件变更时热重载，基于 koanf 与 fsnotify 实现。
//
// # 文件格式
//
// 支持 YAML（.yaml/.yml）与 JSON（.json）：
//
//	default: forbid        # allow | forbid，省略时取 Build 的选项，再省略为 forbid
//	sort: deferred         # eager | deferred，省略时取 Build 的选项，再省略为 deferred
//	allow:
//	  - 192.168.0.0/24
//	forbid:
//	  - 192.168.0.10-192.168.0.50
//	rules:                 # 有序规则，最后应用
//	  - range: 192.168.0.42
//	    policy: allow
//
// 应用顺序为 allow、forbid、rules。判定只看范围容量，顺序只在容量相同时起作用：
// 后应用者获胜。
//
// # 加载与构建
//
//	f, err := xconf.Load("/etc/xguard/rules.yaml")
//	if err != nil {
//		return err
//	}
//	engine, err := f.Build()
//
// [Load] 与 [LoadBytes] 会完整校验策略名、排序模式与全部范围，
// 因此对已校验的 File 调用 [File.Build] 不会部分失败。
//
// # 指纹
//
// [File.Fingerprint] 对规范化后的内容计算 xxhash：注释、空白、键顺序以及
// 范围的等价写法（如 192.168.0.7/24 与 192.168.0.0/24）不影响指纹。
//
// # 热重载
//
// [Watch] 监视文件所在目录（兼容编辑器的原子替换写入），内置防抖，
// 只有指纹变化时才调用回调。读取失败与语法错误按指数退避重试
// （[WithReloadAttempts]，默认 3 次），校验错误不重试。[SwapGuard] 返回的回调会构建新引擎并替换到 Guard 中。
// Stop 返回后不再有回调执行。
package xconf
