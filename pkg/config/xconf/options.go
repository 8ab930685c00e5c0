package xconf

import (
	"time"

	"github.com/omeyang/xguard/pkg/observability/xlog"
	"github.com/omeyang/xguard/pkg/observability/xmetrics"
	"github.com/omeyang/xguard/pkg/resilience/xretry"
)

// WatchOption 监视器配置选项
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	logger   xlog.Logger
	recorder xmetrics.Recorder
	retry    xretry.Policy
}

const defaultReloadAttempts = 3

func defaultWatchOptions() *watchOptions {
	return &watchOptions{
		debounce: 100 * time.Millisecond,
		logger:   xlog.Discard(),
		recorder: xmetrics.Noop(),
		retry: xretry.Policy{
			Attempts: defaultReloadAttempts,
			Backoff:  xretry.NewExponentialBackoff(),
		},
	}
}

// WithDebounce 设置防抖时间，在此时间内的多次变更只触发一次重载。
// 默认 100ms，非正值被忽略。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithLogger 设置监视器日志，nil 被忽略。
func WithLogger(l xlog.Logger) WatchOption {
	return func(o *watchOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder 设置重载指标记录器，nil 被忽略。
func WithRecorder(r xmetrics.Recorder) WatchOption {
	return func(o *watchOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithReloadAttempts 设置单次重载读取文件的最大尝试次数，默认 3。
// 读取失败与语法错误（文件可能仍在写入）会重试，校验错误不重试。小于 1 的值被忽略。
func WithReloadAttempts(n int) WatchOption {
	return func(o *watchOptions) {
		if n >= 1 {
			o.retry.Attempts = n
		}
	}
}
