package xretry

import (
	"errors"

	retry "github.com/avast/retry-go/v5"
)

// ErrNilFunc 表示传入的函数为 nil。
var ErrNilFunc = errors.New("xretry: nil function")

// Permanent 标记 err 为不可重试，nil 保持为 nil。
// 包装后的错误仍可用 errors.Is / errors.As 匹配 err。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return retry.Unrecoverable(err)
}

// IsPermanent 报告 err 是否经 [Permanent] 标记。
func IsPermanent(err error) bool {
	return err != nil && !retry.IsRecoverable(err)
}
