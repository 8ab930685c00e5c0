package xfirewall

import (
	"errors"

	"github.com/omeyang/xguard/pkg/util/xnet"
)

var (
	// ErrMalformedRange 表示范围表示法无法解析，与 xnet.ErrMalformedRange 相同。
	ErrMalformedRange = xnet.ErrMalformedRange

	// ErrInvalidAddress 表示待校验地址不是合法 IPv4，与 xnet.ErrInvalidAddress 相同。
	ErrInvalidAddress = xnet.ErrInvalidAddress

	// ErrUndefinedPolicy 表示试图存储 PolicyUndefined。
	ErrUndefinedPolicy = errors.New("xfirewall: undefined policy")

	// ErrUnknownPolicy 表示策略名无法识别。
	ErrUnknownPolicy = errors.New("xfirewall: unknown policy")

	// ErrUnknownSortMode 表示排序模式名无法识别。
	ErrUnknownSortMode = errors.New("xfirewall: unknown sort mode")

	// ErrNilEngine 表示 NewGuard 或 Swap 传入了 nil 引擎。
	ErrNilEngine = errors.New("xfirewall: nil engine")
)
