package xnet

import "errors"

var (
	// ErrMalformedRange 表示范围表示法无效：语法错误、分量越界或混用分隔符。
	ErrMalformedRange = errors.New("xnet: malformed range")

	// ErrInvalidAddress 表示待检测的地址不是合法的 IPv4 字面量。
	ErrInvalidAddress = errors.New("xnet: invalid IPv4 address")
)
