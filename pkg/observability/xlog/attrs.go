package xlog

import (
	"fmt"
	"log/slog"
	"net/netip"
	"time"
)

// 常用属性 Key
const (
	KeyError       = "error"
	KeyDuration    = "duration"
	KeyCount       = "count"
	KeyComponent   = "component"
	KeyOperation   = "operation"
	KeyAddress     = "address"
	KeyPolicy      = "policy"
	KeyRange       = "range"
	KeyPath        = "path"
	KeyFingerprint = "fingerprint"
)

// Err 创建错误属性，nil 返回空属性（被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "1.5s"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Count 创建计数属性
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Address 创建地址属性，无效地址输出为空串。
func Address(addr netip.Addr) slog.Attr {
	if !addr.IsValid() {
		return slog.String(KeyAddress, "")
	}
	return slog.String(KeyAddress, addr.String())
}

// Policy 创建策略属性，接受任何 fmt.Stringer（如 allow / forbid）。
func Policy(p fmt.Stringer) slog.Attr {
	return slog.String(KeyPolicy, p.String())
}

// Range 创建范围表示法属性。
func Range(notation string) slog.Attr {
	return slog.String(KeyRange, notation)
}

// Path 创建文件路径属性
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Fingerprint 创建规则文件指纹属性（16 位十六进制）。
func Fingerprint(fp uint64) slog.Attr {
	return slog.String(KeyFingerprint, fmt.Sprintf("%016x", fp))
}
