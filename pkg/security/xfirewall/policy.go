package xfirewall

import (
	"fmt"
	"strings"
)

// Policy 是规则的放行或拒绝策略。
//
// PolicyUndefined 仅作为输入哨兵存在，任何规则都不会持有它。
type Policy uint8

const (
	PolicyUndefined Policy = iota
	Allow
	Forbid
)

// String 返回 "allow"、"forbid" 或 "undefined"。
func (p Policy) String() string {
	switch p {
	case Allow:
		return "allow"
	case Forbid:
		return "forbid"
	default:
		return "undefined"
	}
}

// IsValid 报告 p 是否为 Allow 或 Forbid。
func (p Policy) IsValid() bool {
	return p == Allow || p == Forbid
}

// Allowed 报告 p 是否为 Allow。
func (p Policy) Allowed() bool {
	return p == Allow
}

// PolicyFromBool 将布尔值映射为 Allow / Forbid。
func PolicyFromBool(allowed bool) Policy {
	if allowed {
		return Allow
	}
	return Forbid
}

// ParsePolicy 解析策略名（大小写不敏感）。
//
//	allow  | allowed   | white | permit
//	forbid | forbidden | black | deny | denied
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow", "allowed", "white", "permit":
		return Allow, nil
	case "forbid", "forbidden", "black", "deny", "denied":
		return Forbid, nil
	default:
		return PolicyUndefined, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// MarshalText 实现 encoding.TextMarshaler。PolicyUndefined 不可序列化。
func (p Policy) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, ErrUndefinedPolicy
	}
	return []byte(p.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (p *Policy) UnmarshalText(data []byte) error {
	parsed, err := ParsePolicy(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// SortMode 决定规则优先级顺序的维护时机，构造后不可变更。
type SortMode uint8

const (
	// DeferredSort 插入时只标记失效，下一次判定前统一排序。
	DeferredSort SortMode = iota
	// EagerSort 每次插入都立即维护有序性。
	EagerSort
)

// String 返回 "deferred" 或 "eager"。
func (m SortMode) String() string {
	switch m {
	case DeferredSort:
		return "deferred"
	case EagerSort:
		return "eager"
	default:
		return fmt.Sprintf("SortMode(%d)", uint8(m))
	}
}

// ParseSortMode 解析 "deferred" / "lazy" 与 "eager" / "immediate"，空串为 DeferredSort。
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "deferred", "lazy":
		return DeferredSort, nil
	case "eager", "immediate":
		return EagerSort, nil
	default:
		return DeferredSort, fmt.Errorf("%w: %q", ErrUnknownSortMode, s)
	}
}

// MarshalText 实现 encoding.TextMarshaler。
func (m SortMode) MarshalText() ([]byte, error) {
	if m != DeferredSort && m != EagerSort {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSortMode, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (m *SortMode) UnmarshalText(data []byte) error {
	parsed, err := ParseSortMode(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
