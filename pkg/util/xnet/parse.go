package xnet

import (
	"fmt"
	"strings"
)

// ParseRange 从字符串解析 IPv4 范围。支持 4 种表示法：
//   - 单地址: "192.168.0.42"
//   - CIDR: "192.168.0.0/24"
//   - 显式范围: "192.168.0.10-192.168.0.50"
//   - 通配符: "192.168.0.*"（"*" 必须占据整个八位段）
//
// 输入会自动去除首尾空白，"-" 与 "/" 两侧的空白同样忽略。
// 表示法由分隔符决定：同时出现多种分隔符（如 "10.0.0.*/24"）或
// 分隔符重复（如 "1.1.1.1-2.2.2.2-3.3.3.3"）均视为歧义，返回 [ErrMalformedRange]。
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, malformed(s, "empty notation")
	}

	slashes := strings.Count(s, "/")
	dashes := strings.Count(s, "-")
	stars := strings.Count(s, "*")

	kinds := 0
	for _, n := range [...]int{slashes, dashes, stars} {
		if n > 0 {
			kinds++
		}
	}
	if kinds > 1 {
		return Range{}, malformed(s, "mixed separators")
	}

	switch {
	case dashes > 0:
		if dashes > 1 {
			return Range{}, malformed(s, "more than one '-'")
		}
		return parseExplicitRange(s)
	case slashes > 0:
		if slashes > 1 {
			return Range{}, malformed(s, "more than one '/'")
		}
		return parseCIDR(s)
	case stars > 0:
		return parseWildcard(s)
	default:
		v, err := parseQuad(s)
		if err != nil {
			return Range{}, err
		}
		return Range{kind: KindExact, start: v, end: v, mask: ^uint32(0)}, nil
	}
}

// MustParseRange 与 [ParseRange] 相同，但失败时 panic。
// 仅用于常量表示法（测试、包级变量）。
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseRanges 按顺序解析多个表示法。
// 任一项失败则整体失败（返回 nil），错误中带有失败项的下标。
func ParseRanges(strs []string) ([]Range, error) {
	out := make([]Range, 0, len(strs))
	for i, s := range strs {
		r, err := ParseRange(s)
		if err != nil {
			return nil, fmt.Errorf("range [%d]: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func parseExplicitRange(s string) (Range, error) {
	startStr, endStr, _ := strings.Cut(s, "-")
	start, err := parseQuad(strings.TrimSpace(startStr))
	if err != nil {
		return Range{}, fmt.Errorf("range start: %w", err)
	}
	end, err := parseQuad(strings.TrimSpace(endStr))
	if err != nil {
		return Range{}, fmt.Errorf("range end: %w", err)
	}
	if start > end {
		return Range{}, malformed(s, "start is greater than end")
	}
	return Range{kind: KindRange, start: start, end: end}, nil
}

func parseCIDR(s string) (Range, error) {
	addrStr, bitsStr, _ := strings.Cut(s, "/")
	subnet, err := parseQuad(strings.TrimSpace(addrStr))
	if err != nil {
		return Range{}, err
	}
	bitsStr = strings.TrimSpace(bitsStr)
	if len(bitsStr) == 0 || len(bitsStr) > 2 || !isDigits(bitsStr) {
		return Range{}, malformed(s, "invalid prefix length")
	}
	bits := 0
	for i := 0; i < len(bitsStr); i++ {
		bits = bits*10 + int(bitsStr[i]-'0')
	}
	if bits > 32 {
		return Range{}, malformed(s, "prefix length out of [0,32]")
	}

	// prefix 为 0 时掩码为 0，匹配全部地址。
	var mask uint32
	if bits > 0 {
		mask = ^uint32(0) << (32 - bits)
	}
	start := subnet & mask
	return Range{
		kind:  KindCIDR,
		start: start,
		end:   start | ^mask,
		mask:  mask,
		bits:  uint8(bits),
	}, nil
}

func parseWildcard(s string) (Range, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return Range{}, malformed(s, "expected 4 octets")
	}
	var value, mask uint32
	for _, p := range parts {
		value <<= 8
		mask <<= 8
		if p == "*" {
			continue
		}
		o, ok := parseOctet(p)
		if !ok {
			return Range{}, malformed(s, fmt.Sprintf("invalid octet %q", p))
		}
		value |= o
		mask |= 0xff
	}
	return Range{
		kind:  KindWildcard,
		start: value,
		end:   value | ^mask,
		mask:  mask,
	}, nil
}

// parseQuad 解析严格的点分十进制 IPv4 地址。
func parseQuad(s string) (uint32, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, malformed(s, "expected 4 octets")
	}
	var v uint32
	for _, p := range parts {
		o, ok := parseOctet(p)
		if !ok {
			return 0, malformed(s, fmt.Sprintf("invalid octet %q", p))
		}
		v = v<<8 | o
	}
	return v, nil
}

// parseOctet 解析 0-255 的十进制八位段。
// 与 net/netip 一致，拒绝前导零（"0" 本身除外）、符号与空白。
func parseOctet(p string) (uint32, bool) {
	if len(p) == 0 || len(p) > 3 || !isDigits(p) {
		return 0, false
	}
	if len(p) > 1 && p[0] == '0' {
		return 0, false
	}
	var n uint32
	for i := 0; i < len(p); i++ {
		n = n*10 + uint32(p[i]-'0')
	}
	if n > 255 {
		return 0, false
	}
	return n, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func malformed(s, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrMalformedRange, s, reason)
}
