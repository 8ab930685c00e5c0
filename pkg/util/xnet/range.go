package xnet

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"go4.org/netipx"
)

// Kind 表示范围所使用的表示法。
type Kind uint8

const (
	// KindInvalid 零值，表示未解析的范围。
	KindInvalid Kind = iota
	// KindExact 单地址，如 "192.168.0.42"。
	KindExact
	// KindRange 显式范围，如 "192.168.0.10-192.168.0.50"。
	KindRange
	// KindWildcard 通配符，如 "192.168.0.*"。
	KindWildcard
	// KindCIDR 前缀表示法，如 "192.168.0.0/24"。
	KindCIDR
)

// String 返回表示法名称。
func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindRange:
		return "range"
	case KindWildcard:
		return "wildcard"
	case KindCIDR:
		return "cidr"
	default:
		return "invalid"
	}
}

// MarshalText 实现 encoding.TextMarshaler。
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (k *Kind) UnmarshalText(data []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(data))) {
	case "exact":
		*k = KindExact
	case "range":
		*k = KindRange
	case "wildcard":
		*k = KindWildcard
	case "cidr":
		*k = KindCIDR
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedRange, data)
	}
	return nil
}

// FullCapacity 是 IPv4 全地址空间的地址数（2^32）。
const FullCapacity uint64 = 1 << 32

// Range 是一条已解析的 IPv4 范围。
//
// Range 是值类型，可比较，可做 map key。零值无效（Kind 为 [KindInvalid]），
// 不包含任何地址，容量为 0。通过 [ParseRange] 创建。
type Range struct {
	kind Kind
	// start/end 为覆盖区间的上下界（含）。
	// KindCIDR 与 KindWildcard 的 start 同时是掩码后的固定位取值。
	start uint32
	end   uint32
	// mask 中置 1 的位必须与 start 完全一致（KindCIDR/KindWildcard/KindExact）。
	mask uint32
	bits uint8 // 仅 KindCIDR
}

// Kind 返回表示法。
func (r Range) Kind() Kind { return r.kind }

// IsValid 报告 r 是否为已解析的有效范围。
func (r Range) IsValid() bool { return r.kind != KindInvalid }

// Bits 返回 CIDR 前缀长度；非 CIDR 返回 -1。
func (r Range) Bits() int {
	if r.kind != KindCIDR {
		return -1
	}
	return int(r.bits)
}

// From 返回范围覆盖的最小地址。
func (r Range) From() netip.Addr {
	if !r.IsValid() {
		return netip.Addr{}
	}
	return AddrFromUint32(r.start)
}

// To 返回范围覆盖的最大地址。
// 非尾部通配符（如 "10.*.0.1"）的 From..To 之间并非全部属于该范围。
func (r Range) To() netip.Addr {
	if !r.IsValid() {
		return netip.Addr{}
	}
	return AddrFromUint32(r.end)
}

// ContainsUint32 报告 uint32 形式的 IPv4 地址 v 是否落在范围内。
func (r Range) ContainsUint32(v uint32) bool {
	switch r.kind {
	case KindCIDR, KindWildcard, KindExact:
		return v&r.mask == r.start
	case KindRange:
		return r.start <= v && v <= r.end
	default:
		return false
	}
}

// Contains 报告 addr 是否落在范围内。
// IPv4-mapped IPv6 地址按 IPv4 处理，其他非 IPv4 地址返回 false。
func (r Range) Contains(addr netip.Addr) bool {
	v, ok := AddrToUint32(addr)
	if !ok {
		return false
	}
	return r.ContainsUint32(v)
}

// Capacity 返回范围包含的地址数量。
//
//   - CIDR: 2^(32-prefix)，prefix 为 0 时为 2^32
//   - 显式范围: end-start+1
//   - 通配符: 256^k，k 为 "*" 八位段数量
//   - 单地址: 1
//
// 无效范围返回 0。
func (r Range) Capacity() uint64 {
	switch r.kind {
	case KindCIDR:
		return 1 << (32 - uint64(r.bits))
	case KindRange:
		return uint64(r.end-r.start) + 1
	case KindWildcard:
		return 1 << (8 * uint64(r.wildcards()))
	case KindExact:
		return 1
	default:
		return 0
	}
}

// wildcards 返回 "*" 八位段数量。
func (r Range) wildcards() int {
	n := 0
	for shift := 24; shift >= 0; shift -= 8 {
		if (r.mask>>shift)&0xff == 0 {
			n++
		}
	}
	return n
}

// Contiguous 报告范围是否为连续地址区间。
// 只有非尾部的通配符（如 "10.*.0.1"）不连续。
func (r Range) Contiguous() bool {
	if !r.IsValid() {
		return false
	}
	if r.kind != KindWildcard {
		return true
	}
	inverted := ^r.mask
	return inverted&(inverted+1) == 0
}

// IPRange 返回对应的 [netipx.IPRange]。
// 范围无效或不连续时返回 (零值, false)。
func (r Range) IPRange() (netipx.IPRange, bool) {
	if !r.Contiguous() {
		return netipx.IPRange{}, false
	}
	return netipx.IPRangeFrom(r.From(), r.To()), true
}

// Prefixes 将连续范围分解为最少数量的 CIDR 前缀。
// 不连续或无效范围返回 nil。
func (r Range) Prefixes() []netip.Prefix {
	ipr, ok := r.IPRange()
	if !ok {
		return nil
	}
	return ipr.Prefixes()
}

// String 返回范围的规范表示法。
// CIDR 输出掩码后的网络地址（"192.168.0.7/24" → "192.168.0.0/24"）。
func (r Range) String() string {
	switch r.kind {
	case KindExact:
		return AddrFromUint32(r.start).String()
	case KindRange:
		return AddrFromUint32(r.start).String() + "-" + AddrFromUint32(r.end).String()
	case KindCIDR:
		return AddrFromUint32(r.start).String() + "/" + strconv.Itoa(int(r.bits))
	case KindWildcard:
		var b strings.Builder
		b.Grow(15)
		for shift := 24; shift >= 0; shift -= 8 {
			if shift != 24 {
				b.WriteByte('.')
			}
			if (r.mask>>shift)&0xff == 0 {
				b.WriteByte('*')
				continue
			}
			b.WriteString(strconv.Itoa(int((r.start >> shift) & 0xff)))
		}
		return b.String()
	default:
		return ""
	}
}
