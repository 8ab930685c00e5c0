package xnet

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"
)

// AddrFromUint32 从 IPv4 的 uint32 表示创建 [netip.Addr]。
// 使用网络字节序（大端）。
func AddrFromUint32(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}

// AddrToUint32 将 IPv4 地址转换为 uint32（网络字节序）。
// IPv4-mapped IPv6 地址按 IPv4 处理；其他地址返回 (0, false)。
func AddrToUint32(addr netip.Addr) (uint32, bool) {
	if !addr.Is4() && !addr.Is4In6() {
		return 0, false
	}
	b := addr.Unmap().As4()
	return binary.BigEndian.Uint32(b[:]), true
}

// ParseAddr4 严格解析 IPv4 字面量。
//
// 接受点分十进制（"192.168.0.1"）与 IPv4-mapped IPv6（"::ffff:192.168.0.1"，
// 返回解映射后的纯 IPv4）。纯 IPv6、带 zone 的地址以及前导零八位段
// （与 [netip.ParseAddr] 一致）均返回 [ErrInvalidAddress]。
func ParseAddr4(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, s, err)
	}
	if addr.Zone() != "" || (!addr.Is4() && !addr.Is4In6()) {
		return netip.Addr{}, fmt.Errorf("%w: %q is not IPv4", ErrInvalidAddress, s)
	}
	return addr.Unmap(), nil
}

// ParseUint32 严格解析 IPv4 字面量并返回其 uint32 表示。
func ParseUint32(s string) (uint32, error) {
	addr, err := ParseAddr4(s)
	if err != nil {
		return 0, err
	}
	v, _ := AddrToUint32(addr)
	return v, nil
}
