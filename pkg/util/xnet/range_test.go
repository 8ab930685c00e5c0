package xnet

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRange_ContainsCIDRBoundaries(t *testing.T) {
	r := MustParseRange("192.168.0.0/24")

	tests := []struct {
		addr string
		want bool
	}{
		{"192.168.0.0", true},
		{"192.168.0.255", true},
		{"192.168.0.128", true},
		{"192.168.1.0", false},
		{"192.167.255.255", false},
		{"10.0.0.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestRange_ContainsPrefixZero(t *testing.T) {
	r := MustParseRange("0.0.0.0/0")
	for _, s := range []string{"0.0.0.0", "127.0.0.1", "255.255.255.255"} {
		assert.True(t, r.Contains(netip.MustParseAddr(s)), s)
	}
}

func TestRange_ContainsExplicitBoundaries(t *testing.T) {
	r := MustParseRange("192.168.0.10-192.168.0.50")

	assert.False(t, r.Contains(netip.MustParseAddr("192.168.0.9")))
	assert.True(t, r.Contains(netip.MustParseAddr("192.168.0.10")))
	assert.True(t, r.Contains(netip.MustParseAddr("192.168.0.42")))
	assert.True(t, r.Contains(netip.MustParseAddr("192.168.0.50")))
	assert.False(t, r.Contains(netip.MustParseAddr("192.168.0.51")))
}

func TestRange_ContainsExplicitAcrossOctets(t *testing.T) {
	r := MustParseRange("10.0.0.250-10.0.1.5")
	assert.Equal(t, uint64(12), r.Capacity())
	assert.True(t, r.Contains(netip.MustParseAddr("10.0.0.255")))
	assert.True(t, r.Contains(netip.MustParseAddr("10.0.1.0")))
	assert.False(t, r.Contains(netip.MustParseAddr("10.0.1.6")))
}

func TestRange_ContainsTopOfSpace(t *testing.T) {
	r := MustParseRange("255.255.255.0-255.255.255.255")
	assert.Equal(t, uint64(256), r.Capacity())
	assert.True(t, r.Contains(netip.MustParseAddr("255.255.255.255")))
	assert.False(t, r.Contains(netip.MustParseAddr("255.255.254.255")))
}

func TestRange_ContainsWildcard(t *testing.T) {
	r := MustParseRange("192.168.0.*")
	assert.True(t, r.Contains(netip.MustParseAddr("192.168.0.0")))
	assert.True(t, r.Contains(netip.MustParseAddr("192.168.0.255")))
	assert.False(t, r.Contains(netip.MustParseAddr("192.168.1.1")))
	assert.False(t, r.Contains(netip.MustParseAddr("192.168.4.42")))

	mid := MustParseRange("10.*.0.1")
	assert.True(t, mid.Contains(netip.MustParseAddr("10.0.0.1")))
	assert.True(t, mid.Contains(netip.MustParseAddr("10.200.0.1")))
	assert.False(t, mid.Contains(netip.MustParseAddr("10.200.0.2")))
	assert.False(t, mid.Contains(netip.MustParseAddr("10.200.1.1")))
	assert.False(t, mid.Contains(netip.MustParseAddr("11.0.0.1")))
}

func TestRange_ContainsExact(t *testing.T) {
	r := MustParseRange("192.168.0.42")
	assert.True(t, r.Contains(netip.MustParseAddr("192.168.0.42")))
	assert.False(t, r.Contains(netip.MustParseAddr("192.168.0.41")))
	assert.False(t, r.Contains(netip.MustParseAddr("192.168.0.43")))
}

func TestRange_ContainsIPv4Mapped(t *testing.T) {
	r := MustParseRange("192.168.0.0/24")
	assert.True(t, r.Contains(netip.MustParseAddr("::ffff:192.168.0.1")))
	assert.False(t, r.Contains(netip.MustParseAddr("::1")))
	assert.False(t, r.Contains(netip.Addr{}))
}

func TestRange_CIDRCapacityAllPrefixes(t *testing.T) {
	for bits := 0; bits <= 32; bits++ {
		r, err := ParseRange("10.0.0.0/" + itoa(bits))
		require.NoError(t, err)
		assert.Equal(t, uint64(1)<<(32-bits), r.Capacity(), "prefix /%d", bits)
		assert.Equal(t, bits, r.Bits())
	}
}

func TestRange_WildcardCapacity(t *testing.T) {
	tests := []struct {
		notation string
		want     uint64
	}{
		{"1.2.3.*", 256},
		{"1.2.*.4", 256},
		{"1.*.*.4", 65536},
		{"*.2.3.4", 256},
		{"*.*.*.4", 1 << 24},
		{"*.*.*.*", FullCapacity},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MustParseRange(tt.notation).Capacity(), tt.notation)
	}
}

func TestRange_ZeroValue(t *testing.T) {
	var r Range
	assert.False(t, r.IsValid())
	assert.Equal(t, KindInvalid, r.Kind())
	assert.Equal(t, uint64(0), r.Capacity())
	assert.False(t, r.Contains(netip.MustParseAddr("0.0.0.0")))
	assert.False(t, r.Contiguous())
	assert.Equal(t, "", r.String())
	assert.Equal(t, -1, r.Bits())
	assert.False(t, r.From().IsValid())
}

func TestRange_IPRangeAndPrefixes(t *testing.T) {
	r := MustParseRange("192.168.0.0-192.168.0.255")
	ipr, ok := r.IPRange()
	require.True(t, ok)
	p, ok := ipr.Prefix()
	require.True(t, ok)
	assert.Equal(t, "192.168.0.0/24", p.String())

	prefixes := MustParseRange("10.0.0.1-10.0.0.6").Prefixes()
	got := make([]string, len(prefixes))
	for i, p := range prefixes {
		got[i] = p.String()
	}
	assert.Equal(t, []string{"10.0.0.1/32", "10.0.0.2/31", "10.0.0.4/31", "10.0.0.6/32"}, got)

	tail := MustParseRange("10.1.*.*")
	assert.True(t, tail.Contiguous())
	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.1.0.0/16")}, tail.Prefixes())

	holey := MustParseRange("10.*.0.1")
	assert.False(t, holey.Contiguous())
	_, ok = holey.IPRange()
	assert.False(t, ok)
	assert.Nil(t, holey.Prefixes())
}

func TestRange_Comparable(t *testing.T) {
	a := MustParseRange("192.168.0.7/24")
	b := MustParseRange("192.168.0.0/24")
	assert.Equal(t, a, b)

	set := map[Range]bool{a: true}
	assert.True(t, set[b])
}

func TestKind_Text(t *testing.T) {
	for _, k := range []Kind{KindExact, KindRange, KindWildcard, KindCIDR} {
		text, err := k.MarshalText()
		require.NoError(t, err)
		var got Kind
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, k, got)
	}
	assert.Equal(t, "invalid", KindInvalid.String())

	var k Kind
	assert.ErrorIs(t, k.UnmarshalText([]byte("subnet")), ErrMalformedRange)
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}
