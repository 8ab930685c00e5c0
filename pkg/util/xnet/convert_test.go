package xnet

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddrUint32RoundTrip(t *testing.T) {
	tests := []struct {
		addr string
		want uint32
	}{
		{"0.0.0.0", 0},
		{"0.0.0.1", 1},
		{"192.168.0.1", 0xC0A80001},
		{"255.255.255.255", 0xFFFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			v, ok := AddrToUint32(netip.MustParseAddr(tt.addr))
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.addr, AddrFromUint32(v).String())
		})
	}
}

func TestAddrToUint32_NonIPv4(t *testing.T) {
	_, ok := AddrToUint32(netip.MustParseAddr("2001:db8::1"))
	assert.False(t, ok)
	_, ok = AddrToUint32(netip.Addr{})
	assert.False(t, ok)

	v, ok := AddrToUint32(netip.MustParseAddr("::ffff:10.0.0.1"))
	assert.True(t, ok)
	assert.Equal(t, uint32(0x0A000001), v)
}

func TestParseAddr4(t *testing.T) {
	addr, err := ParseAddr4("192.168.0.42")
	require.NoError(t, err)
	assert.Equal(t, "192.168.0.42", addr.String())

	addr, err = ParseAddr4(" 10.0.0.1 ")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", addr.String())

	addr, err = ParseAddr4("::ffff:192.168.0.1")
	require.NoError(t, err)
	assert.True(t, addr.Is4())
	assert.Equal(t, "192.168.0.1", addr.String())

	for _, bad := range []string{"", "localhost", "192.168.0.256", "192.168.0", "::1", "fe80::1%eth0", "192.168.000.1", "192.168.0.0/24"} {
		_, err := ParseAddr4(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestParseUint32(t *testing.T) {
	v, err := ParseUint32("10.0.0.255")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0A0000FF), v)

	_, err = ParseUint32("10.0.0")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
