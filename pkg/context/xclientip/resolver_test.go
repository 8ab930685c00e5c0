package xclientip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	addr, ok := Static(netip.MustParseAddr("10.0.0.1")).Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", addr.String())

	addr, ok = Static(netip.MustParseAddr("::ffff:10.0.0.2")).Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", addr.String())

	_, ok = Static(netip.MustParseAddr("::1")).Resolve(context.Background())
	assert.False(t, ok)
	_, ok = Static(netip.Addr{}).Resolve(context.Background())
	assert.False(t, ok)
}

func TestLoopback(t *testing.T) {
	addr, ok := Loopback().Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1", addr.String())
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	_, ok := Context().Resolve(ctx)
	assert.False(t, ok)

	ctx = WithClientIP(ctx, netip.MustParseAddr("192.168.0.42"))
	addr, ok := Context().Resolve(ctx)
	require.True(t, ok)
	assert.Equal(t, "192.168.0.42", addr.String())

	_, ok = FromContext(WithClientIP(context.Background(), netip.MustParseAddr("2001:db8::1")))
	assert.False(t, ok)

	//nolint:staticcheck // nil context 必须安全
	_, ok = FromContext(nil)
	assert.False(t, ok)
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    []string
		want   string
	}{
		{name: "remote host port", remote: "192.168.0.1:5555", want: "192.168.0.1"},
		{name: "remote bare", remote: "192.168.0.1", want: "192.168.0.1"},
		{name: "xff last entry", remote: "10.0.0.1:80", xff: []string{"1.1.1.1, 2.2.2.2, 3.3.3.3"}, want: "3.3.3.3"},
		{name: "xff last header", remote: "10.0.0.1:80", xff: []string{"1.1.1.1", "4.4.4.4"}, want: "4.4.4.4"},
		{name: "xff last entry invalid", remote: "10.0.0.1:80", xff: []string{"1.1.1.1, garbage"}, want: "10.0.0.1"},
		{name: "xff ipv6", remote: "10.0.0.1:80", xff: []string{"2001:db8::1"}, want: "10.0.0.1"},
		{name: "no remote", remote: "", xff: []string{"1.1.1.1"}},
		{name: "remote ipv6", remote: "[2001:db8::1]:443"},
		{name: "remote garbage", remote: "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				r.Header.Add("X-Forwarded-For", v)
			}
			addr, ok := FromRequest(r)
			if tt.want == "" {
				assert.False(t, ok, "got %s", addr)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, addr.String())
		})
	}

	_, ok := FromRequest(nil)
	assert.False(t, ok)
}

func TestFromTrustedRequest(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	tests := []struct {
		name    string
		remote  string
		xff     string
		trusted []netip.Prefix
		want    string
	}{
		{name: "trusted proxy", remote: "10.0.0.1:80", xff: "1.1.1.1, 3.3.3.3", trusted: trusted, want: "3.3.3.3"},
		{name: "untrusted client spoofs header", remote: "198.51.100.1:80", xff: "3.3.3.3", trusted: trusted, want: "198.51.100.1"},
		{name: "no trusted proxies", remote: "10.0.0.1:80", xff: "3.3.3.3", want: "10.0.0.1"},
		{name: "trusted proxy invalid header", remote: "10.0.0.1:80", xff: "garbage", trusted: trusted, want: "10.0.0.1"},
		{name: "trusted proxy no header", remote: "10.0.0.1:80", trusted: trusted, want: "10.0.0.1"},
		{name: "no remote", remote: "", xff: "3.3.3.3", trusted: trusted},
		{name: "remote ipv6", remote: "[2001:db8::1]:443", xff: "3.3.3.3", trusted: trusted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			addr, ok := FromTrustedRequest(r, tt.trusted)
			if tt.want == "" {
				assert.False(t, ok, "got %s", addr)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, addr.String())
		})
	}

	_, ok := FromTrustedRequest(nil, trusted)
	assert.False(t, ok)
}

func TestHTTP(t *testing.T) {
	_, ok := HTTP().Resolve(context.Background())
	assert.False(t, ok)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "172.16.0.9:1234"
	addr, ok := HTTP().Resolve(WithRequest(context.Background(), r))
	require.True(t, ok)
	assert.Equal(t, "172.16.0.9", addr.String())
}

func TestChain(t *testing.T) {
	none := ResolverFunc(func(context.Context) (netip.Addr, bool) { return netip.Addr{}, false })
	r := Chain(nil, none, Context(), Loopback())

	addr, ok := r.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1", addr.String())

	addr, ok = r.Resolve(WithClientIP(context.Background(), netip.MustParseAddr("8.8.8.8")))
	require.True(t, ok)
	assert.Equal(t, "8.8.8.8", addr.String())

	_, ok = Chain().Resolve(context.Background())
	assert.False(t, ok)
}
