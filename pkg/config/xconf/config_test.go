package xconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xguard/pkg/security/xfirewall"
)

func TestFile_Build(t *testing.T) {
	f, err := LoadBytes([]byte(testYAMLContent), FormatYAML)
	require.NoError(t, err)

	e, err := f.Build()
	require.NoError(t, err)
	assert.Equal(t, xfirewall.Allow, e.Default())
	assert.Equal(t, xfirewall.EagerSort, e.SortMode())
	assert.Equal(t, 6, e.Len())

	for addr, allowed := range map[string]bool{
		"192.168.0.0":   true,
		"192.168.0.5":   false,
		"192.168.0.42":  true,
		"192.168.0.70":  false,
		"192.168.0.200": true,
		"192.168.1.1":   false,
		"8.8.8.8":       true,
	} {
		v, err := e.Validate(addr)
		require.NoError(t, err)
		assert.Equal(t, allowed, v.Allowed, addr)
	}
}

func TestFile_BuildFileSettingsWin(t *testing.T) {
	f := &File{Default: "allow", Sort: "deferred"}
	e, err := f.Build(xfirewall.WithDefault(xfirewall.Forbid), xfirewall.WithSortMode(xfirewall.EagerSort))
	require.NoError(t, err)
	assert.Equal(t, xfirewall.Allow, e.Default())
	assert.Equal(t, xfirewall.DeferredSort, e.SortMode())
}

func TestFile_BuildOptionsFillOmittedSettings(t *testing.T) {
	f := &File{Allow: []string{"10.0.0.0/8"}}
	e, err := f.Build(xfirewall.WithDefault(xfirewall.Allow), xfirewall.WithSortMode(xfirewall.EagerSort))
	require.NoError(t, err)
	assert.Equal(t, xfirewall.Allow, e.Default())
	assert.Equal(t, xfirewall.EagerSort, e.SortMode())

	v, err := e.Validate("192.168.1.1")
	require.NoError(t, err)
	assert.True(t, v.Allowed)

	e, err = (&File{Default: "  ", Sort: ""}).Build()
	require.NoError(t, err)
	assert.Equal(t, xfirewall.Forbid, e.Default())
	assert.Equal(t, xfirewall.DeferredSort, e.SortMode())
}

func TestFile_BuildInvalid(t *testing.T) {
	_, err := (&File{Default: "nope"}).Build()
	require.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = (&File{Sort: "nope"}).Build()
	require.ErrorIs(t, err, ErrInvalidSortMode)

	_, err = (&File{Allow: []string{"x"}}).Build()
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = (&File{Forbid: []string{"x"}}).Build()
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = (&File{Rules: []RuleEntry{{Range: "10.0.0.1", Policy: ""}}}).Build()
	require.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = (&File{Rules: []RuleEntry{{Range: "", Policy: "allow"}}}).Build()
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestFile_ApplyKeepsDefault(t *testing.T) {
	e := xfirewall.New(xfirewall.WithDefault(xfirewall.Allow))
	f := &File{Default: "forbid", Forbid: []string{"10.0.0.0/8"}}
	require.NoError(t, f.Apply(e))
	assert.Equal(t, xfirewall.Allow, e.Default())
	assert.Equal(t, 2, e.Len())

	err := (&File{Allow: []string{"10.0.0.1", "bad"}}).Apply(e)
	require.ErrorIs(t, err, xfirewall.ErrMalformedRange)
	assert.Equal(t, 3, e.Len())
}

func TestFile_Fingerprint(t *testing.T) {
	yamlFile, err := LoadBytes([]byte(testYAMLContent), FormatYAML)
	require.NoError(t, err)
	jsonFile, err := LoadBytes([]byte(testJSONContent), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, yamlFile.Fingerprint(), jsonFile.Fingerprint())

	equivalent := &File{
		Default: " ALLOW ",
		Sort:    "immediate",
		Allow:   []string{"192.168.0.7/24"},
		Forbid:  []string{"192.168.0.0/16", " 192.168.0.10 - 192.168.0.80 "},
		Rules: []RuleEntry{
			{Range: "192.168.0.42", Policy: "white"},
			{Range: "192.168.0.5", Policy: "forbid"},
		},
	}
	assert.Equal(t, yamlFile.Fingerprint(), equivalent.Fingerprint())

	changed := *equivalent
	changed.Rules = append([]RuleEntry(nil), equivalent.Rules...)
	changed.Rules[1].Policy = "allow"
	assert.NotEqual(t, yamlFile.Fingerprint(), changed.Fingerprint())

	moved := &File{Default: "allow", Sort: "eager", Forbid: []string{"192.168.0.0/24"}}
	swapped := &File{Default: "allow", Sort: "eager", Allow: []string{"192.168.0.0/24"}}
	assert.NotEqual(t, moved.Fingerprint(), swapped.Fingerprint())

	assert.Equal(t, (&File{}).Fingerprint(), (&File{Default: "forbid", Sort: "deferred"}).Fingerprint())
}
