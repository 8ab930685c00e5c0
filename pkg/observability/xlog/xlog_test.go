package xlog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xguard/pkg/observability/xlog"
)

func build(t *testing.T, b *xlog.Builder) xlog.LoggerWithLevel {
	t.Helper()
	logger, cleanup, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })
	return logger
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := build(t, xlog.New().SetOutput(&buf).SetLevel(xlog.LevelDebug))
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	out := buf.String()
	for _, want := range []string{"debug message", "info message", "warn message", "error message"} {
		assert.Contains(t, out, want)
	}
}

func TestLogger_DynamicLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := build(t, xlog.New().SetOutput(&buf).SetLevelString("warn"))
	ctx := context.Background()

	assert.Equal(t, xlog.LevelWarn, logger.GetLevel())
	logger.Info(ctx, "hidden")
	assert.Empty(t, buf.String())

	child := logger.With(xlog.Component("guard"))
	logger.SetLevel(xlog.LevelInfo)
	assert.True(t, logger.Enabled(ctx, xlog.LevelInfo))
	child.Info(ctx, "visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "component=guard")
}

func TestLogger_JSONAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := build(t, xlog.New().
		SetOutput(&buf).
		SetFormat(" JSON ").
		SetAttrs(slog.String("service", "xguard")))

	logger.WithGroup("").With().Info(context.Background(), "verdict",
		xlog.Address(netip.MustParseAddr("192.168.0.42")),
		xlog.Policy(stringer("allow")),
		xlog.Range("192.168.0.0/24"),
		xlog.Fingerprint(0xab),
		xlog.Count(3),
		xlog.Err(nil),
	)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "xguard", rec["service"])
	assert.Equal(t, "192.168.0.42", rec[xlog.KeyAddress])
	assert.Equal(t, "allow", rec[xlog.KeyPolicy])
	assert.Equal(t, "192.168.0.0/24", rec[xlog.KeyRange])
	assert.Equal(t, "00000000000000ab", rec[xlog.KeyFingerprint])
	assert.InDelta(t, 3, rec[xlog.KeyCount], 0)
	assert.NotContains(t, rec, xlog.KeyError)
}

func TestLogger_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := build(t, xlog.New().SetOutput(&buf).SetFormat("json"))
	logger.WithGroup("rule").Info(context.Background(), "added", xlog.Range("10.0.0.0/8"))
	assert.Contains(t, buf.String(), `"rule":{"range":"10.0.0.0/8"}`)
}

func TestBuilder_Errors(t *testing.T) {
	_, _, err := xlog.New().SetLevelString("loud").Build()
	require.Error(t, err)

	_, _, err = xlog.New().SetFormat("xml").Build()
	require.Error(t, err)

	_, _, err = xlog.New().SetRotation(" ", xlog.RotationOptions{}).Build()
	require.ErrorIs(t, err, xlog.ErrEmptyFilename)

	_, _, err = xlog.New().SetRotation("x.log", xlog.RotationOptions{MaxSizeMB: -1}).Build()
	require.Error(t, err)

	// first error wins
	_, _, err = xlog.New().SetFormat("xml").SetLevelString("loud").Build()
	require.ErrorContains(t, err, "format")
}

func TestBuilder_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xguard.log")
	logger, cleanup, err := xlog.New().
		SetRotation(path, xlog.RotationOptions{MaxSizeMB: 1, MaxBackups: 2}).
		Build()
	require.NoError(t, err)

	logger.Info(context.Background(), "rotated", xlog.Duration(time.Second))
	require.NoError(t, cleanup())
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotated")
	assert.Contains(t, string(data), "duration=1s")
}

func TestBuilder_OnErrorAndReplaceAttr(t *testing.T) {
	var got error
	logger := build(t, xlog.New().
		SetOutput(failingWriter{}).
		SetOnError(func(err error) { got = err }))
	logger.Info(context.Background(), "lost")
	require.Error(t, got)

	var buf bytes.Buffer
	logger = build(t, xlog.New().
		SetOutput(&buf).
		SetAddSource(true).
		SetReplaceAttr(func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == xlog.KeyAddress {
				return slog.String(a.Key, "redacted")
			}
			return a
		}))
	logger.Warn(context.Background(), "hit", xlog.Address(netip.MustParseAddr("10.0.0.1")))
	assert.Contains(t, buf.String(), "address=redacted")
	assert.Contains(t, buf.String(), "xlog_test.go")
}

func TestDiscard(t *testing.T) {
	logger := xlog.Discard()
	logger.Error(context.Background(), "nothing")
	assert.NotNil(t, logger.With(xlog.Component("x")).WithGroup("g"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want xlog.Level
	}{
		{"debug", xlog.LevelDebug},
		{" INFO ", xlog.LevelInfo},
		{"warning", xlog.LevelWarn},
		{"Warn", xlog.LevelWarn},
		{"error", xlog.LevelError},
	}
	for _, tt := range tests {
		got, err := xlog.ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := xlog.ParseLevel("verbose")
	assert.Error(t, err)

	var lvl xlog.Level
	require.NoError(t, lvl.UnmarshalText([]byte("error")))
	text, err := lvl.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ERROR", string(text))
	assert.Error(t, lvl.UnmarshalText([]byte("?")))
	assert.Equal(t, "INFO+2", xlog.Level(2).String())
}

func TestErr(t *testing.T) {
	a := xlog.Err(errors.New("boom"))
	assert.Equal(t, xlog.KeyError, a.Key)
	assert.Equal(t, "boom", a.Value.String())
	assert.True(t, xlog.Err(nil).Equal(slog.Attr{}))
	assert.Equal(t, "", xlog.Address(netip.Addr{}).Value.String())
	assert.Equal(t, "reload", xlog.Operation("reload").Value.String())
	assert.Equal(t, "/etc/rules.yaml", xlog.Path("/etc/rules.yaml").Value.String())
}

type stringer string

func (s stringer) String() string { return string(s) }

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }
