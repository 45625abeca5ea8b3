package log

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNewWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Options{Dir: dir, Name: "test.slog", Level: "debug"})
	require.NoError(t, err)

	l.Info("mode switch", slog.String("mode", "MAG_NAV"))
	require.NoError(t, l.Close())

	b, err := os.ReadFile(l.LogFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `"msg":"mode switch"`))
	assert.True(t, strings.Contains(string(b), `"mode":"MAG_NAV"`))
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.NotPanics(t, func() { l.Info("dropped") })
}
