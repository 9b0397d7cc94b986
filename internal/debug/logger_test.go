package debug

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	closer, err := Init(Options{Level: "warn", Format: "json", Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	Info("hidden")
	With("component", "catalog").Warn("visible", "tables", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "visible", rec["msg"])
	assert.Equal(t, "catalog", rec["component"])
	assert.Equal(t, float64(3), rec["tables"])
	assert.False(t, Enabled())
}

func TestInitFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	closer, err := Init(Options{Level: "debug", File: "/var/log/querygate.log", Fs: fs})
	require.NoError(t, err)

	Debug("query executed", "rows", 2)
	assert.True(t, Enabled())
	require.NoError(t, closer.Close())

	data, err := afero.ReadFile(fs, "/var/log/querygate.log")
	require.NoError(t, err)
	assert.Contains(t, string(data), "query executed")
	assert.Contains(t, string(data), "rows=2")
}

func TestInitRejectsBadOptions(t *testing.T) {
	_, err := Init(Options{Level: "chatty"})
	assert.Error(t, err)

	_, err = Init(Options{Format: "xml", Output: &bytes.Buffer{}})
	assert.Error(t, err)
}
