package logger

import (
	"encoding/json"
	"hurlfix/pkg/models"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hurlfix.log")
	l, err := NewLogger(&models.LogConfig{ToFile: true, FilePath: path, Level: "debug"})
	require.NoError(t, err)

	l.WithComponent("engine").Debug().Str("path", "/error-assert-bytearray").Msg("served")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &line))
	assert.Equal(t, "served", line["message"])
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, "hurlfix", line["service"])
	assert.Equal(t, "/error-assert-bytearray", line["path"])
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hurlfix.log")
	l, err := NewLogger(&models.LogConfig{ToFile: true, FilePath: path, Level: "warn"})
	require.NoError(t, err)

	l.Info().Msg("dropped")
	l.Warn().Msg("kept")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(&models.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNop_Close(t *testing.T) {
	l := Nop()
	l.Info().Msg("nothing")
	assert.NoError(t, l.Close())
}
