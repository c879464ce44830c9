package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "recorder.log")

	l, err := New(Config{Level: "info", File: path})
	require.NoError(t, err)

	l.Info().Str("key", "room-1").Msg("Capture started")
	l.Debug().Msg("suppressed at info level")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Capture started")
	assert.Contains(t, string(data), `"key":"room-1"`)
	assert.NotContains(t, string(data), "suppressed")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recorder.log")

	l, err := New(Config{Level: "loud", File: path})
	require.NoError(t, err)

	l.Debug().Msg("below info")
	l.Info().Msg("at info")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "below info")
	assert.Contains(t, string(data), "at info")
}

func TestClose_WithoutFile(t *testing.T) {
	l, err := New(Config{Level: "info", Console: true})
	require.NoError(t, err)
	assert.NoError(t, l.Close())
}
