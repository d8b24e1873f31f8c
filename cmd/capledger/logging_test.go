package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/capledger/capledger/internal/config"
)

func TestLogWriter(t *testing.T) {
	t.Run("rotation disabled", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "capledger.log")
		w, err := logWriter(path, config.LoggingConfig{MaxSizeMB: 0, MaxBackups: 2})
		require.NoError(t, err)
		defer w.Close()

		assert.IsType(t, &os.File{}, w)
		_, err = w.Write([]byte("line\n"))
		require.NoError(t, err)
		assert.FileExists(t, path)
	})

	t.Run("rotation configured", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "capledger.log")
		w, err := logWriter(path, config.LoggingConfig{MaxSizeMB: 1, MaxBackups: 3})
		require.NoError(t, err)
		defer w.Close()

		lj, ok := w.(*lumberjack.Logger)
		require.True(t, ok, "writer = %T", w)
		assert.Equal(t, path, lj.Filename)
		assert.Equal(t, 1, lj.MaxSize)
		assert.Equal(t, 3, lj.MaxBackups)
	})

	t.Run("rolls over past max size", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "capledger.log")
		w, err := logWriter(path, config.LoggingConfig{MaxSizeMB: 1, MaxBackups: 3})
		require.NoError(t, err)
		defer w.Close()

		chunk := []byte(strings.Repeat("x", 600<<10))
		for range 2 {
			_, err = w.Write(chunk)
			require.NoError(t, err)
		}

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2, "expected the active log and one backup")
	})
}

func TestSetupLogging(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "capledger.log")
	cfg.Logging.MaxSizeMB = 1

	closeLog, err := setupLogging(cfg, false)
	require.NoError(t, err)
	closeLog()
	assert.DirExists(t, filepath.Dir(cfg.Logging.File))
}
