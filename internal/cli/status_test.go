package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/harun/ctx/internal/config"
	"github.com/harun/ctx/internal/daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCommand(t *testing.T) {
	t.Run("stopped", func(t *testing.T) {
		path := writeConfig(t, nil)

		output, err := execute(t, "", "status", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, output, "Status: stopped")
	})

	t.Run("stale pid file", func(t *testing.T) {
		var dataDir string
		path := writeConfig(t, func(cfg *config.Config) { dataDir = cfg.DataDir })
		require.NoError(t, os.WriteFile(daemon.PIDFilePath(dataDir), []byte("999999999"), 0600))

		output, err := execute(t, "", "status", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, output, "Status: stopped")
	})

	t.Run("running", func(t *testing.T) {
		var dataDir string
		path := writeConfig(t, func(cfg *config.Config) { dataDir = cfg.DataDir })
		pid := os.Getpid()
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, daemon.PIDFileName), []byte(strconv.Itoa(pid)), 0600))

		output, err := execute(t, "", "status", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, output, "Status: running")
		assert.Contains(t, output, fmt.Sprintf("PID: %d", pid))
		assert.Contains(t, output, "Uptime:")
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"seconds only", 45 * time.Second, "45s"},
		{"minutes and seconds", 2*time.Minute + 30*time.Second, "2m30s"},
		{"hours minutes seconds", 3*time.Hour + 15*time.Minute + 20*time.Second, "3h15m20s"},
		{"rounds to seconds", 1500 * time.Millisecond, "2s"},
		{"zero", 0, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatDuration(tt.duration)
			assert.Equal(t, tt.expected, result)
		})
	}
}
