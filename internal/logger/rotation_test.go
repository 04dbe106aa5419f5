package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileWriter(t *testing.T) {
	t.Run("creates directory and file", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "subdir", "ctx.log")

		w, err := newFileWriter(logFile, 10, 7, false)
		require.NoError(t, err)
		defer w.Close()

		info, err := os.Stat(logFile)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		dirInfo, err := os.Stat(filepath.Dir(logFile))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
	})

	t.Run("defaults max size", func(t *testing.T) {
		w, err := newFileWriter(filepath.Join(t.TempDir(), "ctx.log"), 0, 7, true)
		require.NoError(t, err)
		defer w.Close()

		assert.Equal(t, defaultMaxSizeMB, w.MaxSize)
		assert.Equal(t, 7, w.MaxAge)
		assert.True(t, w.Compress)
	})

	t.Run("rejects unusable path", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0600))

		_, err := newFileWriter(filepath.Join(blocker, "ctx.log"), 10, 7, false)
		assert.Error(t, err)
	})
}

func TestFileWriterAppendsAndRotates(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "ctx.log")

	w, err := newFileWriter(logFile, 1, 7, false)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("first line\n"))
	require.NoError(t, err)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "first line\n", string(content))

	require.NoError(t, w.Rotate())
	_, err = w.Write([]byte("second line\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var backups int
	for _, e := range entries {
		if e.Name() != "ctx.log" && strings.HasPrefix(e.Name(), "ctx-") {
			backups++
		}
	}
	assert.Equal(t, 1, backups)

	content, err = os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "second line\n", string(content))
}
