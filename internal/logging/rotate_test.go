package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.log")
	w, err := newRotatingWriter(path, 1024, 3)
	require.NoError(t, err)

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestRotatingWriterRotatesAtLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.log")
	w, err := newRotatingWriter(path, 10, 3)
	require.NoError(t, err)

	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	_, err = w.Write([]byte("next"))
	require.NoError(t, err)

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(rotated))

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "next", string(current))
}

func TestRotatingWriterKeepsBoundedGenerations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.log")
	w, err := newRotatingWriter(path, 4, 2)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, err = w.Write([]byte("abcd"))
		require.NoError(t, err)
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
	_, err = os.Stat(path + ".2")
	assert.NoError(t, err)
	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err))
}

func TestRotatingWriterResumesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.log")
	require.NoError(t, os.WriteFile(path, []byte("12345678"), 0o644))

	w, err := newRotatingWriter(path, 10, 1)
	require.NoError(t, err)

	// 8 existing + 4 new exceeds the limit, so the write must rotate.
	_, err = w.Write([]byte("wxyz"))
	require.NoError(t, err)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "wxyz", string(current))
}

func TestFileLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.log")
	logger, err := NewFileLogger(path, 1024*1024, 2)
	require.NoError(t, err)

	logger.Info("write")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.True(t, strings.HasPrefix(line, "{"))
	assert.Contains(t, line, `"message":"write"`)
	assert.Contains(t, line, `"level":"info"`)
}
