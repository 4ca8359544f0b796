package vault

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexza/filevault/internal/logging"
)

func newTestValidator(t *testing.T) (*PathValidator, *logging.SecurityLog) {
	t.Helper()
	dir := t.TempDir()
	security, err := logging.NewSecurityLog(filepath.Join(dir, "security.log"))
	require.NoError(t, err)
	t.Cleanup(func() { security.Close() })
	return NewPathValidator(dir, security, logging.NewNop().Logger), security
}

func TestIsSafeRejectsTraversal(t *testing.T) {
	v, security := newTestValidator(t)

	unsafe := []string{
		"../outside.txt",
		"a/../../b",
		"..",
		"docs/../../etc/passwd",
		"/etc/passwd",
		"nested//proc/self",
		"C:\\Windows\\system32",
		".git/config",
		"project/.git/HEAD",
		"secrets/.env",
		".hidden",
		"dir/.hidden.txt",
	}
	for _, p := range unsafe {
		assert.False(t, v.IsSafe(p), "expected rejection: %q", p)
	}

	assert.Equal(t, int64(len(unsafe)), security.Events())
}

func TestIsSafeAcceptsNormalPaths(t *testing.T) {
	v, _ := newTestValidator(t)

	safe := []string{
		"",
		"notes.txt",
		"a/b/c.txt",
		"deep/nested/dir",
		"docs/.gitkeep",
		"docs/.keep",
		"file.with.dots.txt",
	}
	for _, p := range safe {
		assert.True(t, v.IsSafe(p), "expected acceptance: %q", p)
	}
}

func TestIsSafeTreatsRootedPathsAsRelative(t *testing.T) {
	// A leading slash does not escape: the path is joined under the base.
	v, _ := newTestValidator(t)

	assert.True(t, v.IsSafe("/opt/file.txt"))
	assert.Equal(t, filepath.Join(v.Base(), "opt", "file.txt"), v.Resolve("/opt/file.txt"))
}

func TestResolveJoinsUnderBase(t *testing.T) {
	v, _ := newTestValidator(t)

	got := v.Resolve("a/b.txt")
	assert.Equal(t, filepath.Join(v.Base(), "a", "b.txt"), got)
	assert.Equal(t, v.Base(), v.Resolve(""))
}
