package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeHidden drops a file directly on disk, bypassing the validator, to
// simulate out-of-band content.
func writeHidden(t *testing.T, s *FileStore, rel string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(s.Base(), rel), []byte("x"), 0o644))
}

func listNames(t *testing.T, res *Result) []string {
	t.Helper()
	require.True(t, res.Success, "%v", res.Error)
	items := res.Data["entries"].([]FileInfo)
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return names
}

func TestListFilesBeforeDirsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.CreateDirectory(ctxb(), "proj/Zeta", 0).Success)
	require.True(t, s.CreateDirectory(ctxb(), "proj/alpha", 0).Success)
	require.True(t, s.WriteText(ctxb(), "proj/Beta.txt", "x", false, false).Success)
	require.True(t, s.WriteText(ctxb(), "proj/apple.txt", "x", false, false).Success)

	names := listNames(t, s.ListDirectory(ctxb(), "proj", "", true))
	assert.Equal(t, []string{"apple.txt", "Beta.txt", "alpha", "Zeta"}, names)
}

func TestListExcludesDirectoriesByDefault(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.CreateDirectory(ctxb(), "proj/sub", 0).Success)
	require.True(t, s.WriteText(ctxb(), "proj/a.txt", "x", false, false).Success)

	names := listNames(t, s.ListDirectory(ctxb(), "proj", "", false))
	assert.Equal(t, []string{"a.txt"}, names)
}

func TestListEntryMetadata(t *testing.T) {
	s := newTestStore(t)

	content := `{"k":"v"}`
	require.True(t, s.WriteText(ctxb(), "meta/report.json", content, false, false).Success)
	require.True(t, s.CreateDirectory(ctxb(), "meta/sub", 0).Success)

	res := s.ListDirectory(ctxb(), "meta", "", true)
	require.True(t, res.Success)
	items := res.Data["entries"].([]FileInfo)
	require.Len(t, items, 2)

	file := items[0]
	require.Equal(t, "report.json", file.Name)
	assert.Contains(t, file.MimeType, "json")
	assert.Equal(t, Checksum([]byte(content)), file.Checksum)
	assert.False(t, file.Created.IsZero())

	dir := items[1]
	require.Equal(t, "sub", dir.Name)
	assert.True(t, dir.IsDir)
	assert.Empty(t, dir.MimeType)
	assert.Empty(t, dir.Checksum)
}

func TestListPatternPrefilter(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"2024-01.log", "2024-02.log", "2023-12.log", "notes.txt"} {
		require.True(t, s.WriteText(ctxb(), "logs2/"+name, "x", false, false).Success)
	}

	names := listNames(t, s.ListDirectory(ctxb(), "logs2", "^2024.*", false))
	assert.Equal(t, []string{"2024-01.log", "2024-02.log"}, names)
}

func TestListInvalidPattern(t *testing.T) {
	s := newTestStore(t)
	res := s.ListDirectory(ctxb(), "", "([", false)
	assert.False(t, res.Success)
	assert.Equal(t, CodeInvalidPattern, res.Code)
}

func TestListSkipsHiddenExceptWhitelist(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.CreateDirectory(ctxb(), "d", 0).Success)
	require.True(t, s.WriteText(ctxb(), "d/visible.txt", "x", false, false).Success)
	require.True(t, s.WriteText(ctxb(), "d/.gitkeep", "", false, false).Success)

	// Hidden file dropped into the directory out of band.
	require.True(t, s.WriteBinary(ctxb(), "d/also-visible.bin", []byte("x"), false).Success)
	writeHidden(t, s, "d/.secret")

	names := listNames(t, s.ListDirectory(ctxb(), "d", "", false))
	assert.Equal(t, []string{".gitkeep", "also-visible.bin", "visible.txt"}, names)
}

func TestListOnFileFails(t *testing.T) {
	s := newTestStore(t)
	require.True(t, s.WriteText(ctxb(), "f.txt", "x", false, false).Success)

	res := s.ListDirectory(ctxb(), "f.txt", "", false)
	assert.False(t, res.Success)
	assert.Equal(t, CodeNotADirectory, res.Code)
}

func TestListMissingDirectory(t *testing.T) {
	s := newTestStore(t)
	res := s.ListDirectory(ctxb(), "nowhere", "", false)
	assert.False(t, res.Success)
	assert.Equal(t, CodeNotFound, res.Code)
}

func TestCreateDirectoryIdempotent(t *testing.T) {
	s := newTestStore(t)

	first := s.CreateDirectory(ctxb(), "x/y/z", 0)
	require.True(t, first.Success)
	assert.Equal(t, true, first.Data["created"])

	second := s.CreateDirectory(ctxb(), "x/y/z", 0)
	require.True(t, second.Success)
	assert.Equal(t, false, second.Data["created"])
}

func TestCreateDirectoryAppliesMode(t *testing.T) {
	s := newTestStore(t)

	res := s.CreateDirectory(ctxb(), "locked", 0o700)
	require.True(t, res.Success)

	info, err := os.Stat(filepath.Join(s.Base(), "locked"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	// Zero means the default.
	require.True(t, s.CreateDirectory(ctxb(), "open", 0).Success)
	info, err = os.Stat(filepath.Join(s.Base(), "open"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestCreateDirectoryOverFileFails(t *testing.T) {
	s := newTestStore(t)
	require.True(t, s.WriteText(ctxb(), "occupied", "x", false, false).Success)

	res := s.CreateDirectory(ctxb(), "occupied", 0)
	assert.False(t, res.Success)
	assert.Equal(t, CodeNotADirectory, res.Code)
}
