package vault

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tarEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	entries := map[string]string{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[hdr.Name] = string(content)
	}
	return entries
}

func TestExportTarGzRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.WriteText(ctxb(), "proj/a.txt", "alpha", false, false).Success)
	require.True(t, s.WriteText(ctxb(), "proj/sub/b.txt", "beta", false, false).Success)

	res := s.ExportTarGz(ctxb(), "proj")
	require.True(t, res.Success, "%v", res.Error)

	archiveRel := res.Data["archive"].(string)
	assert.Equal(t, "temp", filepath.Dir(archiveRel))
	assert.Equal(t, 2, res.Data["files"])

	entries := tarEntries(t, filepath.Join(s.Base(), archiveRel))
	assert.Equal(t, map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "beta",
	}, entries)
}

func TestExportWholeBaseSkipsBookkeeping(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.WriteText(ctxb(), "keep.txt", "k", false, true).Success)
	require.True(t, s.WriteText(ctxb(), "keep.txt", "k2", false, true).Success) // leaves a version snapshot
	require.True(t, s.DeleteFile(ctxb(), "keep.txt", true).Success)             // leaves an archive entry
	require.True(t, s.WriteText(ctxb(), "data.txt", "d", false, false).Success)

	res := s.ExportTarGz(ctxb(), "")
	require.True(t, res.Success)

	entries := tarEntries(t, filepath.Join(s.Base(), res.Data["archive"].(string)))
	assert.Equal(t, map[string]string{"data.txt": "d"}, entries)
}

func TestExportOfFileFails(t *testing.T) {
	s := newTestStore(t)
	require.True(t, s.WriteText(ctxb(), "f.txt", "x", false, false).Success)

	res := s.ExportTarGz(ctxb(), "f.txt")
	assert.False(t, res.Success)
	assert.Equal(t, CodeNotADirectory, res.Code)
}

func TestCleanupArchiveRemovesOnlyOldEntries(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.WriteText(ctxb(), "old.txt", "o", false, false).Success)
	require.True(t, s.DeleteFile(ctxb(), "old.txt", true).Success)
	require.True(t, s.WriteText(ctxb(), "new.txt", "n", false, false).Success)
	require.True(t, s.DeleteFile(ctxb(), "new.txt", true).Success)

	archiveDir := filepath.Join(s.Base(), "archive")
	entries, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Age one entry past the retention window.
	aged := filepath.Join(archiveDir, entries[0].Name())
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(aged, old, old))

	res := s.CleanupArchive(ctxb(), 24*time.Hour)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Data["archived_removed"])

	remaining, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestCleanupPrunesVersionSnapshots(t *testing.T) {
	s := newTestStore(t)

	require.True(t, s.WriteText(ctxb(), "v.txt", "one", false, true).Success)
	require.True(t, s.WriteText(ctxb(), "v.txt", "two", false, true).Success)

	versionsDir := filepath.Join(s.Base(), "versions")
	entries, err := os.ReadDir(versionsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	aged := filepath.Join(versionsDir, entries[0].Name())
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(aged, old, old))

	res := s.CleanupArchive(ctxb(), 24*time.Hour)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Data["versions_removed"])
}
