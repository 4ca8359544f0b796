package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const versionTimeLayout = "20060102-150405"

// VersionArchive snapshots a file's current content before it is
// overwritten. Snapshots are a convenience, not a durability guarantee:
// failures are logged and never abort the write they precede.
type VersionArchive struct {
	dir     string
	enabled bool
	log     *zap.Logger
}

// NewVersionArchive creates an archive writing snapshots under dir.
func NewVersionArchive(dir string, enabled bool, log *zap.Logger) *VersionArchive {
	return &VersionArchive{dir: dir, enabled: enabled, log: log}
}

// Snapshot copies the current bytes of absPath into the versions area
// under a name derived from relPath and a second-granularity timestamp.
// Missing files and copy failures are tolerated.
func (a *VersionArchive) Snapshot(absPath, relPath string) {
	if !a.enabled {
		return
	}
	src, err := os.Open(absPath)
	if err != nil {
		if !os.IsNotExist(err) {
			a.log.Warn("version snapshot skipped", zap.String("path", relPath), zap.Error(err))
		}
		return
	}
	defer src.Close()

	name := fmt.Sprintf("%s.%s", sanitizeVersionName(relPath), time.Now().Format(versionTimeLayout))
	dstPath := filepath.Join(a.dir, name)
	if _, err := os.Stat(dstPath); err == nil {
		// Same path versioned twice within a second.
		dstPath = fmt.Sprintf("%s.%d", dstPath, time.Now().Nanosecond())
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		a.log.Warn("version snapshot failed", zap.String("path", relPath), zap.Error(err))
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		a.log.Warn("version snapshot failed", zap.String("path", relPath), zap.Error(err))
		os.Remove(dstPath)
	}
}

// Cleanup removes snapshots older than maxAge and returns how many were
// deleted. It runs only on request, never on a timer.
func (a *VersionArchive) Cleanup(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(a.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func sanitizeVersionName(rel string) string {
	s := strings.ReplaceAll(rel, string(filepath.Separator), "_")
	return strings.ReplaceAll(s, "/", "_")
}
