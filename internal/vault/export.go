package vault

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// ExportTarGz packs the tree under rel into a gzip-compressed tarball
// placed in the store's temp directory and returns its store-relative
// path. Hidden entries, bookkeeping directories and in-flight temp files
// stay out of the archive.
func (s *FileStore) ExportTarGz(ctx context.Context, rel string) *Result {
	return s.run(opExport, func() *Result {
		if !s.validator.IsSafe(rel) {
			return failure(CodeAccessDenied, "access denied: %s", rel)
		}
		root := s.abs(rel)

		info, err := os.Stat(root)
		if err != nil {
			return failure(errCode(err), "stat %s: %v", rel, err)
		}
		if !info.IsDir() {
			return failure(CodeNotADirectory, "not a directory: %s", rel)
		}

		name := "export"
		if rel != "" {
			name = strings.ReplaceAll(filepath.Clean(rel), string(filepath.Separator), "_")
		}
		outName := fmt.Sprintf("%s.%s.tar.gz", name, time.Now().Format(versionTimeLayout))
		outPath := filepath.Join(s.base, "temp", outName)

		files, bytesIn, err := s.writeTarGz(ctx, root, outPath)
		if err != nil {
			os.Remove(outPath)
			if ctx.Err() != nil {
				return failure(CodeOSFailure, "export cancelled: %v", ctx.Err())
			}
			return failure(CodeWriteFailed, "export %s: %v", rel, err)
		}

		outInfo, err := os.Stat(outPath)
		if err != nil {
			return failure(errCode(err), "stat export: %v", err)
		}

		s.opsLog.Info("export",
			zap.String("path", rel),
			zap.String("archive", outName),
			zap.Int("files", files),
			zap.Int64("bytes_in", bytesIn),
			zap.Int64("bytes_out", outInfo.Size()),
		)
		return success(map[string]interface{}{
			"path":       rel,
			"archive":    s.rel(outPath),
			"files":      files,
			"size":       outInfo.Size(),
			"size_human": formatBytes(outInfo.Size()),
		})
	})
}

func (s *FileStore) writeTarGz(ctx context.Context, root, outPath string) (int, int64, error) {
	out, err := os.Create(outPath)
	if err != nil {
		return 0, 0, err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	files := 0
	var total int64
	err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != root && (isHidden(name) || s.isInternalDir(p)) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(name) || strings.HasPrefix(name, tempPrefix) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		relName, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(relName)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		n, err := io.Copy(tw, f)
		f.Close()
		if err != nil {
			return err
		}
		files++
		total += n
		return nil
	})
	if err != nil {
		tw.Close()
		gz.Close()
		return 0, 0, err
	}
	if err := tw.Close(); err != nil {
		return 0, 0, err
	}
	if err := gz.Close(); err != nil {
		return 0, 0, err
	}
	return files, total, out.Sync()
}

// CleanupArchive removes soft-deleted files older than maxAge from the
// archive directory, and also prunes version snapshots and stale temp
// files on the same pass.
func (s *FileStore) CleanupArchive(ctx context.Context, maxAge time.Duration) *Result {
	return s.run(opCleanup, func() *Result {
		archived, err := removeOlderThan(filepath.Join(s.base, "archive"), maxAge)
		if err != nil {
			return failure(errCode(err), "cleanup archive: %v", err)
		}

		s.mu.Lock()
		versions, verr := s.versions.Cleanup(maxAge)
		s.sweepTemp(filepath.Join(s.base, "temp"))
		s.mu.Unlock()
		if verr != nil {
			return failure(errCode(verr), "cleanup versions: %v", verr)
		}

		s.opsLog.Info("cleanup",
			zap.Int("archived_removed", archived),
			zap.Int("versions_removed", versions),
			zap.Duration("max_age", maxAge),
		)
		return success(map[string]interface{}{
			"archived_removed": archived,
			"versions_removed": versions,
		})
	})
}

// removeOlderThan deletes regular files in dir whose modification time is
// older than maxAge. It does not recurse.
func removeOlderThan(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
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
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
