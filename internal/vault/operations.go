package vault

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// MoveFile renames a file within the store. Missing parent directories of
// the destination are created; the tracked checksum follows the file.
func (s *FileStore) MoveFile(ctx context.Context, srcRel, dstRel string, overwrite bool) *Result {
	return s.run(opMove, func() *Result {
		if !s.validator.IsSafe(srcRel) {
			return failure(CodeAccessDenied, "access denied: %s", srcRel)
		}
		if !s.validator.IsSafe(dstRel) {
			return failure(CodeAccessDenied, "access denied: %s", dstRel)
		}
		src := s.abs(srcRel)
		dst := s.abs(dstRel)

		info, err := os.Stat(src)
		if err != nil {
			return failure(errCode(err), "stat %s: %v", srcRel, err)
		}
		if info.IsDir() {
			return failure(CodeNotAFile, "not a file: %s", srcRel)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if _, err := os.Stat(dst); err == nil {
			if !overwrite {
				return failure(CodeWriteFailed, "destination exists: %s", dstRel)
			}
			s.versions.Snapshot(dst, dstRel)
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return failure(errCode(err), "create parent directory for %s: %v", dstRel, err)
		}
		if err := os.Rename(src, dst); err != nil {
			return failure(errCode(err), "move %s to %s: %v", srcRel, dstRel, err)
		}

		s.checksums.Rename(src, dst)
		s.cache.Invalidate(src)
		s.cache.Invalidate(dst)
		s.access.Remove(srcRel)

		s.opsLog.Info("move",
			zap.String("from", srcRel),
			zap.String("to", dstRel),
		)
		return success(map[string]interface{}{
			"from": srcRel,
			"to":   dstRel,
			"size": info.Size(),
		})
	})
}

// CopyFile duplicates a file within the store. The copy is streamed into
// a temp file next to the destination and renamed into place, and the
// source's tracked checksum is duplicated for the new path.
func (s *FileStore) CopyFile(ctx context.Context, srcRel, dstRel string, overwrite bool) *Result {
	return s.run(opCopy, func() *Result {
		if !s.validator.IsSafe(srcRel) {
			return failure(CodeAccessDenied, "access denied: %s", srcRel)
		}
		if !s.validator.IsSafe(dstRel) {
			return failure(CodeAccessDenied, "access denied: %s", dstRel)
		}
		src := s.abs(srcRel)
		dst := s.abs(dstRel)

		info, err := os.Stat(src)
		if err != nil {
			return failure(errCode(err), "stat %s: %v", srcRel, err)
		}
		if info.IsDir() {
			return failure(CodeNotAFile, "not a file: %s", srcRel)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if _, err := os.Stat(dst); err == nil {
			if !overwrite {
				return failure(CodeWriteFailed, "destination exists: %s", dstRel)
			}
			s.versions.Snapshot(dst, dstRel)
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return failure(errCode(err), "create parent directory for %s: %v", dstRel, err)
		}
		written, err := copyAtomic(src, dst, info.Mode().Perm())
		if err != nil {
			if os.IsPermission(err) {
				return failure(CodePermissionDenied, "copy %s to %s: %v", srcRel, dstRel, err)
			}
			return failure(CodeWriteFailed, "copy %s to %s: %v", srcRel, dstRel, err)
		}

		s.checksums.Copy(src, dst)
		s.cache.Invalidate(dst)

		s.opsLog.Info("copy",
			zap.String("from", srcRel),
			zap.String("to", dstRel),
			zap.Int64("size", written),
		)
		return success(map[string]interface{}{
			"from": srcRel,
			"to":   dstRel,
			"size": written,
		})
	})
}

// copyAtomic streams src into a temp file beside dst, then renames it into
// place, so a half-written copy is never observable.
func copyAtomic(src, dst string, perm os.FileMode) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), tempPrefix+"*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, in)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return 0, err
	}
	tmpName = ""
	return written, nil
}
