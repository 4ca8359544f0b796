package vault

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"go.uber.org/zap"
)

// ReadText reads a UTF-8 file. With useCache, a fresh enough cached copy
// is returned without touching disk; otherwise the content is read,
// integrity-verified (log-only) and cached.
func (s *FileStore) ReadText(ctx context.Context, rel string, useCache bool) *Result {
	return s.run(opRead, func() *Result {
		if !s.validator.IsSafe(rel) {
			return failure(CodeAccessDenied, "access denied: %s", rel)
		}
		abs := s.abs(rel)

		// gen pins the cache generation before the unlocked disk read. If a
		// write invalidates the path in between, the Put below is skipped so
		// pre-write content never re-enters the cache.
		var gen uint64
		if useCache {
			s.mu.Lock()
			if content, ok := s.cache.Get(abs); ok {
				s.access.RecordRead(rel)
				s.mu.Unlock()
				return success(map[string]interface{}{
					"path":    rel,
					"content": content,
					"size":    len(content),
					"cached":  true,
				})
			}
			gen = s.cache.Generation(abs)
			s.mu.Unlock()
		}

		info, err := os.Stat(abs)
		if err != nil {
			return failure(errCode(err), "stat %s: %v", rel, err)
		}
		if info.IsDir() {
			return failure(CodeNotAFile, "not a file: %s", rel)
		}

		raw, err := os.ReadFile(abs)
		if err != nil {
			return failure(errCode(err), "read %s: %v", rel, err)
		}

		content, fail := s.decodeText(rel, raw)
		if fail != nil {
			return fail
		}

		s.mu.Lock()
		verified := s.checksums.Verify(abs, raw)
		if useCache && gen == s.cache.Generation(abs) {
			s.cache.Put(abs, content)
		}
		s.access.RecordRead(rel)
		s.mu.Unlock()

		data := map[string]interface{}{
			"path":    rel,
			"content": content,
			"size":    len(raw),
			"cached":  false,
		}
		if !verified {
			data["integrity_warning"] = true
		}
		return success(data)
	})
}

// WriteText writes (or appends) UTF-8 content. An existing file is
// snapshotted first when backup is set. The write goes through a temp
// file in the target directory followed by an atomic rename; the temp
// file never survives a failure.
func (s *FileStore) WriteText(ctx context.Context, rel, content string, append, backup bool) *Result {
	return s.run(opWrite, func() *Result {
		if !s.validator.IsSafe(rel) {
			return failure(CodeAccessDenied, "access denied: %s", rel)
		}
		abs := s.abs(rel)
		dir := filepath.Dir(abs)

		s.mu.Lock()
		defer s.mu.Unlock()

		if backup {
			s.versions.Snapshot(abs, rel)
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return failure(errCode(err), "create parent directory for %s: %v", rel, err)
		}

		data := []byte(content)
		if append {
			existing, err := os.ReadFile(abs)
			if err != nil && !os.IsNotExist(err) {
				return failure(errCode(err), "read existing %s: %v", rel, err)
			}
			data = bytes.Join([][]byte{existing, []byte(content)}, nil)
		}

		if err := writeAtomic(abs, data, 0o644); err != nil {
			if os.IsPermission(err) {
				return failure(CodePermissionDenied, "write %s: %v", rel, err)
			}
			return failure(CodeWriteFailed, "write %s: %v", rel, err)
		}

		s.checksums.Update(abs, data)
		s.cache.Invalidate(abs)
		s.sweepTemp(dir)

		s.opsLog.Info("write",
			zap.String("path", rel),
			zap.Int("size", len(data)),
			zap.Bool("append", append),
			zap.Bool("backup", backup),
		)
		return success(map[string]interface{}{
			"path":     rel,
			"size":     len(data),
			"appended": append,
			"checksum": Checksum(data),
		})
	})
}

// WriteBinary writes raw bytes. Payloads over the configured ceiling are
// rejected before any disk activity.
func (s *FileStore) WriteBinary(ctx context.Context, rel string, data []byte, backup bool) *Result {
	return s.run(opWriteBinary, func() *Result {
		if !s.validator.IsSafe(rel) {
			return failure(CodeAccessDenied, "access denied: %s", rel)
		}
		if int64(len(data)) > s.maxFileSize {
			return failure(CodeSizeExceeded, "payload of %d bytes exceeds %d byte limit", len(data), s.maxFileSize)
		}
		abs := s.abs(rel)
		dir := filepath.Dir(abs)

		s.mu.Lock()
		defer s.mu.Unlock()

		if backup {
			s.versions.Snapshot(abs, rel)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return failure(errCode(err), "create parent directory for %s: %v", rel, err)
		}
		if err := writeAtomic(abs, data, 0o644); err != nil {
			if os.IsPermission(err) {
				return failure(CodePermissionDenied, "write %s: %v", rel, err)
			}
			return failure(CodeWriteFailed, "write %s: %v", rel, err)
		}

		s.checksums.Update(abs, data)
		s.cache.Invalidate(abs)
		s.sweepTemp(dir)

		s.opsLog.Info("write_binary", zap.String("path", rel), zap.Int("size", len(data)))
		return success(map[string]interface{}{
			"path":     rel,
			"size":     len(data),
			"checksum": Checksum(data),
		})
	})
}

// ReadBinary reads raw bytes. Binary reads are never cached; the cache is
// text-oriented by design.
func (s *FileStore) ReadBinary(ctx context.Context, rel string) *Result {
	return s.run(opReadBinary, func() *Result {
		if !s.validator.IsSafe(rel) {
			return failure(CodeAccessDenied, "access denied: %s", rel)
		}
		abs := s.abs(rel)

		info, err := os.Stat(abs)
		if err != nil {
			return failure(errCode(err), "stat %s: %v", rel, err)
		}
		if info.IsDir() {
			return failure(CodeNotAFile, "not a file: %s", rel)
		}

		data, err := os.ReadFile(abs)
		if err != nil {
			return failure(errCode(err), "read %s: %v", rel, err)
		}

		s.mu.Lock()
		verified := s.checksums.Verify(abs, data)
		s.access.RecordRead(rel)
		s.mu.Unlock()

		out := map[string]interface{}{
			"path": rel,
			"data": data,
			"size": len(data),
		}
		if !verified {
			out["integrity_warning"] = true
		}
		return success(out)
	})
}

// DeleteFile removes a file. With archive, the file is moved into the
// archive area under a timestamp-suffixed name (soft delete); otherwise
// it is removed permanently. Cache and checksum entries are always purged.
func (s *FileStore) DeleteFile(ctx context.Context, rel string, archive bool) *Result {
	return s.run(opDelete, func() *Result {
		if !s.validator.IsSafe(rel) {
			return failure(CodeAccessDenied, "access denied: %s", rel)
		}
		abs := s.abs(rel)

		info, err := os.Stat(abs)
		if err != nil {
			return failure(errCode(err), "stat %s: %v", rel, err)
		}
		if info.IsDir() {
			return failure(CodeNotAFile, "not a file: %s", rel)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		var archivedAs string
		if archive {
			name := fmt.Sprintf("%s.%s", filepath.Base(abs), time.Now().Format(versionTimeLayout))
			dest := filepath.Join(s.base, "archive", name)
			if _, err := os.Stat(dest); err == nil {
				dest = fmt.Sprintf("%s.%d", dest, time.Now().Nanosecond())
			}
			if err := os.Rename(abs, dest); err != nil {
				return failure(errCode(err), "archive %s: %v", rel, err)
			}
			archivedAs = s.rel(dest)
		} else if err := os.Remove(abs); err != nil {
			return failure(errCode(err), "delete %s: %v", rel, err)
		}

		s.cache.Invalidate(abs)
		s.checksums.Remove(abs)
		s.access.Remove(rel)

		s.opsLog.Info("delete",
			zap.String("path", rel),
			zap.Bool("archived", archive),
			zap.String("archived_as", archivedAs),
		)
		data := map[string]interface{}{"path": rel, "archived": archive}
		if archivedAs != "" {
			data["archived_as"] = archivedAs
		}
		return success(data)
	})
}

// decodeText converts raw bytes to a UTF-8 string. Content with NUL bytes
// is refused as binary; other invalid sequences are replaced, with the
// detected charset logged for the operator.
func (s *FileStore) decodeText(rel string, raw []byte) (string, *Result) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	if bytes.IndexByte(raw, 0) >= 0 {
		return "", failure(CodeDecodeError, "%s is not a text file", rel)
	}
	charsetName := "unknown"
	if best, err := chardet.NewTextDetector().DetectBest(raw); err == nil {
		charsetName = best.Charset
	}
	s.log.Warn("non-UTF-8 text decoded with replacement",
		zap.String("path", rel),
		zap.String("charset", charsetName),
	)
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), nil
}
