package vault

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// ListDirectory enumerates the direct children of a directory. pattern,
// when non-empty, is a regular expression matched against entry names
// before any stat work. Directories are omitted unless includeDirs is
// set. Hidden entries are skipped unless whitelisted, and entries that
// cannot be stat'd are dropped rather than failing the listing. Files
// sort before directories, names case-insensitively within each group.
// File records carry the detected MIME type and the tracked checksum
// when one is known.
func (s *FileStore) ListDirectory(ctx context.Context, rel, pattern string, includeDirs bool) *Result {
	return s.run(opList, func() *Result {
		if !s.validator.IsSafe(rel) {
			return failure(CodeAccessDenied, "access denied: %s", rel)
		}

		var re *regexp.Regexp
		if pattern != "" {
			var err error
			re, err = regexp.Compile(pattern)
			if err != nil {
				return failure(CodeInvalidPattern, "invalid pattern %q: %v", pattern, err)
			}
		}

		abs := s.abs(rel)
		info, err := os.Stat(abs)
		if err != nil {
			return failure(errCode(err), "stat %s: %v", rel, err)
		}
		if !info.IsDir() {
			return failure(CodeNotADirectory, "not a directory: %s", rel)
		}

		entries, err := os.ReadDir(abs)
		if err != nil {
			return failure(errCode(err), "list %s: %v", rel, err)
		}

		items := make([]FileInfo, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if isHidden(name) {
				continue
			}
			if e.IsDir() && !includeDirs {
				continue
			}
			if re != nil && !re.MatchString(name) {
				continue
			}
			fi, err := e.Info()
			if err != nil {
				s.log.Debug("skipping unreadable entry",
					zap.String("dir", rel),
					zap.String("name", name),
				)
				continue
			}
			item := FileInfo{
				Name:      name,
				Path:      filepath.Join(rel, name),
				Size:      fi.Size(),
				SizeHuman: formatBytes(fi.Size()),
				IsDir:     fi.IsDir(),
				Mode:      fi.Mode().String(),
				Modified:  fi.ModTime(),
				Created:   fi.ModTime(),
				Extension: extensionOf(name, fi.IsDir()),
			}
			if !fi.IsDir() {
				entryAbs := filepath.Join(abs, name)
				if mt, err := mimetype.DetectFile(entryAbs); err == nil {
					item.MimeType = mt.String()
				}
				s.mu.Lock()
				if digest, ok := s.checksums.Get(entryAbs); ok {
					item.Checksum = digest
				}
				s.mu.Unlock()
			}
			items = append(items, item)
		}

		sort.Slice(items, func(i, j int) bool {
			if items[i].IsDir != items[j].IsDir {
				return !items[i].IsDir
			}
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		})

		return success(map[string]interface{}{
			"path":    rel,
			"entries": items,
			"count":   len(items),
		})
	})
}

// CreateDirectory makes a directory and any missing parents, applying
// perm where the platform supports it (zero means 0o755). Creating an
// existing directory succeeds and reports created=false.
func (s *FileStore) CreateDirectory(ctx context.Context, rel string, perm os.FileMode) *Result {
	return s.run(opCreateDir, func() *Result {
		if !s.validator.IsSafe(rel) {
			return failure(CodeAccessDenied, "access denied: %s", rel)
		}
		if perm == 0 {
			perm = 0o755
		}
		abs := s.abs(rel)

		if info, err := os.Stat(abs); err == nil {
			if !info.IsDir() {
				return failure(CodeNotADirectory, "%s exists and is not a directory", rel)
			}
			return success(map[string]interface{}{"path": rel, "created": false})
		}

		if err := os.MkdirAll(abs, perm); err != nil {
			return failure(errCode(err), "create directory %s: %v", rel, err)
		}
		// MkdirAll honors the umask; Chmod applies the requested bits exactly.
		if err := os.Chmod(abs, perm); err != nil {
			return failure(errCode(err), "set mode on %s: %v", rel, err)
		}

		s.opsLog.Info("create_dir", zap.String("path", rel), zap.String("mode", perm.String()))
		return success(map[string]interface{}{"path": rel, "created": true, "mode": perm.String()})
	})
}

// isHidden reports whether a name is dot-prefixed and not on the small
// whitelist of conventionally kept placeholder files.
func isHidden(name string) bool {
	if !strings.HasPrefix(name, ".") {
		return false
	}
	return !hiddenAllow[name]
}

func extensionOf(name string, isDir bool) string {
	if isDir {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
