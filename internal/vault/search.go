package vault

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

// SearchOptions narrows a recursive filename search.
type SearchOptions struct {
	Extensions []string // allowlist, with or without leading dot
	MaxResults int      // 0 means unlimited
}

// SearchFiles walks the tree under rel and returns files whose name
// contains query, case-insensitively. Hidden directories and the store's
// own bookkeeping directories are never descended into. The walk visits
// entries concurrently, so results arrive unordered and are sorted before
// returning.
func (s *FileStore) SearchFiles(ctx context.Context, rel, query string, opts SearchOptions) *Result {
	return s.run(opSearch, func() *Result {
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

		exts := extensionSet(opts.Extensions)
		needle := strings.ToLower(query)

		// The walk callback runs from multiple goroutines.
		var mu sync.Mutex
		var matches []FileInfo
		full := false

		conf := fastwalk.Config{Follow: false}
		err = fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err != nil {
				return nil
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
			if needle != "" && !strings.Contains(strings.ToLower(name), needle) {
				return nil
			}
			if len(exts) > 0 && !exts[strings.ToLower(filepath.Ext(p))] {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if opts.MaxResults > 0 && len(matches) >= opts.MaxResults {
				full = true
				return nil
			}
			matches = append(matches, FileInfo{
				Name:      name,
				Path:      s.rel(p),
				Size:      fi.Size(),
				SizeHuman: formatBytes(fi.Size()),
				Mode:      fi.Mode().String(),
				Modified:  fi.ModTime(),
				Extension: extensionOf(name, false),
			})
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return failure(CodeOSFailure, "search cancelled: %v", ctx.Err())
			}
			return failure(CodeOSFailure, "search under %s: %v", rel, err)
		}

		sort.Slice(matches, func(i, j int) bool {
			return strings.ToLower(matches[i].Path) < strings.ToLower(matches[j].Path)
		})

		return success(map[string]interface{}{
			"path":      rel,
			"query":     query,
			"matches":   matches,
			"count":     len(matches),
			"truncated": full,
		})
	})
}

// Glob matches a gitignore-style pattern (including **) against the tree
// under rel. Matches are returned store-relative, with hidden and
// bookkeeping entries filtered out.
func (s *FileStore) Glob(ctx context.Context, rel, pattern string) *Result {
	return s.run(opGlob, func() *Result {
		if !s.validator.IsSafe(rel) {
			return failure(CodeAccessDenied, "access denied: %s", rel)
		}
		if !doublestar.ValidatePattern(pattern) {
			return failure(CodeInvalidPattern, "invalid glob pattern %q", pattern)
		}
		root := s.abs(rel)

		found, err := doublestar.Glob(os.DirFS(root), pattern)
		if err != nil {
			return failure(CodeInvalidPattern, "glob %q: %v", pattern, err)
		}

		matches := make([]string, 0, len(found))
		for _, m := range found {
			if globHidden(m) || s.isInternalDir(filepath.Join(root, m)) {
				continue
			}
			matches = append(matches, s.rel(filepath.Join(root, m)))
		}
		sort.Strings(matches)

		return success(map[string]interface{}{
			"path":    rel,
			"pattern": pattern,
			"matches": matches,
			"count":   len(matches),
		})
	})
}

// isInternalDir reports whether abs is one of the store's bookkeeping
// directories directly under the base.
func (s *FileStore) isInternalDir(abs string) bool {
	for _, d := range standardDirs {
		internal := filepath.Join(s.base, d)
		if abs == internal || strings.HasPrefix(abs, internal+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// globHidden reports whether any segment of a slash-separated match is a
// non-whitelisted hidden name.
func globHidden(match string) bool {
	for _, seg := range strings.Split(match, "/") {
		if isHidden(seg) {
			return true
		}
	}
	return false
}

func extensionSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		return nil
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[strings.ToLower(e)] = true
	}
	return set
}
