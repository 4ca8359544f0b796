package vault

import (
	"context"
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// GetFileInfo returns the full metadata view of a path: size, mode and
// times from the filesystem, the detected MIME type for files, the
// tracked checksum, whether the content is currently cached, and the
// read count seen by this store instance.
func (s *FileStore) GetFileInfo(ctx context.Context, rel string) *Result {
	return s.run(opInfo, func() *Result {
		if !s.validator.IsSafe(rel) {
			return failure(CodeAccessDenied, "access denied: %s", rel)
		}
		abs := s.abs(rel)

		fi, err := os.Stat(abs)
		if err != nil {
			return failure(errCode(err), "stat %s: %v", rel, err)
		}

		info := FileInfo{
			Name:      fi.Name(),
			Path:      rel,
			Size:      fi.Size(),
			SizeHuman: formatBytes(fi.Size()),
			IsDir:     fi.IsDir(),
			Mode:      fi.Mode().String(),
			Modified:  fi.ModTime(),
			// Birth time is not portably available; modification time is
			// the closest stable stand-in.
			Created:   fi.ModTime(),
			Extension: extensionOf(fi.Name(), fi.IsDir()),
		}

		if !fi.IsDir() {
			if mt, err := mimetype.DetectFile(abs); err == nil {
				info.MimeType = mt.String()
			}
		}

		s.mu.Lock()
		if digest, ok := s.checksums.Get(abs); ok {
			info.Checksum = digest
		}
		cached := s.cache.Contains(abs)
		accessCount := s.access.Count(rel)
		s.mu.Unlock()

		return success(map[string]interface{}{
			"info":         info,
			"cached":       cached,
			"access_count": accessCount,
		})
	})
}

// Exists reports whether a path names anything inside the store without
// counting as a metrics operation.
func (s *FileStore) Exists(rel string) bool {
	if !s.validator.IsSafe(rel) {
		return false
	}
	_, err := os.Stat(s.abs(rel))
	return err == nil
}

// formatBytes renders a byte count in the usual binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
