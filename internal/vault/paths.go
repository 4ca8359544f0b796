package vault

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nexza/filevault/internal/logging"
)

// denyPatterns are raw-input substrings that are never legitimate in a
// store-relative path, checked case-insensitively before resolution.
var denyPatterns = []string{
	"..",        // any parent traversal
	"/etc/",     // OS-reserved
	"/proc/",    // OS-reserved
	"c:\\windows",
	".git/",     // VCS metadata
	".svn/",
	".hg/",
	".env",      // environment secrets
}

// hiddenAllow lists the dot-prefixed file names the store accepts.
var hiddenAllow = map[string]bool{
	".gitkeep": true,
	".keep":    true,
}

// PathValidator confines relative paths to a base directory. Every
// rejection is appended to the security log and logged as a warning;
// validation itself never fails, it only answers false.
type PathValidator struct {
	base     string // absolute, cleaned
	security *logging.SecurityLog
	log      *zap.Logger
}

// NewPathValidator creates a validator rooted at base (must be absolute).
func NewPathValidator(base string, security *logging.SecurityLog, log *zap.Logger) *PathValidator {
	return &PathValidator{base: filepath.Clean(base), security: security, log: log}
}

// IsSafe reports whether rel resolves to a location inside the base
// directory and matches none of the unsafe patterns. The empty path is
// safe: it names the base directory itself.
func (v *PathValidator) IsSafe(rel string) bool {
	lower := strings.ToLower(rel)
	for _, pat := range denyPatterns {
		if strings.Contains(lower, pat) {
			return v.reject(rel, "denied pattern "+pat)
		}
	}

	abs := v.Resolve(rel)
	if abs != v.base && !strings.HasPrefix(abs, v.base+string(filepath.Separator)) {
		return v.reject(rel, "escapes base directory")
	}

	if rel != "" {
		name := filepath.Base(filepath.Clean(rel))
		if name != "." && strings.HasPrefix(name, ".") && !hiddenAllow[name] {
			return v.reject(rel, "hidden file")
		}
	}

	return true
}

// Resolve joins rel onto the base directory and cleans the result. It
// performs no safety checks; callers must have passed IsSafe first.
func (v *PathValidator) Resolve(rel string) string {
	return filepath.Clean(filepath.Join(v.base, rel))
}

// Base returns the confinement root.
func (v *PathValidator) Base() string {
	return v.base
}

func (v *PathValidator) reject(rel, reason string) bool {
	v.security.Event("path_rejected",
		zap.String("path", rel),
		zap.String("reason", reason),
	)
	v.log.Warn("unsafe path rejected",
		zap.String("path", rel),
		zap.String("reason", reason),
	)
	return false
}
