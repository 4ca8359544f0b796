package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nexza/filevault/internal/logging"
)

const (
	// tempPrefix marks in-flight write files. The leading dot keeps them
	// out of listings, which skip hidden names.
	tempPrefix = ".wtmp-"

	// staleTempAge is how old an orphaned temp file must be before the
	// sweep removes it, so in-flight writes are never collected.
	staleTempAge = time.Hour

	defaultMaxFileSize  = 100 * 1024 * 1024
	defaultCacheSize    = 100
	defaultCacheTTL     = 5 * time.Minute
	defaultPersistEvery = 10

	opsLogMaxBytes = 10 * 1024 * 1024
	opsLogKeep     = 3
)

// standardDirs are created under the base directory at construction.
var standardDirs = []string{"logs", "temp", "archive", "versions", "metadata"}

// Options configures a FileStore.
type Options struct {
	BaseDir      string
	MaxFileSize  int64         // binary write ceiling; default 100 MB
	CacheSize    int           // default 100 entries
	CacheTTL     time.Duration // default 5 minutes
	PersistEvery int           // checksum persistence cadence; default 10
	Versioning   bool
	Logger       *logging.Logger
}

// FileStore exposes the sandboxed read/write/list/search/delete API over a
// single base directory. All mutating and cache-touching operations
// serialize on one mutex; metric recording happens in a deferred block so
// timings and error counts survive any failure path. One instance owns its
// base directory exclusively; instances never share state.
type FileStore struct {
	base string

	mu        sync.Mutex
	validator *PathValidator
	checksums *ChecksumStore
	versions  *VersionArchive
	cache     *ContentCache
	metrics   *OperationMetrics
	access    *accessLog

	security    *logging.SecurityLog
	opsLog      *logging.Logger
	log         *zap.Logger
	maxFileSize int64
	closed      bool
}

// New creates the store, its standard directory layout, its security and
// operations logs, and loads persisted checksums. observer may be nil.
func New(opts Options, observer Observer) (*FileStore, error) {
	if opts.BaseDir == "" {
		return nil, fmt.Errorf("base directory required")
	}
	base, err := filepath.Abs(opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	for _, d := range standardDirs {
		if err := os.MkdirAll(filepath.Join(base, d), 0o755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", d, err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDefault()
	}

	security, err := logging.NewSecurityLog(filepath.Join(base, "logs", "security.log"))
	if err != nil {
		return nil, fmt.Errorf("open security log: %w", err)
	}

	opsLog, err := logging.NewFileLogger(filepath.Join(base, "logs", "operations.log"), opsLogMaxBytes, opsLogKeep)
	if err != nil {
		security.Close()
		return nil, fmt.Errorf("open operations log: %w", err)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	s := &FileStore{
		base:        base,
		validator:   NewPathValidator(base, security, logger.Logger),
		checksums:   NewChecksumStore(filepath.Join(base, "metadata", "checksums.json"), opts.PersistEvery, security, logger.Logger),
		versions:    NewVersionArchive(filepath.Join(base, "versions"), opts.Versioning, logger.Logger),
		cache:       NewContentCache(cacheSize, cacheTTL),
		metrics:     NewOperationMetrics(observer),
		access:      newAccessLog(),
		security:    security,
		opsLog:      opsLog,
		log:         logger.Logger,
		maxFileSize: maxSize,
	}

	s.sweepTemp(filepath.Join(base, "temp"))

	s.log.Info("file store ready",
		zap.String("base", base),
		zap.Int("cache_size", cacheSize),
		zap.Duration("cache_ttl", cacheTTL),
		zap.Bool("versioning", opts.Versioning),
	)
	return s, nil
}

// Close flushes the checksum table and closes the store's log files. It
// replaces any implicit teardown: callers must invoke it before exit to
// guarantee pending checksum updates reach disk.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if err := s.checksums.Save(); err != nil {
		firstErr = fmt.Errorf("persist checksums: %w", err)
	}
	_ = s.opsLog.Sync()
	if err := s.security.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Base returns the absolute confinement root.
func (s *FileStore) Base() string {
	return s.base
}

// MetricsSnapshot reports operation counters plus cache, checksum and
// security-event gauges.
func (s *FileStore) MetricsSnapshot() *Result {
	s.mu.Lock()
	cache := map[string]interface{}{
		"entries":  s.cache.Len(),
		"capacity": s.cache.Capacity(),
		"hit_rate": s.cache.HitRate(),
	}
	checksums := s.checksums.Len()
	s.mu.Unlock()

	return success(map[string]interface{}{
		"operations":      s.metrics.Snapshot(),
		"cache":           cache,
		"checksums":       checksums,
		"security_events": s.security.Events(),
	})
}

// run wraps every public operation: it converts panics into failure
// results and records the operation metric regardless of outcome.
func (s *FileStore) run(kind string, fn func() *Result) (res *Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("operation panicked",
				zap.String("op", kind),
				zap.Any("panic", r),
			)
			res = failure(CodeOSFailure, "internal error during %s", kind)
		}
		s.metrics.Record(kind, time.Since(start), res != nil && res.Success)
	}()
	return fn()
}

// abs resolves a validated relative path. Callers must have passed
// IsSafe first.
func (s *FileStore) abs(rel string) string {
	return s.validator.Resolve(rel)
}

// rel converts an absolute path under the base back to its relative key.
func (s *FileStore) rel(abs string) string {
	r, err := filepath.Rel(s.base, abs)
	if err != nil {
		return abs
	}
	return r
}

// errCode maps an OS error to the failure taxonomy.
func errCode(err error) Code {
	switch {
	case os.IsNotExist(err):
		return CodeNotFound
	case os.IsPermission(err):
		return CodePermissionDenied
	default:
		return CodeOSFailure
	}
}

// writeAtomic writes data to path via a temp file in the same directory
// followed by a rename, so readers never observe partial content. The
// temp file is removed on any failure.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""
	return nil
}

// sweepTemp removes orphaned temp files in dir left by interrupted
// writes. Only files older than staleTempAge are collected.
func (s *FileStore) sweepTemp(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-staleTempAge)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				s.log.Debug("removed stale temp file", zap.String("file", e.Name()))
			}
		}
	}
}
