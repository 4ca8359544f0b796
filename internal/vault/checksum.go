package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/nexza/filevault/internal/logging"
)

// Checksum returns the SHA-256 hex digest of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ChecksumStore maps absolute paths to the hex digest of their last known
// content. Updates are persisted in batches (every persistEvery updates)
// and on Save; a corrupt or missing metadata file degrades to an empty
// mapping. Not safe for concurrent use on its own: the owning FileStore's
// mutex guards all access.
type ChecksumStore struct {
	path         string // metadata/checksums.json
	sums         map[string]string
	dirty        int
	persistEvery int
	security     *logging.SecurityLog
	log          *zap.Logger
}

// NewChecksumStore loads (or initializes) the digest table persisted at path.
func NewChecksumStore(path string, persistEvery int, security *logging.SecurityLog, log *zap.Logger) *ChecksumStore {
	if persistEvery <= 0 {
		persistEvery = 10
	}
	c := &ChecksumStore{
		path:         path,
		sums:         make(map[string]string),
		persistEvery: persistEvery,
		security:     security,
		log:          log,
	}
	c.load()
	return c
}

// Verify compares the digest of content against the stored entry for path.
// A mismatch is a detection event, not a prevention one: it is logged to
// the security log and Verify answers false, but reads proceed. Paths with
// no stored entry verify trivially.
func (c *ChecksumStore) Verify(path string, content []byte) bool {
	stored, ok := c.sums[path]
	if !ok {
		return true
	}
	actual := Checksum(content)
	if actual == stored {
		return true
	}
	c.security.Event("integrity_violation",
		zap.String("path", path),
		zap.String("expected", stored),
		zap.String("actual", actual),
	)
	c.log.Warn("checksum mismatch on read", zap.String("path", path))
	return false
}

// Update stores the digest for path, persisting the full table every
// persistEvery updates to bound serialization I/O.
func (c *ChecksumStore) Update(path string, content []byte) {
	c.sums[path] = Checksum(content)
	c.dirty++
	if c.dirty >= c.persistEvery {
		if err := c.Save(); err != nil {
			c.log.Warn("checksum persistence failed", zap.Error(err))
		}
	}
}

// Get returns the stored digest for path.
func (c *ChecksumStore) Get(path string) (string, bool) {
	d, ok := c.sums[path]
	return d, ok
}

// Remove drops the entry for path.
func (c *ChecksumStore) Remove(path string) {
	if _, ok := c.sums[path]; ok {
		delete(c.sums, path)
		c.dirty++
	}
}

// Rename carries the digest from oldPath to newPath, as on a move.
func (c *ChecksumStore) Rename(oldPath, newPath string) {
	if d, ok := c.sums[oldPath]; ok {
		delete(c.sums, oldPath)
		c.sums[newPath] = d
		c.dirty++
	}
}

// Copy duplicates the digest from srcPath to dstPath, as on a copy.
func (c *ChecksumStore) Copy(srcPath, dstPath string) {
	if d, ok := c.sums[srcPath]; ok {
		c.sums[dstPath] = d
		c.dirty++
	}
}

// Len returns the number of tracked paths.
func (c *ChecksumStore) Len() int {
	return len(c.sums)
}

// Save serializes the full table to the metadata file atomically.
func (c *ChecksumStore) Save() error {
	data, err := sonic.MarshalIndent(c.sums, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomic(c.path, data, 0o644); err != nil {
		return err
	}
	c.dirty = 0
	return nil
}

func (c *ChecksumStore) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("checksum metadata unreadable, starting empty", zap.Error(err))
		}
		return
	}
	if err := sonic.Unmarshal(data, &c.sums); err != nil {
		c.log.Warn("checksum metadata corrupt, starting empty", zap.Error(err))
		c.sums = make(map[string]string)
	}
}
