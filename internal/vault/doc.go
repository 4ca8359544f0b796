// Package vault implements a sandboxed local file store confined to a
// single base directory.
//
// The store is organized into specialized modules:
//   - paths: path validation and base-directory confinement
//   - checksum: SHA-256 content digests with batched persistence
//   - versions: pre-overwrite snapshots of existing content
//   - cache: bounded, time-expiring cache of recently read text
//   - metrics: per-operation counters (count, duration, errors)
//   - basic: read/write/delete operations
//   - directory: listing and directory creation
//   - operations: move and copy
//   - metadata: file info records and MIME detection
//   - search: recursive name search and glob matching
//   - export: tar.gz subtree export and retention cleanup
//
// All operations:
//   - Validate paths against the base directory before any I/O
//   - Return a typed Result; no error or panic escapes the API
//   - Record an operation metric regardless of outcome
//   - Serialize mutations through a single per-store mutex
//
// Writes use a temp-file-then-rename sequence so a reader never observes
// partially written content. Integrity violations detected on read are
// logged to the security log but do not block the read.
package vault
