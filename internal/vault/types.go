package vault

import (
	"fmt"
	"time"
)

// Code classifies operation failures so callers can branch without
// parsing messages.
type Code string

const (
	CodeAccessDenied     Code = "access_denied"
	CodeNotFound         Code = "not_found"
	CodeNotAFile         Code = "not_a_file"
	CodeNotADirectory    Code = "not_a_directory"
	CodePermissionDenied Code = "permission_denied"
	CodeDecodeError      Code = "decode_error"
	CodeSizeExceeded     Code = "size_exceeded"
	CodeOSFailure        Code = "os_failure"
	CodeWriteFailed      Code = "write_failed"
	CodeInvalidPattern   Code = "invalid_pattern"
)

// Result represents the outcome of a store operation. Every public
// operation returns one; failures are values, never panics.
type Result struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *string                `json:"error,omitempty"`
	Code    Code                   `json:"code,omitempty"`
}

// FileInfo is the metadata record returned by listing and info operations.
type FileInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"` // relative to the base directory
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human,omitempty"`
	IsDir     bool      `json:"is_dir"`
	Mode      string    `json:"mode"`
	Modified  time.Time `json:"modified"`
	Created   time.Time `json:"created"`
	MimeType  string    `json:"mime_type,omitempty"`
	Extension string    `json:"extension,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
}

// success builds a successful result.
func success(data map[string]interface{}) *Result {
	return &Result{Success: true, Data: data}
}

// failure builds a failed result with a classification code.
func failure(code Code, format string, args ...interface{}) *Result {
	msg := fmt.Sprintf(format, args...)
	return &Result{Success: false, Error: &msg, Code: code}
}
