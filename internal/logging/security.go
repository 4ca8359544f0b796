package logging

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SecurityLog appends one timestamped JSON line per security event to a
// dedicated file and counts events for metrics. Recording never fails the
// caller: a write error is dropped after incrementing the counter.
type SecurityLog struct {
	logger *zap.Logger
	file   *os.File
	events atomic.Int64
}

// NewSecurityLog opens (or creates) the security log at path.
func NewSecurityLog(path string) (*SecurityLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig(false)),
		zapcore.Lock(zapcore.AddSync(f)),
		zap.WarnLevel,
	)
	return &SecurityLog{logger: zap.New(core), file: f}, nil
}

// Event records one security event.
func (s *SecurityLog) Event(kind string, fields ...zap.Field) {
	s.events.Add(1)
	s.logger.Warn(kind, fields...)
}

// Events returns the number of events recorded since startup.
func (s *SecurityLog) Events() int64 {
	return s.events.Load()
}

// Close syncs and closes the underlying file.
func (s *SecurityLog) Close() error {
	_ = s.logger.Sync()
	return s.file.Close()
}
