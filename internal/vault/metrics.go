package vault

import (
	"sync"
	"time"
)

// Operation kinds recorded by the store.
const (
	opRead        = "read"
	opWrite       = "write"
	opReadBinary  = "read_binary"
	opWriteBinary = "write_binary"
	opList        = "list"
	opCreateDir   = "create_dir"
	opDelete      = "delete"
	opMove        = "move"
	opCopy        = "copy"
	opInfo        = "info"
	opSearch      = "search"
	opGlob        = "glob"
	opExport      = "export"
	opCleanup     = "cleanup"
)

// Observer receives a copy of every recorded operation, letting callers
// mirror store activity into an external metrics system.
type Observer interface {
	ObserveOp(kind string, duration time.Duration, success bool)
}

type opCounter struct {
	count  int64
	total  time.Duration
	errors int64
}

// OpStats is the derived per-kind view computed on demand.
type OpStats struct {
	Count          int64   `json:"count"`
	TotalSeconds   float64 `json:"total_seconds"`
	Errors         int64   `json:"errors"`
	AverageSeconds float64 `json:"average_seconds"`
	ErrorRate      float64 `json:"error_rate"`
}

// OperationMetrics keeps append-only per-kind counters. Recording uses its
// own small mutex rather than the store lock so timing is captured even
// for operations that fail before reaching their critical section.
type OperationMetrics struct {
	mu       sync.Mutex
	ops      map[string]*opCounter
	observer Observer
}

// NewOperationMetrics creates an empty counter set. observer may be nil.
func NewOperationMetrics(observer Observer) *OperationMetrics {
	return &OperationMetrics{ops: make(map[string]*opCounter), observer: observer}
}

// Record adds one sample for kind. It never blocks on anything but its
// own counter mutex.
func (m *OperationMetrics) Record(kind string, duration time.Duration, ok bool) {
	m.mu.Lock()
	c, exists := m.ops[kind]
	if !exists {
		c = &opCounter{}
		m.ops[kind] = c
	}
	c.count++
	c.total += duration
	if !ok {
		c.errors++
	}
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.ObserveOp(kind, duration, ok)
	}
}

// Snapshot derives averages and error rates from the raw counters.
func (m *OperationMetrics) Snapshot() map[string]OpStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]OpStats, len(m.ops))
	for kind, c := range m.ops {
		s := OpStats{
			Count:        c.count,
			TotalSeconds: c.total.Seconds(),
			Errors:       c.errors,
		}
		if c.count > 0 {
			s.AverageSeconds = s.TotalSeconds / float64(c.count)
			s.ErrorRate = float64(c.errors) / float64(c.count)
		}
		out[kind] = s
	}
	return out
}
