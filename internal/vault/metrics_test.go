package vault

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingObserver struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recordingObserver) ObserveOp(kind string, duration time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func TestMetricsRecordAndSnapshot(t *testing.T) {
	m := NewOperationMetrics(nil)

	m.Record(opRead, 100*time.Millisecond, true)
	m.Record(opRead, 300*time.Millisecond, false)
	m.Record(opWrite, 50*time.Millisecond, true)

	snap := m.Snapshot()

	read := snap[opRead]
	assert.Equal(t, int64(2), read.Count)
	assert.Equal(t, int64(1), read.Errors)
	assert.InDelta(t, 0.4, read.TotalSeconds, 1e-9)
	assert.InDelta(t, 0.2, read.AverageSeconds, 1e-9)
	assert.InDelta(t, 0.5, read.ErrorRate, 1e-9)

	write := snap[opWrite]
	assert.Equal(t, int64(1), write.Count)
	assert.Equal(t, int64(0), write.Errors)
	assert.Equal(t, 0.0, write.ErrorRate)
}

func TestMetricsSnapshotEmptyKindAbsent(t *testing.T) {
	m := NewOperationMetrics(nil)
	snap := m.Snapshot()
	_, ok := snap[opDelete]
	assert.False(t, ok)
}

func TestMetricsForwardsToObserver(t *testing.T) {
	obs := &recordingObserver{}
	m := NewOperationMetrics(obs)

	m.Record(opSearch, time.Millisecond, true)
	m.Record(opDelete, time.Millisecond, false)

	assert.Equal(t, []string{opSearch, opDelete}, obs.kinds)
}

func TestMetricsConcurrentRecording(t *testing.T) {
	m := NewOperationMetrics(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(opInfo, time.Microsecond, j%2 == 0)
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(800), snap[opInfo].Count)
	assert.Equal(t, int64(400), snap[opInfo].Errors)
}
