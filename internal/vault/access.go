package vault

import "time"

// accessRingSize bounds the retained read timestamps per path. Only the
// total count is reported today; the ring exists for recent-activity
// inspection.
const accessRingSize = 64

type accessRecord struct {
	count  int64
	recent []time.Time // ring, newest last
}

// accessLog tracks read activity per relative path. Guarded by the owning
// FileStore's mutex.
type accessLog struct {
	records map[string]*accessRecord
}

func newAccessLog() *accessLog {
	return &accessLog{records: make(map[string]*accessRecord)}
}

func (l *accessLog) RecordRead(rel string) {
	r, ok := l.records[rel]
	if !ok {
		r = &accessRecord{}
		l.records[rel] = r
	}
	r.count++
	r.recent = append(r.recent, time.Now())
	if len(r.recent) > accessRingSize {
		r.recent = r.recent[len(r.recent)-accessRingSize:]
	}
}

func (l *accessLog) Count(rel string) int64 {
	if r, ok := l.records[rel]; ok {
		return r.count
	}
	return 0
}

func (l *accessLog) Remove(rel string) {
	delete(l.records, rel)
}
