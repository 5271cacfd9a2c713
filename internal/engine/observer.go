package engine

import (
	"sync"

	"github.com/roach88/rtfm/internal/ir"
)

// Observer receives scheduler events on the engine goroutine.
type Observer interface {
	Observe(rec ir.TraceRecord)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(rec ir.TraceRecord)

// Observe implements Observer.
func (f ObserverFunc) Observe(rec ir.TraceRecord) {
	f(rec)
}

// Recorder collects trace records in memory.
type Recorder struct {
	mu      sync.Mutex
	records []ir.TraceRecord
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Observe implements Observer.
func (r *Recorder) Observe(rec ir.TraceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns a copy of the collected records.
func (r *Recorder) Records() []ir.TraceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.TraceRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Reset discards the collected records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
