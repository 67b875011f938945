package telemetry

import (
	"sync"

	"github.com/kilianp07/fleetops/core/model"
)

// series is a bounded ring of samples. The backing slice grows on demand
// up to capacity, after which each push overwrites the oldest entry.
// Callers hold mu.
type series struct {
	mu       sync.Mutex
	buf      []model.TelemetrySample
	head     int // index of the oldest sample once the ring is full
	capacity int
}

func newSeries(capacity int) *series {
	return &series{capacity: capacity}
}

// push appends s and reports whether the oldest sample was evicted.
func (r *series) push(s model.TelemetrySample) bool {
	if len(r.buf) < r.capacity {
		r.buf = append(r.buf, s)
		return false
	}
	r.buf[r.head] = s
	r.head = (r.head + 1) % r.capacity
	return true
}

func (r *series) len() int { return len(r.buf) }

func (r *series) last() (model.TelemetrySample, bool) {
	n := len(r.buf)
	if n == 0 {
		return model.TelemetrySample{}, false
	}
	return r.buf[(r.head+n-1)%n], true
}

// snapshot copies the samples in insertion order.
func (r *series) snapshot() []model.TelemetrySample {
	n := len(r.buf)
	out := make([]model.TelemetrySample, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.head+i)%n]
	}
	return out
}
