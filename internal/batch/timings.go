package batch

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Timings tracks timing metrics for the remote calls of one batch
type Timings struct {
	mu sync.Mutex

	// Create calls
	CreateTotal  time.Duration
	CreateMax    time.Duration
	CreateCount  int64
	CreateFailed int64

	// Batch activation
	ActivateTotal time.Duration
	ActivateCount int64
}

// NewTimings creates a new Timings instance
func NewTimings() *Timings {
	return &Timings{}
}

// ObserveCreate records one create call duration
func (t *Timings) ObserveCreate(duration time.Duration, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CreateTotal += duration
	t.CreateCount++
	if duration > t.CreateMax {
		t.CreateMax = duration
	}
	if failed {
		t.CreateFailed++
	}
}

// ObserveActivate records an activation call duration
func (t *Timings) ObserveActivate(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ActivateTotal += duration
	t.ActivateCount++
}

// String returns a formatted summary of all timings
func (t *Timings) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var parts []string

	if t.CreateCount > 0 {
		avg := t.CreateTotal / time.Duration(t.CreateCount)
		parts = append(parts, fmt.Sprintf("Create: count=%d failed=%d avg=%v max=%v",
			t.CreateCount, t.CreateFailed, avg, t.CreateMax))
	}

	if t.ActivateCount > 0 {
		avg := t.ActivateTotal / time.Duration(t.ActivateCount)
		parts = append(parts, fmt.Sprintf("Activate: count=%d avg=%v", t.ActivateCount, avg))
	}

	if len(parts) == 0 {
		return "No timings recorded"
	}
	return strings.Join(parts, "; ")
}
