// Package traffic keeps sliding windows of request outcomes. The health check
// reads them to report overload (rate-limit denials) and degradation (server errors).
package traffic

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Outcome classifies a finished request.
type Outcome int

const (
	Success Outcome = iota // any response below 500 other than a denial
	Error                  // 5xx response
	Denied                 // rate-limit denial (429)
)

// MaxWindow bounds how far back any window may look.
const MaxWindow = 5 * time.Minute

// Counts holds outcome totals within a window.
type Counts struct {
	Success int
	Errors  int
	Denied  int
}

// Total returns every outcome counted, denials included.
func (c Counts) Total() int {
	return c.Success + c.Errors + c.Denied
}

// ErrorPct returns server errors as a percentage of served requests. Denials
// are excluded. Returns 0 when nothing was served.
func (c Counts) ErrorPct() float64 {
	served := c.Success + c.Errors
	if served == 0 {
		return 0
	}
	return float64(c.Errors) * 100 / float64(served)
}

// Tracker maintains outcome timestamps for the last MaxWindow.
type Tracker struct {
	mu    sync.Mutex
	clock clockwork.Clock
	times [3][]time.Time
}

// NewTracker creates a Tracker reading time from clock (nil = real time).
func NewTracker(clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{clock: clock}
}

// Record stores one outcome at the current time.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Window returns outcome counts for the last window.
func (t *Tracker) Window(window time.Duration) Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	return Counts{
		Success: countSince(t.times[Success], cutoff),
		Errors:  countSince(t.times[Error], cutoff),
		Denied:  countSince(t.times[Denied], cutoff),
	}
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.times = [3][]time.Time{}
}

func (t *Tracker) now() time.Time {
	if t.clock == nil {
		return time.Now()
	}
	return t.clock.Now()
}

// countSince counts timestamps that are not before cutoff. Timestamps are appended
// in order, so the scan starts from the newest.
func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for i := len(times) - 1; i >= 0 && !times[i].Before(cutoff); i-- {
		n++
	}
	return n
}

// pruneLocked drops timestamps older than MaxWindow. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-MaxWindow)
	for k, times := range t.times {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[k] = append(times[:0], times[i:]...)
		}
	}
}

var defaultTracker = NewTracker(nil)

// Default returns the process-wide tracker fed by the HTTP middleware.
func Default() *Tracker {
	return defaultTracker
}
