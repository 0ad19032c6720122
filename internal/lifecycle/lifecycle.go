// Package lifecycle holds the process drain state shared by main and the health check.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// drainStart is the unix-nano time shutdown began, 0 while serving.
var drainStart atomic.Int64

// SetShuttingDown marks the process as draining (or serving again when v is false).
// The health endpoint answers 503 shutting-down while the flag is set. Repeated
// calls with true keep the first start time.
func SetShuttingDown(v bool) {
	if !v {
		drainStart.Store(0)
		return
	}
	drainStart.CompareAndSwap(0, time.Now().UnixNano())
}

// IsShuttingDown reports whether the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return drainStart.Load() != 0
}

// DrainDuration returns how long the process has been shutting down, or 0.
func DrainDuration() time.Duration {
	start := drainStart.Load()
	if start == 0 {
		return 0
	}
	return time.Since(time.Unix(0, start))
}
