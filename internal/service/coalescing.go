package service

import (
	"context"
	"sync"
	"time"
)

// inFlightLoad tracks a single upload load that multiple callers may wait for.
type inFlightLoad struct {
	done   chan struct{}
	result loadedUpload
	err    error
}

// loadCoalescer collapses concurrent loads of the same upload ID into one
// cache read and parse. A publications page and its trend chart are usually
// requested together, so both share the work.
type loadCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightLoad
	timeout  time.Duration
}

// newLoadCoalescer creates a loadCoalescer. timeout bounds how long any caller
// waits and how long the shared load may run.
func newLoadCoalescer(timeout time.Duration) *loadCoalescer {
	return &loadCoalescer{
		inFlight: make(map[string]*inFlightLoad),
		timeout:  timeout,
	}
}

// Do returns the result of fn for key, running fn at most once for concurrent callers.
// fn receives a context detached from any single caller so that one caller giving up
// does not fail the others. shared reports whether the result came from another caller's load.
func (lc *loadCoalescer) Do(ctx context.Context, key string, fn func(context.Context) (loadedUpload, error)) (result loadedUpload, shared bool, err error) {
	lc.mu.Lock()
	req, exists := lc.inFlight[key]
	if !exists {
		req = &inFlightLoad{done: make(chan struct{})}
		lc.inFlight[key] = req
	}
	lc.mu.Unlock()

	if !exists {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lc.timeout)
		go func() {
			defer cancel()
			req.result, req.err = fn(loadCtx)
			lc.cleanup(key)
			close(req.done)
		}()
	}

	waitCtx, cancel := context.WithTimeout(ctx, lc.timeout)
	defer cancel()
	select {
	case <-req.done:
		return req.result, exists, req.err
	case <-waitCtx.Done():
		return loadedUpload{}, exists, waitCtx.Err()
	}
}

// cleanup removes the in-flight load for key. Called before waiters are released
// so a later call starts a fresh load.
func (lc *loadCoalescer) cleanup(key string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	delete(lc.inFlight, key)
}

// pending returns the number of loads in flight.
func (lc *loadCoalescer) pending() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.inFlight)
}
