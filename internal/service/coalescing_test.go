package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/stem-explorer/internal/cache"
)

func TestLoadCoalescer_Do_ConcurrentRequests(t *testing.T) {
	coalescer := newLoadCoalescer(5 * time.Second)
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func(context.Context) (loadedUpload, error) {
		calls.Add(1)
		<-release
		return loadedUpload{upload: cache.Upload{Filename: "pubs.csv"}}, nil
	}

	var wg sync.WaitGroup
	results := make([]loadedUpload, 10)
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], _, errs[idx] = coalescer.Do(context.Background(), "id-1", fn)
		}(i)
	}
	// Give every caller time to join the in-flight load before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, result := range results {
		if errs[i] != nil {
			t.Errorf("request %d error = %v, want nil", i, errs[i])
		}
		if result.upload.Filename != "pubs.csv" {
			t.Errorf("request %d filename = %q, want pubs.csv", i, result.upload.Filename)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fn call count = %d, want 1", got)
	}
	if n := coalescer.pending(); n != 0 {
		t.Errorf("pending() = %d after completion, want 0", n)
	}
}

func TestLoadCoalescer_Do_ErrorPropagation(t *testing.T) {
	coalescer := newLoadCoalescer(5 * time.Second)
	wantErr := errors.New("backend down")

	_, _, err := coalescer.Do(context.Background(), "id-1", func(context.Context) (loadedUpload, error) {
		return loadedUpload{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Do() error = %v, want %v", err, wantErr)
	}
}

func TestLoadCoalescer_Do_DifferentKeys(t *testing.T) {
	coalescer := newLoadCoalescer(5 * time.Second)
	var calls atomic.Int32
	fn := func(context.Context) (loadedUpload, error) {
		calls.Add(1)
		return loadedUpload{}, nil
	}

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			_, _, _ = coalescer.Do(context.Background(), k, fn)
		}(key)
	}
	wg.Wait()

	if got := calls.Load(); got != 3 {
		t.Errorf("fn call count = %d, want 3 (one per key)", got)
	}
}

func TestLoadCoalescer_Do_CallerTimeout(t *testing.T) {
	coalescer := newLoadCoalescer(20 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	_, _, err := coalescer.Do(context.Background(), "slow", func(context.Context) (loadedUpload, error) {
		<-release
		return loadedUpload{}, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestLoadCoalescer_Do_CancelledCallerDoesNotCancelLoad(t *testing.T) {
	coalescer := newLoadCoalescer(5 * time.Second)
	started := make(chan struct{})
	release := make(chan struct{})
	loadErr := make(chan error, 1)

	fn := func(ctx context.Context) (loadedUpload, error) {
		close(started)
		<-release
		loadErr <- ctx.Err()
		return loadedUpload{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := coalescer.Do(ctx, "id-1", fn)
		done <- err
	}()
	<-started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}

	close(release)
	if err := <-loadErr; err != nil {
		t.Errorf("load context error = %v, want nil after caller cancellation", err)
	}
}

func TestLoadCoalescer_Do_SequentialCallsReload(t *testing.T) {
	coalescer := newLoadCoalescer(5 * time.Second)
	var calls atomic.Int32
	fn := func(context.Context) (loadedUpload, error) {
		calls.Add(1)
		return loadedUpload{}, nil
	}

	for i := 0; i < 3; i++ {
		if _, shared, err := coalescer.Do(context.Background(), "id-1", fn); err != nil || shared {
			t.Fatalf("Do() = shared %v, err %v; want fresh load", shared, err)
		}
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("fn call count = %d, want 3 (no result caching)", got)
	}
}
