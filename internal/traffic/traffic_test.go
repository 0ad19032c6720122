package traffic

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestWindow_Empty(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())
	if got := tr.Window(time.Minute); got != (Counts{}) {
		t.Errorf("Window() = %+v, want zero", got)
	}
}

func TestRecord_CountsByOutcome(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())
	tr.Record(Success)
	tr.Record(Success)
	tr.Record(Error)
	tr.Record(Denied)

	got := tr.Window(time.Minute)
	want := Counts{Success: 2, Errors: 1, Denied: 1}
	if got != want {
		t.Errorf("Window() = %+v, want %+v", got, want)
	}
	if got.Total() != 4 {
		t.Errorf("Total() = %d, want 4", got.Total())
	}
}

func TestWindow_ExcludesOlderOutcomes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock)
	tr.Record(Error)
	clock.Advance(90 * time.Second)
	tr.Record(Success)

	got := tr.Window(time.Minute)
	if got.Errors != 0 || got.Success != 1 {
		t.Errorf("Window(1m) = %+v, want only the recent success", got)
	}
	if got := tr.Window(2 * time.Minute); got.Errors != 1 {
		t.Errorf("Window(2m).Errors = %d, want 1", got.Errors)
	}
}

func TestRecord_PrunesBeyondMaxAge(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock)
	tr.Record(Denied)
	clock.Advance(MaxWindow + time.Second)
	tr.Record(Success)

	if got := tr.Window(time.Hour); got.Denied != 0 {
		t.Errorf("Window(1h).Denied = %d, want 0 after pruning", got.Denied)
	}
}

func TestCounts_ErrorPct(t *testing.T) {
	tests := []struct {
		name string
		c    Counts
		want float64
	}{
		{"nothing served", Counts{Denied: 5}, 0},
		{"half failed", Counts{Success: 2, Errors: 2}, 50},
		{"denials excluded", Counts{Success: 3, Errors: 1, Denied: 10}, 25},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.ErrorPct(); got != tc.want {
				t.Errorf("ErrorPct() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker(nil)
	tr.Record(Error)
	tr.Reset()
	if got := tr.Window(time.Minute).Total(); got != 0 {
		t.Errorf("Total() after Reset = %d, want 0", got)
	}
}

func TestRecord_Concurrent(t *testing.T) {
	tr := NewTracker(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(Success)
		}()
	}
	wg.Wait()
	if got := tr.Window(time.Minute).Success; got != 50 {
		t.Errorf("Success = %d, want 50", got)
	}
}
