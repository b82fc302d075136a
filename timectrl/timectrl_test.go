package timectrl

import (
	"context"
	"testing"
	"time"
)

func TestTimeControllerSetTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, RealTime)

	newNow := start.Add(42 * time.Second)
	tc.SetTime(newNow)

	if got := tc.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}
}

func TestTimeControllerRunUpdatesNow(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 5*time.Millisecond, Accelerated)

	var frames int
	var lastDt time.Duration
	tc.AddListener(func(_ time.Time, dt time.Duration) {
		frames++
		lastDt = dt
	})

	done := tc.Run(context.Background(), 15*time.Millisecond)
	<-done

	expected := start.Add(15 * time.Millisecond)
	if got := tc.Now(); !got.Equal(expected) {
		t.Fatalf("Now() = %v, want %v", got, expected)
	}
	if frames != 3 {
		t.Fatalf("frames = %d, want 3", frames)
	}
	if lastDt != 5*time.Millisecond {
		t.Fatalf("frame dt = %v, want 5ms", lastDt)
	}
}

func TestTimeControllerRunStopsOnCancel(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Millisecond, RealTime)

	ctx, cancel := context.WithCancel(context.Background())
	done := tc.Run(ctx, 0)
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if tc.Frames() == 0 {
		t.Fatalf("expected at least one frame before cancel")
	}
}

func TestManualClockAdvanceAndReset(t *testing.T) {
	epoch := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(epoch)

	c.Advance(3 * time.Second)
	c.Advance(-time.Second)
	if got := c.Elapsed(); got != 3*time.Second {
		t.Fatalf("Elapsed() = %v, want 3s", got)
	}

	c.Reset()
	if got := c.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() after Reset = %v, want %v", got, epoch)
	}
}
