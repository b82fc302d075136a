package timectrl

import (
	"context"
	"sync"
	"time"
)

// SimClock is an interface for reading a simulation time axis. The event
// scheduler and the orchestrator depend on it rather than on a concrete
// clock so tests can substitute their own.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// ManualClock is a SimClock that only moves when told to. The orchestrator
// keeps one per time axis and advances it from Tick.
type ManualClock struct {
	mu    sync.RWMutex
	epoch time.Time
	now   time.Time
}

// NewManualClock constructs a clock positioned at epoch.
func NewManualClock(epoch time.Time) *ManualClock {
	return &ManualClock{epoch: epoch, now: epoch}
}

// Now returns the current clock reading. Implements SimClock.
func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by d. Negative durations are ignored so the
// clock stays monotonic.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return c.now
}

// Elapsed returns how far the clock has moved since its epoch.
func (c *ManualClock) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now.Sub(c.epoch)
}

// Reset rewinds the clock to its epoch.
func (c *ManualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.epoch
}

// Mode describes how the TimeController paces frames.
type Mode int

const (
	// RealTime waits for the wall clock between frames.
	RealTime Mode = iota
	// Accelerated steps frames back to back while still reporting Tick as the
	// frame delta.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// FrameListener is invoked once per frame with the frame time and the frame
// delta.
type FrameListener func(now time.Time, dt time.Duration)

// TimeController produces the frame cadence that drives the simulation loop
// and notifies registered listeners. It implements SimClock.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time
	frames      int64

	listeners []FrameListener
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the time of the last emitted frame. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime repositions the controller without emitting a frame.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// Frames returns how many frames have been emitted.
func (tc *TimeController) Frames() int64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.frames
}

// AddListener registers a callback invoked on every frame. Listeners must be
// registered before Run or Step is called.
func (tc *TimeController) AddListener(fn FrameListener) {
	if fn == nil {
		return
	}
	tc.listeners = append(tc.listeners, fn)
}

// Step emits a single frame synchronously.
func (tc *TimeController) Step() {
	tc.mu.Lock()
	tc.currentTime = tc.currentTime.Add(tc.Tick)
	tc.frames++
	now := tc.currentTime
	tc.mu.Unlock()

	for _, fn := range tc.listeners {
		fn(now, tc.Tick)
	}
}

// Run emits frames in a separate goroutine until duration frame time has
// elapsed (0 means unbounded) or ctx is cancelled. All listeners run on that
// goroutine. The returned channel is closed when the controller finishes.
func (tc *TimeController) Run(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		elapsed := time.Duration(0)

		var ticks <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tc.Tick)
			defer ticker.Stop()
			ticks = ticker.C
		}

		for {
			if duration > 0 && elapsed >= duration {
				return
			}
			if ticks != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticks:
				}
			} else if ctx.Err() != nil {
				return
			}

			tc.Step()
			elapsed += tc.Tick
		}
	}()
	return done
}
