// Package schedule runs deferred simulation tasks against a SimClock.
package schedule

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Rawrkanos/rodsfromnod/timectrl"
)

// EventScheduler schedules callbacks to run at specific clock times.
//
// The frame loop advances the clock and then calls RunDue; callbacks run on
// the caller's goroutine, inside RunDue. A callback fired after the state it
// captured has moved on is expected: callers carry their own validity token
// and re-check it when the callback runs.
type EventScheduler interface {
	// Schedule registers f to run once the clock reaches at. The returned ID
	// can be passed to Cancel.
	Schedule(at time.Time, f func()) (id string)

	// Cancel drops a pending task. Unknown or already-run IDs are ignored.
	Cancel(id string)

	// Now returns the current clock time.
	Now() time.Time

	// RunDue executes every pending task whose time is <= Now(), earliest
	// first. Tasks never run twice.
	RunDue()

	// Pending reports how many tasks are still waiting.
	Pending() int
}

type scheduledTask struct {
	id        string
	when      time.Time
	f         func()
	cancelled bool
}

type eventScheduler struct {
	clock timectrl.SimClock

	mu      sync.Mutex
	counter uint64
	tasks   []*scheduledTask // ordered by when, earliest first
	index   map[string]*scheduledTask
}

// NewEventScheduler creates a scheduler that reads time from clock.
func NewEventScheduler(clock timectrl.SimClock) EventScheduler {
	return &eventScheduler{
		clock: clock,
		index: make(map[string]*scheduledTask),
	}
}

func (s *eventScheduler) Schedule(at time.Time, f func()) (id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	id = fmt.Sprintf("task-%d", s.counter)

	task := &scheduledTask{id: id, when: at, f: f}

	// Equal times keep insertion order.
	idx := sort.Search(len(s.tasks), func(i int) bool {
		return s.tasks[i].when.After(at)
	})
	s.tasks = append(s.tasks, nil)
	copy(s.tasks[idx+1:], s.tasks[idx:])
	s.tasks[idx] = task

	s.index[id] = task
	return id
}

func (s *eventScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.index[id]
	if !ok {
		return
	}
	task.cancelled = true
	delete(s.index, id)
	// Removal from s.tasks is lazy; popDueLocked skips cancelled entries.
}

func (s *eventScheduler) Now() time.Time {
	return s.clock.Now()
}

func (s *eventScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// popDueLocked removes and returns the earliest due, non-cancelled task.
// Caller must hold s.mu.
func (s *eventScheduler) popDueLocked(now time.Time) *scheduledTask {
	for len(s.tasks) > 0 {
		task := s.tasks[0]
		if task.cancelled {
			s.tasks = s.tasks[1:]
			continue
		}
		if task.when.After(now) {
			return nil
		}
		s.tasks = s.tasks[1:]
		delete(s.index, task.id)
		return task
	}
	return nil
}

func (s *eventScheduler) RunDue() {
	for {
		s.mu.Lock()
		task := s.popDueLocked(s.clock.Now())
		s.mu.Unlock()
		if task == nil {
			return
		}

		// Outside the lock so callbacks may schedule or cancel.
		if task.f != nil {
			task.f()
		}
	}
}
