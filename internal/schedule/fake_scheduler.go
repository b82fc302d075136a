package schedule

import (
	"fmt"
	"sync"
	"time"
)

// FakeEventScheduler is an EventScheduler with its own notion of time that
// tests move explicitly with AdvanceTo. It ignores whatever clock the code
// under test advances, which makes deferred-task races easy to stage.
type FakeEventScheduler struct {
	mu      sync.Mutex
	now     time.Time
	counter uint64

	tasks []*scheduledTask // ordered by when, earliest first
	index map[string]*scheduledTask

	// Scheduled records every time passed to Schedule, in call order.
	Scheduled []time.Time
}

// NewFakeEventScheduler creates a fake scheduler starting at start.
func NewFakeEventScheduler(start time.Time) *FakeEventScheduler {
	return &FakeEventScheduler{
		now:   start,
		index: make(map[string]*scheduledTask),
	}
}

// Now returns the fake time.
func (s *FakeEventScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule registers a callback at the given fake time.
func (s *FakeEventScheduler) Schedule(at time.Time, f func()) (id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	id = fmt.Sprintf("fake-task-%d", s.counter)
	task := &scheduledTask{id: id, when: at, f: f}

	inserted := false
	for i, existing := range s.tasks {
		if at.Before(existing.when) {
			s.tasks = append(s.tasks[:i], append([]*scheduledTask{task}, s.tasks[i:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		s.tasks = append(s.tasks, task)
	}

	s.index[id] = task
	s.Scheduled = append(s.Scheduled, at)
	return id
}

// Cancel drops a pending task.
func (s *FakeEventScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.index[id]
	if !ok {
		return
	}
	task.cancelled = true
	delete(s.index, id)
}

// Pending reports how many tasks are still waiting.
func (s *FakeEventScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// RunDue executes all tasks whose time is <= the fake now.
func (s *FakeEventScheduler) RunDue() {
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 || s.tasks[0].when.After(s.now) {
			s.mu.Unlock()
			return
		}
		task := s.tasks[0]
		s.tasks = s.tasks[1:]
		if task.cancelled {
			s.mu.Unlock()
			continue
		}
		delete(s.index, task.id)
		callback := task.f
		s.mu.Unlock()

		if callback != nil {
			callback()
		}
	}
}

// AdvanceTo moves fake time forward to t and runs everything due. Time never
// goes backwards.
func (s *FakeEventScheduler) AdvanceTo(t time.Time) {
	s.mu.Lock()
	if t.Before(s.now) {
		s.mu.Unlock()
		return
	}
	s.now = t
	s.mu.Unlock()

	s.RunDue()
}

// Advance moves fake time forward by d and runs everything due.
func (s *FakeEventScheduler) Advance(d time.Duration) {
	s.AdvanceTo(s.Now().Add(d))
}
