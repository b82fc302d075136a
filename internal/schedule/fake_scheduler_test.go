package schedule

import (
	"testing"
	"time"
)

func TestFakeEventScheduler_AdvanceRunsDueTasks(t *testing.T) {
	start := time.Unix(0, 0)
	sched := NewFakeEventScheduler(start)

	var order []string
	sched.Schedule(start.Add(30*time.Second), func() { order = append(order, "e3") })
	sched.Schedule(start.Add(10*time.Second), func() { order = append(order, "e1") })
	sched.Schedule(start.Add(20*time.Second), func() { order = append(order, "e2") })

	sched.Advance(20 * time.Second)
	if len(order) != 2 || order[0] != "e1" || order[1] != "e2" {
		t.Fatalf("execution order = %v, want [e1 e2]", order)
	}
	if got := sched.Pending(); got != 1 {
		t.Fatalf("Pending() = %d, want 1", got)
	}
	if len(sched.Scheduled) != 3 {
		t.Fatalf("Scheduled = %v, want 3 entries", sched.Scheduled)
	}
}

func TestFakeEventScheduler_TimeIsMonotonic(t *testing.T) {
	start := time.Unix(100, 0)
	sched := NewFakeEventScheduler(start)

	sched.AdvanceTo(start.Add(-time.Minute))
	if got := sched.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}
}

func TestFakeEventScheduler_Cancel(t *testing.T) {
	start := time.Unix(0, 0)
	sched := NewFakeEventScheduler(start)

	var counter int
	id := sched.Schedule(start.Add(time.Second), func() { counter++ })
	sched.Cancel(id)
	sched.Advance(time.Minute)
	if counter != 0 {
		t.Fatalf("cancelled task ran, counter=%d", counter)
	}
}
