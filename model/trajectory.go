package model

import "time"

// TrajectorySample is one precomputed point on a body's descent. Time is the
// offset from the moment the trajectory was computed.
type TrajectorySample struct {
	Time     time.Duration
	Position Vec3
	Velocity Vec3
	Density  float64 // kg/m^3 at Position
	Drag     float64 // N
}

// Trajectory is the ordered, finite sample sequence for one body. It is
// computed once and never mutated afterwards.
type Trajectory struct {
	BodyIndex int
	Samples   []TrajectorySample
}

// Len reports the number of samples.
func (t Trajectory) Len() int { return len(t.Samples) }

// Final returns the last sample and false when the trajectory is empty.
func (t Trajectory) Final() (TrajectorySample, bool) {
	if len(t.Samples) == 0 {
		return TrajectorySample{}, false
	}
	return t.Samples[len(t.Samples)-1], true
}

// Duration returns the time offset of the final sample, or zero.
func (t Trajectory) Duration() time.Duration {
	final, ok := t.Final()
	if !ok {
		return 0
	}
	return final.Time
}
