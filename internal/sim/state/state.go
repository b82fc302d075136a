// Package state holds the authoritative simulation state for a rod drop run.
// A single SimulationState is owned by the orchestrator; everything else
// observes it through Snapshot values.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/Rawrkanos/rodsfromnod/model"
)

// NoBody is the currentBodyIndex value when no projectile is in flight.
const NoBody = -1

// SimulationState is the scoring, progression and flight bookkeeping for one
// run. All mutators are called from the tick goroutine; the lock only
// protects concurrent Snapshot readers.
type SimulationState struct {
	mu sync.RWMutex

	// score and totalEnergy are the current run's totals.
	score       float64
	totalEnergy float64

	// Tiered accumulators. Each is cleared only by the tier that governs it.
	totalScorePerPrestige  float64
	totalScorePerAscension float64
	totalScoreOverall      float64

	prestigeLevel   int
	ascensionLevel  int
	prestigePoints  int
	ascensionPoints int

	currentBody  int
	launchHeight float64
	orbital      bool

	// impactTime is only meaningful when impactKnown is set.
	impactTime          time.Time
	impactKnown         bool
	fallSpeedMultiplier float64

	simTime   time.Time
	frameTime time.Time

	launches int
	impacts  int
}

// Snapshot is a read-only copy of SimulationState handed to sinks.
type Snapshot struct {
	Score                  float64
	TotalEnergy            float64
	TotalScorePerPrestige  float64
	TotalScorePerAscension float64
	TotalScoreOverall      float64

	PrestigeLevel   int
	AscensionLevel  int
	PrestigePoints  int
	AscensionPoints int

	CurrentBodyIndex    int
	LaunchHeight        float64
	IsOrbitalPhase      bool
	ImpactTime          time.Time
	ImpactKnown         bool
	FallSpeedMultiplier float64

	SimTime   time.Time
	FrameTime time.Time

	Launches int
	Impacts  int
}

// HasActiveBody reports whether the snapshot was taken with a body in flight.
func (s Snapshot) HasActiveBody() bool {
	return s.CurrentBodyIndex != NoBody
}

// TimeToImpact returns the predicted simulated time left before collision.
func (s Snapshot) TimeToImpact() (time.Duration, bool) {
	if !s.ImpactKnown {
		return 0, false
	}
	return s.ImpactTime.Sub(s.SimTime), true
}

// SimulationStateOption customises SimulationState construction.
type SimulationStateOption func(*SimulationState)

// WithClocks positions the recorded simulated and frame times.
func WithClocks(sim, frame time.Time) SimulationStateOption {
	return func(s *SimulationState) {
		s.simTime = sim
		s.frameTime = frame
	}
}

// NewSimulationState constructs an empty state with the given launch height.
func NewSimulationState(launchHeight float64, opts ...SimulationStateOption) *SimulationState {
	s := &SimulationState{
		currentBody:         NoBody,
		launchHeight:        launchHeight,
		fallSpeedMultiplier: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *SimulationState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Score:                  s.score,
		TotalEnergy:            s.totalEnergy,
		TotalScorePerPrestige:  s.totalScorePerPrestige,
		TotalScorePerAscension: s.totalScorePerAscension,
		TotalScoreOverall:      s.totalScoreOverall,
		PrestigeLevel:          s.prestigeLevel,
		AscensionLevel:         s.ascensionLevel,
		PrestigePoints:         s.prestigePoints,
		AscensionPoints:        s.ascensionPoints,
		CurrentBodyIndex:       s.currentBody,
		LaunchHeight:           s.launchHeight,
		IsOrbitalPhase:         s.orbital,
		ImpactTime:             s.impactTime,
		ImpactKnown:            s.impactKnown,
		FallSpeedMultiplier:    s.fallSpeedMultiplier,
		SimTime:                s.simTime,
		FrameTime:              s.frameTime,
		Launches:               s.launches,
		Impacts:                s.impacts,
	}
}

// Totals returns the accumulated outcomes in the shape the progression
// controller consumes.
func (s *SimulationState) Totals() model.Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Totals{
		Score:                  s.score,
		TotalEnergy:            s.totalEnergy,
		TotalScorePerPrestige:  s.totalScorePerPrestige,
		TotalScorePerAscension: s.totalScorePerAscension,
		TotalScoreOverall:      s.totalScoreOverall,
		PrestigeLevel:          s.prestigeLevel,
		AscensionLevel:         s.ascensionLevel,
	}
}

// CurrentBody returns the active body index or NoBody.
func (s *SimulationState) CurrentBody() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentBody
}

// HasActiveBody reports whether a projectile is in flight.
func (s *SimulationState) HasActiveBody() bool {
	return s.CurrentBody() != NoBody
}

// ActivateBody marks index as the single active body. Activating while
// another body is in flight is a programming error and panics.
func (s *SimulationState) ActivateBody(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentBody != NoBody {
		panic(fmt.Sprintf("state: activate body %d while body %d is active", index, s.currentBody))
	}
	if index < 0 {
		panic(fmt.Sprintf("state: invalid body index %d", index))
	}
	s.currentBody = index
	s.impactKnown = false
	s.impactTime = time.Time{}
	s.fallSpeedMultiplier = 1
	s.launches++
}

// ClearBody drops the active body together with its impact prediction and
// time acceleration.
func (s *SimulationState) ClearBody() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearBodyLocked()
}

func (s *SimulationState) clearBodyLocked() {
	s.currentBody = NoBody
	s.impactKnown = false
	s.impactTime = time.Time{}
	s.fallSpeedMultiplier = 1
}

// SetImpactTime records the predicted simulated-clock collision time.
func (s *SimulationState) SetImpactTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentBody == NoBody {
		return
	}
	s.impactTime = t
	s.impactKnown = true
}

// ImpactTime returns the predicted collision time if one is known.
func (s *SimulationState) ImpactTime() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.impactTime, s.impactKnown
}

// SetFallSpeedMultiplier sets the time acceleration factor. Without an
// active body the multiplier stays at 1.
func (s *SimulationState) SetFallSpeedMultiplier(m float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentBody == NoBody || m <= 0 {
		m = 1
	}
	s.fallSpeedMultiplier = m
}

// FallSpeedMultiplier returns the current time acceleration factor.
func (s *SimulationState) FallSpeedMultiplier() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fallSpeedMultiplier
}

// FoldImpact adds one impact's score to every score accumulator and its
// energy to the run energy in a single step.
func (s *SimulationState) FoldImpact(score, energy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score += score
	s.totalScorePerPrestige += score
	s.totalScorePerAscension += score
	s.totalScoreOverall += score
	s.totalEnergy += energy
	s.impacts++
}

// LaunchHeight returns the current unlocked drop altitude.
func (s *SimulationState) LaunchHeight() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.launchHeight
}

// RaiseLaunchHeight stores h if it is higher than the current height and
// reports the resulting height. The height never decreases within a run.
func (s *SimulationState) RaiseLaunchHeight(h float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h > s.launchHeight {
		s.launchHeight = h
	}
	return s.launchHeight
}

// IsOrbitalPhase reports whether launches start in orbit.
func (s *SimulationState) IsOrbitalPhase() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orbital
}

// EnterOrbitalPhase sets the orbital flag and reports whether it changed.
func (s *SimulationState) EnterOrbitalPhase() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orbital {
		return false
	}
	s.orbital = true
	return true
}

// ApplyPrestige folds a prestige outcome: the level is taken from the
// outcome and the points are added.
func (s *SimulationState) ApplyPrestige(out model.TierOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prestigeLevel = out.Level
	s.prestigePoints += out.Points
}

// ApplyAscension folds an ascension outcome and clears the prestige track
// along with the per-ascension accumulator.
func (s *SimulationState) ApplyAscension(out model.TierOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ascensionLevel = out.Level
	s.ascensionPoints += out.Points
	s.prestigeLevel = 0
	s.prestigePoints = 0
	s.totalScorePerAscension = 0
}

// SoftReset starts a new run: run totals, the per-prestige accumulator and
// the active body are cleared and the launch height returns to base.
// Per-ascension and overall totals, tier levels, points and the orbital
// flag survive.
func (s *SimulationState) SoftReset(baseHeight float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = 0
	s.totalEnergy = 0
	s.totalScorePerPrestige = 0
	s.launchHeight = baseHeight
	s.clearBodyLocked()
}

// FullReset returns the state to a fresh epoch.
func (s *SimulationState) FullReset(baseHeight float64, sim, frame time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = 0
	s.totalEnergy = 0
	s.totalScorePerPrestige = 0
	s.totalScorePerAscension = 0
	s.totalScoreOverall = 0
	s.prestigeLevel = 0
	s.ascensionLevel = 0
	s.prestigePoints = 0
	s.ascensionPoints = 0
	s.launchHeight = baseHeight
	s.orbital = false
	s.launches = 0
	s.impacts = 0
	s.simTime = sim
	s.frameTime = frame
	s.clearBodyLocked()
}

// SetClocks records the clock readings published with the next snapshot.
func (s *SimulationState) SetClocks(sim, frame time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simTime = sim
	s.frameTime = frame
}
