package orchestrator

import (
	"iter"
	"time"

	"github.com/Rawrkanos/rodsfromnod/internal/sim/state"
	"github.com/Rawrkanos/rodsfromnod/model"
)

// ObjectRegistry owns the simulated bodies. It is the only mandatory
// collaborator.
type ObjectRegistry interface {
	AddObject(spec model.BodySpec, orbital bool, altitude float64) (int, error)
	Update(dt time.Duration)
	State(index int) (model.BodyState, error)
	ApplyForce(index int, f model.Vec3) error
	DeOrbit(index int, factor float64) error
	// LiveIndices yields every body that still participates in the
	// simulation. Each iteration observes the current set.
	LiveIndices() iter.Seq[int]
	Reset()
}

// TrajectoryPrecomputer predicts a body's full descent and supplies the
// per-tick atmospheric forces. Precomputation must not mutate the registry.
type TrajectoryPrecomputer interface {
	PreCalculateTrajectory(index int) (model.Trajectory, error)
	CalculateForces(st model.BodyState) model.Vec3
}

// ImpactResolver turns a collided body into score and energy.
type ImpactResolver interface {
	Resolve(index int, st model.BodyState) (model.ImpactResult, error)
	Reset()
}

// EffectGenerator produces one-shot impact effects such as ejecta or a
// shockwave.
type EffectGenerator interface {
	Generate(index int, result model.ImpactResult)
	Reset()
}

// ProgressionController maps accumulated totals to unlocks and tiers.
type ProgressionController interface {
	Observe(totals model.Totals)
	LaunchHeight() float64
	TriggerPrestige(totals model.Totals) (model.TierOutcome, error)
	TriggerAscension(totals model.Totals) (model.TierOutcome, error)
	Reset(full bool)
}

// BodyFactory builds the projectile for the next launch.
type BodyFactory interface {
	NewBody(height float64, orbital bool) model.BodySpec
	Reset()
}

// Resetter is any subsystem that only needs to hear about resets, such as
// the terrain.
type Resetter interface {
	Reset()
}

// SnapshotSink receives a copy of the state after every tick and reset.
type SnapshotSink interface {
	Publish(snap state.Snapshot)
}

// MetricsRecorder receives orchestrator observations.
type MetricsRecorder interface {
	RecordLaunch(orbital bool)
	RecordImpact(result model.ImpactResult)
	RecordDeorbit(stale bool)
	RecordTierChange(tier string)
	RecordReset(full bool)
	ObserveTick(wall time.Duration, multiplier float64)
}

type noopMetrics struct{}

func (noopMetrics) RecordLaunch(bool)                   {}
func (noopMetrics) RecordImpact(model.ImpactResult)     {}
func (noopMetrics) RecordDeorbit(bool)                  {}
func (noopMetrics) RecordTierChange(string)             {}
func (noopMetrics) RecordReset(bool)                    {}
func (noopMetrics) ObserveTick(time.Duration, float64) {}
