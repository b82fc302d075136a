package core

import (
	"fmt"
	"math"
	"time"

	"github.com/Rawrkanos/rodsfromnod/model"
)

// AtmosphereConfig tunes the exponential atmosphere and the trajectory
// precomputation.
type AtmosphereConfig struct {
	SeaLevelDensity float64 // kg/m^3
	ScaleHeight     float64 // m

	// IntegrationStep should match the registry substep so precomputed and
	// live trajectories agree.
	IntegrationStep time.Duration
	// SampleInterval controls how often a sample is kept.
	SampleInterval time.Duration
	// MaxDuration bounds the precomputation.
	MaxDuration time.Duration
}

// DefaultAtmosphereConfig returns standard-atmosphere defaults.
func DefaultAtmosphereConfig() AtmosphereConfig {
	return AtmosphereConfig{
		SeaLevelDensity: 1.225,
		ScaleHeight:     8500,
		IntegrationStep: 10 * time.Millisecond,
		SampleInterval:  100 * time.Millisecond,
		MaxDuration:     2 * time.Hour,
	}
}

// ApplyDefaults fills zero or invalid fields.
func (c AtmosphereConfig) ApplyDefaults() AtmosphereConfig {
	def := DefaultAtmosphereConfig()
	if c.SeaLevelDensity <= 0 {
		c.SeaLevelDensity = def.SeaLevelDensity
	}
	if c.ScaleHeight <= 0 {
		c.ScaleHeight = def.ScaleHeight
	}
	if c.IntegrationStep <= 0 {
		c.IntegrationStep = def.IntegrationStep
	}
	if c.SampleInterval < c.IntegrationStep {
		c.SampleInterval = c.IntegrationStep
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = def.MaxDuration
	}
	return c
}

// TrajectorySource is the registry surface the atmosphere integrates against.
type TrajectorySource interface {
	State(index int) (model.BodyState, error)
	GravityAt(altitude float64) model.Vec3
	Step(st *model.BodyState, accel model.Vec3, h float64) bool
}

// Atmosphere computes drag forces and precomputes full descents.
type Atmosphere struct {
	cfg    AtmosphereConfig
	source TrajectorySource
}

// NewAtmosphere binds an atmosphere model to a registry.
func NewAtmosphere(cfg AtmosphereConfig, source TrajectorySource) *Atmosphere {
	return &Atmosphere{cfg: cfg.ApplyDefaults(), source: source}
}

// DensityAt returns air density at altitude. Below the datum the sea-level
// value is used.
func (a *Atmosphere) DensityAt(altitude float64) float64 {
	return a.cfg.SeaLevelDensity * math.Exp(-math.Max(altitude, 0)/a.cfg.ScaleHeight)
}

// CalculateForces returns the aerodynamic drag on a body, 0.5*rho*v^2*Cd*A,
// opposing its velocity.
func (a *Atmosphere) CalculateForces(st model.BodyState) model.Vec3 {
	speed := st.Velocity.Norm()
	if speed == 0 {
		return model.Vec3{}
	}
	rho := a.DensityAt(st.Position.Y)
	mag := 0.5 * rho * speed * speed * st.DragCoefficient * st.Area
	return st.Velocity.Scale(-mag / speed)
}

// PreCalculateTrajectory integrates the body from its current state until
// ground contact. The final sample is always the contact sample.
func (a *Atmosphere) PreCalculateTrajectory(index int) (model.Trajectory, error) {
	if a.source == nil {
		return model.Trajectory{}, fmt.Errorf("%w: no registry bound", ErrBodyNotFound)
	}
	st, err := a.source.State(index)
	if err != nil {
		return model.Trajectory{}, err
	}
	if !st.Active || st.Collided {
		return model.Trajectory{}, fmt.Errorf("%w: %d", ErrBodyInactive, index)
	}
	st.Orbital = false

	step := a.cfg.IntegrationStep
	h := step.Seconds()
	sampleEvery := int(a.cfg.SampleInterval / step)
	maxSteps := int(a.cfg.MaxDuration / step)

	traj := model.Trajectory{
		BodyIndex: index,
		Samples:   []model.TrajectorySample{a.sample(0, st)},
	}
	for i := 1; i <= maxSteps; i++ {
		drag := a.CalculateForces(st)
		accel := a.source.GravityAt(st.Position.Y).Add(drag.Scale(1 / st.Mass))
		hit := a.source.Step(&st, accel, h)
		if hit || i%sampleEvery == 0 {
			traj.Samples = append(traj.Samples, a.sample(time.Duration(i)*step, st))
		}
		if hit {
			return traj, nil
		}
	}
	return model.Trajectory{}, fmt.Errorf("%w: body %d after %s", ErrNoImpact, index, a.cfg.MaxDuration)
}

func (a *Atmosphere) sample(t time.Duration, st model.BodyState) model.TrajectorySample {
	return model.TrajectorySample{
		Time:     t,
		Position: st.Position,
		Velocity: st.Velocity,
		Density:  a.DensityAt(st.Position.Y),
		Drag:     a.CalculateForces(st).Norm(),
	}
}
