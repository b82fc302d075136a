// Package core holds the reference physical collaborators driven by the
// simulation orchestrator: the body registry, atmosphere, impact effects,
// rod catalog, terrain and orbit model.
package core

import (
	"context"
	"fmt"
	"iter"
	"math"
	"sync"
	"time"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/model"
)

// HeightField reports ground elevation under a horizontal position.
type HeightField interface {
	HeightAt(x, z float64) float64
}

// PhysicsConfig tunes the body registry.
type PhysicsConfig struct {
	// SurfaceGravity is g at the datum, m/s^2.
	SurfaceGravity float64
	// PlanetRadius scales gravity with altitude, m.
	PlanetRadius float64
	// MaxSubstep bounds a single integration step.
	MaxSubstep time.Duration
}

// DefaultPhysicsConfig returns Earth-like defaults.
func DefaultPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{
		SurfaceGravity: 9.81,
		PlanetRadius:   6371000,
		MaxSubstep:     10 * time.Millisecond,
	}
}

// ApplyDefaults fills zero or invalid fields.
func (c PhysicsConfig) ApplyDefaults() PhysicsConfig {
	def := DefaultPhysicsConfig()
	if c.SurfaceGravity <= 0 {
		c.SurfaceGravity = def.SurfaceGravity
	}
	if c.PlanetRadius <= 0 {
		c.PlanetRadius = def.PlanetRadius
	}
	if c.MaxSubstep <= 0 {
		c.MaxSubstep = def.MaxSubstep
	}
	return c
}

type body struct {
	spec  model.BodySpec
	state model.BodyState
	force model.Vec3
}

// PhysicsSystem is the indexed body registry. Indices are stable for the
// lifetime of a registry epoch and are reused only after Reset.
type PhysicsSystem struct {
	mu sync.RWMutex

	cfg     PhysicsConfig
	terrain HeightField
	orbit   OrbitModel
	log     logging.Logger

	bodies []*body
}

// PhysicsOption customises PhysicsSystem construction.
type PhysicsOption func(*PhysicsSystem)

// WithOrbitModel attaches the model used to seed horizontal velocity when an
// orbital body is deorbited.
func WithOrbitModel(m OrbitModel) PhysicsOption {
	return func(p *PhysicsSystem) {
		p.orbit = m
	}
}

// WithPhysicsLogger attaches a logger.
func WithPhysicsLogger(l logging.Logger) PhysicsOption {
	return func(p *PhysicsSystem) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPhysicsSystem constructs an empty registry. A nil terrain means a flat
// datum at zero elevation.
func NewPhysicsSystem(cfg PhysicsConfig, terrain HeightField, opts ...PhysicsOption) *PhysicsSystem {
	if terrain == nil {
		terrain = NewTerrain(0)
	}
	p := &PhysicsSystem{
		cfg:     cfg.ApplyDefaults(),
		terrain: terrain,
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// AddObject registers a body at the given altitude directly above the
// origin. Orbital bodies are held in place until DeOrbit.
func (p *PhysicsSystem) AddObject(spec model.BodySpec, orbital bool, altitude float64) (int, error) {
	if spec.Mass <= 0 || spec.Radius <= 0 || spec.DragCoefficient < 0 {
		return -1, fmt.Errorf("%w: mass=%.3f radius=%.3f cd=%.3f", ErrInvalidBody, spec.Mass, spec.Radius, spec.DragCoefficient)
	}
	if math.IsNaN(altitude) || math.IsInf(altitude, 0) {
		return -1, fmt.Errorf("%w: altitude %v", ErrInvalidBody, altitude)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	b := &body{
		spec: spec,
		state: model.BodyState{
			Position:        model.Vec3{Y: altitude},
			Mass:            spec.Mass,
			Area:            spec.CrossSection(),
			DragCoefficient: spec.DragCoefficient,
			Orbital:         orbital,
			Active:          true,
		},
	}
	p.bodies = append(p.bodies, b)
	return len(p.bodies) - 1, nil
}

// GravityAt returns the gravitational acceleration vector at altitude.
func (p *PhysicsSystem) GravityAt(altitude float64) model.Vec3 {
	r := p.cfg.PlanetRadius
	h := math.Max(altitude, 0)
	g := p.cfg.SurfaceGravity * (r / (r + h)) * (r / (r + h))
	return model.Vec3{Y: -g}
}

// GroundHeight returns the terrain elevation at (x, z).
func (p *PhysicsSystem) GroundHeight(x, z float64) float64 {
	return p.terrain.HeightAt(x, z)
}

// Substep returns the integration step used by Update.
func (p *PhysicsSystem) Substep() time.Duration {
	return p.cfg.MaxSubstep
}

// Update advances every free-falling body by dt. Applied forces are held
// constant across the substeps of one update and cleared afterwards.
func (p *PhysicsSystem) Update(dt time.Duration) {
	if dt <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	steps := int(math.Ceil(float64(dt) / float64(p.cfg.MaxSubstep)))
	h := dt.Seconds() / float64(steps)

	for _, b := range p.bodies {
		if !b.state.Active || b.state.Collided || b.state.Orbital {
			b.force = model.Vec3{}
			continue
		}
		forceAccel := b.force.Scale(1 / b.state.Mass)
		for i := 0; i < steps; i++ {
			accel := p.GravityAt(b.state.Position.Y).Add(forceAccel)
			if p.Step(&b.state, accel, h) {
				break
			}
		}
		b.force = model.Vec3{}
	}
}

// Step integrates one semi-implicit Euler step of length h seconds and
// reports whether the body reached the ground. On contact the body is
// clamped to the surface and marked collided.
func (p *PhysicsSystem) Step(st *model.BodyState, accel model.Vec3, h float64) bool {
	st.Velocity = st.Velocity.Add(accel.Scale(h))
	st.Position = st.Position.Add(st.Velocity.Scale(h))

	ground := p.terrain.HeightAt(st.Position.X, st.Position.Z)
	if st.Position.Y <= ground {
		st.Position.Y = ground
		st.Collided = true
		return true
	}
	return false
}

// State returns a copy of the body's kinematic state.
func (p *PhysicsSystem) State(index int) (model.BodyState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	b, err := p.bodyLocked(index)
	if err != nil {
		return model.BodyState{}, err
	}
	return b.state, nil
}

// ApplyForce accumulates a force for the next Update.
func (p *PhysicsSystem) ApplyForce(index int, f model.Vec3) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, err := p.bodyLocked(index)
	if err != nil {
		return err
	}
	if !b.state.Active || b.state.Collided {
		return fmt.Errorf("%w: %d", ErrBodyInactive, index)
	}
	b.force = b.force.Add(f)
	return nil
}

// DeOrbit releases a held orbital body. factor is the fraction of orbital
// speed removed by the retro burn; the remainder becomes horizontal velocity.
func (p *PhysicsSystem) DeOrbit(index int, factor float64) error {
	if factor < 0 || factor > 1 || math.IsNaN(factor) {
		return fmt.Errorf("%w: %v", ErrInvalidFactor, factor)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	b, err := p.bodyLocked(index)
	if err != nil {
		return err
	}
	if !b.state.Active || b.state.Collided {
		return fmt.Errorf("%w: %d", ErrBodyInactive, index)
	}
	if !b.state.Orbital {
		return fmt.Errorf("%w: %d", ErrNotOrbital, index)
	}

	var speed float64
	if p.orbit != nil {
		s, err := p.orbit.OrbitalSpeed(b.state.Position.Y)
		if err != nil {
			p.log.Warn(context.Background(), "orbit model unavailable; deorbiting from rest",
				logging.Int("body", index),
				logging.Err(err),
			)
		} else {
			speed = s
		}
	}

	b.state.Orbital = false
	b.state.Velocity = model.Vec3{X: speed * (1 - factor)}
	return nil
}

// LiveIndices yields the indices of bodies that are still in flight or held
// in orbit. Each iteration takes a fresh snapshot, so the sequence can be
// ranged over again and is safe against ApplyForce calls from the loop body.
func (p *PhysicsSystem) LiveIndices() iter.Seq[int] {
	return func(yield func(int) bool) {
		p.mu.RLock()
		live := make([]int, 0, len(p.bodies))
		for i, b := range p.bodies {
			if b.state.Active && !b.state.Collided {
				live = append(live, i)
			}
		}
		p.mu.RUnlock()

		for _, i := range live {
			if !yield(i) {
				return
			}
		}
	}
}

// Len reports how many bodies have been registered since the last Reset.
func (p *PhysicsSystem) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.bodies)
}

// Reset drops every body.
func (p *PhysicsSystem) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies = nil
}

func (p *PhysicsSystem) bodyLocked(index int) (*body, error) {
	if index < 0 || index >= len(p.bodies) {
		return nil, fmt.Errorf("%w: %d", ErrBodyNotFound, index)
	}
	return p.bodies[index], nil
}
