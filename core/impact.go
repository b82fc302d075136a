package core

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Rawrkanos/rodsfromnod/model"
)

// CraterSink receives the crater carved by an impact.
type CraterSink interface {
	ApplyCrater(center model.Vec3, radius, depth float64)
}

// ImpactConfig tunes energy-to-consequence scaling.
type ImpactConfig struct {
	// ScorePerJoule converts kinetic energy into score.
	ScorePerJoule float64
	// CraterScale multiplies E^(1/3) to give the crater radius.
	CraterScale float64
	// DepthRatio is crater depth over radius.
	DepthRatio float64
	// EjectaPerJoule converts kinetic energy into ejected mass (kg/J).
	EjectaPerJoule float64
	// FireballScale multiplies the crater radius for the explosion visual.
	FireballScale float64
}

// DefaultImpactConfig returns the stock scaling.
func DefaultImpactConfig() ImpactConfig {
	return ImpactConfig{
		ScorePerJoule:  1e-4,
		CraterScale:    0.1,
		DepthRatio:     0.25,
		EjectaPerJoule: 1e-3,
		FireballScale:  2,
	}
}

// ApplyDefaults fills zero or invalid fields.
func (c ImpactConfig) ApplyDefaults() ImpactConfig {
	def := DefaultImpactConfig()
	if c.ScorePerJoule <= 0 {
		c.ScorePerJoule = def.ScorePerJoule
	}
	if c.CraterScale <= 0 {
		c.CraterScale = def.CraterScale
	}
	if c.DepthRatio <= 0 {
		c.DepthRatio = def.DepthRatio
	}
	if c.EjectaPerJoule <= 0 {
		c.EjectaPerJoule = def.EjectaPerJoule
	}
	if c.FireballScale <= 0 {
		c.FireballScale = def.FireballScale
	}
	return c
}

// ImpactAnimation is the read-only data a renderer needs for the explosion.
type ImpactAnimation struct {
	Position        model.Vec3
	ExplosionRadius float64
	Duration        time.Duration
}

// ImpactSystem turns a collided body into score, energy and a crater.
type ImpactSystem struct {
	cfg     ImpactConfig
	craters CraterSink

	mu         sync.RWMutex
	animations map[int]ImpactAnimation
}

// NewImpactSystem constructs an impact resolver. craters may be nil.
func NewImpactSystem(cfg ImpactConfig, craters CraterSink) *ImpactSystem {
	return &ImpactSystem{
		cfg:        cfg.ApplyDefaults(),
		craters:    craters,
		animations: make(map[int]ImpactAnimation),
	}
}

// Resolve computes the impact consequences for a collided body.
func (s *ImpactSystem) Resolve(index int, st model.BodyState) (model.ImpactResult, error) {
	if !st.Collided {
		return model.ImpactResult{}, fmt.Errorf("%w: %d", ErrNotCollided, index)
	}

	speed := st.Velocity.Norm()
	energy := 0.5 * st.Mass * speed * speed
	radius := math.Cbrt(energy) * s.cfg.CraterScale
	depth := radius * s.cfg.DepthRatio

	result := model.ImpactResult{
		BodyIndex:    index,
		Score:        energy * s.cfg.ScorePerJoule,
		Energy:       energy,
		Position:     st.Position,
		Velocity:     st.Velocity,
		CraterRadius: radius,
		CraterDepth:  depth,
		EjectaMass:   energy * s.cfg.EjectaPerJoule,
	}

	if s.craters != nil {
		s.craters.ApplyCrater(st.Position, radius, depth)
	}

	s.mu.Lock()
	s.animations[index] = ImpactAnimation{
		Position:        st.Position,
		ExplosionRadius: radius * s.cfg.FireballScale,
		Duration:        time.Duration(math.Max(1, math.Log10(energy+1)) * float64(time.Second)),
	}
	s.mu.Unlock()

	return result, nil
}

// AnimationData returns the explosion data for a resolved body.
func (s *ImpactSystem) AnimationData(index int) (ImpactAnimation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.animations[index]
	return a, ok
}

// Reset forgets every resolved impact.
func (s *ImpactSystem) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animations = make(map[int]ImpactAnimation)
}
