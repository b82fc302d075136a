package core

import (
	"math"
	"sync"
	"time"

	"github.com/Rawrkanos/rodsfromnod/model"
)

// ShockwaveAnimation describes the expanding blast ring for one impact.
type ShockwaveAnimation struct {
	Origin    model.Vec3
	MaxRadius float64       // m
	Duration  time.Duration // time for the front to reach MaxRadius
}

// ShockwaveConfig tunes blast scaling.
type ShockwaveConfig struct {
	// RadiusScale multiplies E^(1/3) to give the blast radius.
	RadiusScale float64
	// FrontSpeed is the propagation speed of the front, m/s.
	FrontSpeed float64
}

// DefaultShockwaveConfig returns the stock blast scaling.
func DefaultShockwaveConfig() ShockwaveConfig {
	return ShockwaveConfig{RadiusScale: 0.5, FrontSpeed: 343}
}

// ShockwaveSystem generates one blast ring per impact.
type ShockwaveSystem struct {
	cfg ShockwaveConfig

	mu         sync.RWMutex
	animations map[int]ShockwaveAnimation
}

// NewShockwaveSystem constructs a blast generator.
func NewShockwaveSystem(cfg ShockwaveConfig) *ShockwaveSystem {
	def := DefaultShockwaveConfig()
	if cfg.RadiusScale <= 0 {
		cfg.RadiusScale = def.RadiusScale
	}
	if cfg.FrontSpeed <= 0 {
		cfg.FrontSpeed = def.FrontSpeed
	}
	return &ShockwaveSystem{cfg: cfg, animations: make(map[int]ShockwaveAnimation)}
}

// Generate builds the blast ring for an impact. A second call for the same
// body is ignored.
func (s *ShockwaveSystem) Generate(index int, impact model.ImpactResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.animations[index]; done {
		return
	}

	yield := math.Cbrt(math.Max(impact.Energy, 0))
	radius := yield * s.cfg.RadiusScale
	s.animations[index] = ShockwaveAnimation{
		Origin:    impact.Position,
		MaxRadius: radius,
		Duration:  time.Duration(radius / s.cfg.FrontSpeed * float64(time.Second)),
	}
}

// AnimationData returns the blast ring for a resolved body.
func (s *ShockwaveSystem) AnimationData(index int) (ShockwaveAnimation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.animations[index]
	return a, ok
}

// Reset forgets every blast ring.
func (s *ShockwaveSystem) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animations = make(map[int]ShockwaveAnimation)
}
