package core

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/Rawrkanos/rodsfromnod/model"
)

// ParticleKind classifies a debris particle for rendering.
type ParticleKind string

const (
	ParticleDirt           ParticleKind = "dirt"
	ParticleRock           ParticleKind = "rock"
	ParticleBoulder        ParticleKind = "boulder"
	ParticleFlamingBoulder ParticleKind = "flamingBoulder"
)

// Particle is one piece of ejected debris.
type Particle struct {
	Kind     ParticleKind
	Position model.Vec3
	Velocity model.Vec3
	Mass     float64
}

// EjectaAnimation is the debris set generated for one impact.
type EjectaAnimation struct {
	TotalMass float64
	Particles []Particle
}

// EjectaConfig tunes debris generation.
type EjectaConfig struct {
	MaxParticles int
	MinParticles int
	// Seed makes particle sets reproducible; the body index is mixed in.
	Seed uint64
}

// DefaultEjectaConfig returns the stock debris settings.
func DefaultEjectaConfig() EjectaConfig {
	return EjectaConfig{MaxParticles: 256, MinParticles: 8, Seed: 0x5eed}
}

// EjectaSystem generates one debris set per impact.
type EjectaSystem struct {
	cfg EjectaConfig

	mu         sync.RWMutex
	animations map[int]EjectaAnimation
}

// NewEjectaSystem constructs a debris generator.
func NewEjectaSystem(cfg EjectaConfig) *EjectaSystem {
	def := DefaultEjectaConfig()
	if cfg.MaxParticles <= 0 {
		cfg.MaxParticles = def.MaxParticles
	}
	if cfg.MinParticles <= 0 || cfg.MinParticles > cfg.MaxParticles {
		cfg.MinParticles = min(def.MinParticles, cfg.MaxParticles)
	}
	return &EjectaSystem{cfg: cfg, animations: make(map[int]EjectaAnimation)}
}

// Generate builds the debris set for an impact. A second call for the same
// body is ignored.
func (s *EjectaSystem) Generate(index int, impact model.ImpactResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.animations[index]; done {
		return
	}

	count := int(math.Sqrt(impact.EjectaMass))
	count = max(s.cfg.MinParticles, min(count, s.cfg.MaxParticles))

	rng := rand.New(rand.NewPCG(s.cfg.Seed, uint64(index)))
	launchSpeed := math.Sqrt(math.Max(impact.Energy, 0)/math.Max(impact.EjectaMass, 1)) * 0.1
	perParticle := impact.EjectaMass / float64(count)

	anim := EjectaAnimation{TotalMass: impact.EjectaMass, Particles: make([]Particle, 0, count)}
	for i := 0; i < count; i++ {
		azimuth := rng.Float64() * 2 * math.Pi
		elevation := math.Pi/6 + rng.Float64()*math.Pi/3
		speed := launchSpeed * (0.5 + rng.Float64())
		mass := perParticle * (0.25 + 1.5*rng.Float64())

		anim.Particles = append(anim.Particles, Particle{
			Kind:     particleKind(mass, perParticle, rng.Float64()),
			Position: impact.Position,
			Velocity: model.Vec3{
				X: speed * math.Cos(elevation) * math.Cos(azimuth),
				Y: speed * math.Sin(elevation),
				Z: speed * math.Cos(elevation) * math.Sin(azimuth),
			},
			Mass: mass,
		})
	}
	s.animations[index] = anim
}

func particleKind(mass, mean, roll float64) ParticleKind {
	switch {
	case mass > 1.5*mean && roll < 0.3:
		return ParticleFlamingBoulder
	case mass > 1.2*mean:
		return ParticleBoulder
	case mass > 0.6*mean:
		return ParticleRock
	default:
		return ParticleDirt
	}
}

// AnimationData returns the debris set for a resolved body.
func (s *EjectaSystem) AnimationData(index int) (EjectaAnimation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.animations[index]
	return a, ok
}

// Reset forgets every debris set.
func (s *EjectaSystem) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animations = make(map[int]EjectaAnimation)
}
