package core

import (
	"errors"
	"math"
	"testing"

	"github.com/Rawrkanos/rodsfromnod/model"
)

func collidedState(mass, speed float64) model.BodyState {
	return model.BodyState{
		Position: model.Vec3{X: 10, Z: -5},
		Velocity: model.Vec3{Y: -speed},
		Mass:     mass,
		Collided: true,
		Active:   true,
	}
}

func TestImpactSystem_ResolveScalesWithEnergy(t *testing.T) {
	terrain := NewTerrain(0)
	impact := NewImpactSystem(DefaultImpactConfig(), terrain)

	res, err := impact.Resolve(4, collidedState(100, 1000))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	wantEnergy := 0.5 * 100 * 1000 * 1000
	if res.Energy != wantEnergy {
		t.Fatalf("Energy = %v, want %v", res.Energy, wantEnergy)
	}
	if res.Score != wantEnergy*1e-4 {
		t.Fatalf("Score = %v, want %v", res.Score, wantEnergy*1e-4)
	}
	if want := math.Cbrt(wantEnergy) / 10; math.Abs(res.CraterRadius-want) > 1e-9 {
		t.Fatalf("CraterRadius = %v, want %v", res.CraterRadius, want)
	}
	if math.Abs(res.EjectaMass-wantEnergy/1000) > 1e-6 {
		t.Fatalf("EjectaMass = %v, want %v", res.EjectaMass, wantEnergy/1000)
	}
	if res.BodyIndex != 4 {
		t.Fatalf("BodyIndex = %d, want 4", res.BodyIndex)
	}

	if got := terrain.HeightAt(10, -5); math.Abs(got+res.CraterDepth) > 1e-9 {
		t.Fatalf("crater floor = %v, want %v", got, -res.CraterDepth)
	}
	anim, ok := impact.AnimationData(4)
	if !ok || anim.ExplosionRadius <= res.CraterRadius {
		t.Fatalf("AnimationData = %+v, %v", anim, ok)
	}

	impact.Reset()
	if _, ok := impact.AnimationData(4); ok {
		t.Fatalf("animation survived Reset")
	}
}

func TestImpactSystem_RejectsBodyInFlight(t *testing.T) {
	impact := NewImpactSystem(DefaultImpactConfig(), nil)
	st := collidedState(100, 10)
	st.Collided = false
	if _, err := impact.Resolve(0, st); !errors.Is(err, ErrNotCollided) {
		t.Fatalf("err = %v, want ErrNotCollided", err)
	}
}

func TestEjectaSystem_GenerateIsDeterministicAndOneShot(t *testing.T) {
	res := model.ImpactResult{Energy: 5e7, EjectaMass: 5e4, Position: model.Vec3{X: 1}}

	a := NewEjectaSystem(DefaultEjectaConfig())
	b := NewEjectaSystem(DefaultEjectaConfig())
	a.Generate(2, res)
	b.Generate(2, res)

	da, ok := a.AnimationData(2)
	if !ok {
		t.Fatalf("no ejecta for body 2")
	}
	db, _ := b.AnimationData(2)
	if len(da.Particles) != len(db.Particles) || da.Particles[0] != db.Particles[0] {
		t.Fatalf("ejecta not reproducible for the same seed and body")
	}
	if n := len(da.Particles); n < 8 || n > 256 {
		t.Fatalf("particle count = %d, want within [8, 256]", n)
	}
	for _, p := range da.Particles {
		if p.Velocity.Y <= 0 {
			t.Fatalf("particle launched downwards: %+v", p)
		}
	}

	bigger := res
	bigger.EjectaMass *= 10
	a.Generate(2, bigger)
	again, _ := a.AnimationData(2)
	if again.TotalMass != da.TotalMass {
		t.Fatalf("second Generate overwrote debris set")
	}

	a.Reset()
	if _, ok := a.AnimationData(2); ok {
		t.Fatalf("ejecta survived Reset")
	}
}

func TestShockwaveSystem_RadiusFollowsCubeRootEnergy(t *testing.T) {
	s := NewShockwaveSystem(ShockwaveConfig{})
	s.Generate(0, model.ImpactResult{Energy: 1e6})
	s.Generate(1, model.ImpactResult{Energy: 8e6})

	small, ok := s.AnimationData(0)
	if !ok {
		t.Fatalf("no shockwave for body 0")
	}
	large, _ := s.AnimationData(1)
	if ratio := large.MaxRadius / small.MaxRadius; math.Abs(ratio-2) > 1e-9 {
		t.Fatalf("radius ratio = %v, want 2", ratio)
	}
	if small.Duration <= 0 {
		t.Fatalf("Duration = %v, want positive", small.Duration)
	}

	s.Reset()
	if _, ok := s.AnimationData(1); ok {
		t.Fatalf("shockwave survived Reset")
	}
}
