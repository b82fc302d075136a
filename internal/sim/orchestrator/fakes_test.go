package orchestrator

import (
	"errors"
	"iter"
	"sort"
	"time"

	"github.com/Rawrkanos/rodsfromnod/internal/sim/state"
	"github.com/Rawrkanos/rodsfromnod/model"
)

var errFakeMissing = errors.New("fake: no such body")

// fakeBody falls straight down at a constant speed.
type fakeBody struct {
	y        float64
	speed    float64
	held     bool
	collided bool
}

type fakeRegistry struct {
	speed   float64
	bodies  map[int]*fakeBody
	next    int
	adds    int
	resets  int
	deorbit []float64
	forces  map[int]int
	queries map[int]int

	deorbitErr  error
	panicUpdate bool
}

func newFakeRegistry(speed float64) *fakeRegistry {
	return &fakeRegistry{
		speed:   speed,
		bodies:  make(map[int]*fakeBody),
		forces:  make(map[int]int),
		queries: make(map[int]int),
	}
}

func (r *fakeRegistry) AddObject(spec model.BodySpec, orbital bool, altitude float64) (int, error) {
	idx := r.next
	r.next++
	r.adds++
	r.bodies[idx] = &fakeBody{y: altitude, speed: r.speed, held: orbital}
	return idx, nil
}

func (r *fakeRegistry) Update(dt time.Duration) {
	if r.panicUpdate {
		r.panicUpdate = false
		panic("fake update exploded")
	}
	for _, b := range r.bodies {
		if b.held || b.collided {
			continue
		}
		b.y -= b.speed * dt.Seconds()
		if b.y <= 0 {
			b.y = 0
			b.collided = true
		}
	}
}

func (r *fakeRegistry) State(index int) (model.BodyState, error) {
	r.queries[index]++
	b, ok := r.bodies[index]
	if !ok {
		return model.BodyState{}, errFakeMissing
	}
	return model.BodyState{
		Position: model.Vec3{Y: b.y},
		Velocity: model.Vec3{Y: -b.speed},
		Mass:     100,
		Orbital:  b.held,
		Collided: b.collided,
		Active:   !b.collided,
	}, nil
}

func (r *fakeRegistry) ApplyForce(index int, f model.Vec3) error {
	if _, ok := r.bodies[index]; !ok {
		return errFakeMissing
	}
	r.forces[index]++
	return nil
}

func (r *fakeRegistry) DeOrbit(index int, factor float64) error {
	if r.deorbitErr != nil {
		return r.deorbitErr
	}
	b, ok := r.bodies[index]
	if !ok {
		return errFakeMissing
	}
	r.deorbit = append(r.deorbit, factor)
	b.held = false
	return nil
}

func (r *fakeRegistry) LiveIndices() iter.Seq[int] {
	return func(yield func(int) bool) {
		idxs := make([]int, 0, len(r.bodies))
		for i, b := range r.bodies {
			if !b.collided {
				idxs = append(idxs, i)
			}
		}
		sort.Ints(idxs)
		for _, i := range idxs {
			if !yield(i) {
				return
			}
		}
	}
}

func (r *fakeRegistry) Reset() {
	r.resets++
	r.bodies = make(map[int]*fakeBody)
	r.next = 0
}

// fakeAtmosphere predicts the exact constant-speed fall time.
type fakeAtmosphere struct {
	reg   *fakeRegistry
	calls int
	err   error
}

func (a *fakeAtmosphere) PreCalculateTrajectory(index int) (model.Trajectory, error) {
	a.calls++
	if a.err != nil {
		return model.Trajectory{}, a.err
	}
	b, ok := a.reg.bodies[index]
	if !ok {
		return model.Trajectory{}, errFakeMissing
	}
	fall := time.Duration(b.y / b.speed * float64(time.Second))
	return model.Trajectory{
		BodyIndex: index,
		Samples: []model.TrajectorySample{
			{Time: 0, Position: model.Vec3{Y: b.y}},
			{Time: fall, Position: model.Vec3{}},
		},
	}, nil
}

func (a *fakeAtmosphere) CalculateForces(model.BodyState) model.Vec3 {
	return model.Vec3{Y: 1}
}

type fakeImpact struct {
	score    float64
	energy   float64
	err      error
	resolved []int
	resets   int
}

func (f *fakeImpact) Resolve(index int, st model.BodyState) (model.ImpactResult, error) {
	f.resolved = append(f.resolved, index)
	if f.err != nil {
		return model.ImpactResult{}, f.err
	}
	return model.ImpactResult{BodyIndex: index, Score: f.score, Energy: f.energy}, nil
}

func (f *fakeImpact) Reset() { f.resets++ }

type fakeEffect struct {
	generated []int
	resets    int
}

func (f *fakeEffect) Generate(index int, _ model.ImpactResult) {
	f.generated = append(f.generated, index)
}

func (f *fakeEffect) Reset() { f.resets++ }

// fakeProgression unlocks heightAt once the run score reaches unlockScore.
type fakeProgression struct {
	base        float64
	unlockScore float64
	heightAt    float64

	height     float64
	prestige   int
	ascension  int
	observed   int
	resets     []bool
	prestiges  int
	ascensions int
}

func newFakeProgression(base float64) *fakeProgression {
	return &fakeProgression{base: base, height: base}
}

func (p *fakeProgression) Observe(t model.Totals) {
	p.observed++
	if p.unlockScore > 0 && t.Score >= p.unlockScore {
		p.height = p.heightAt
	}
}

func (p *fakeProgression) LaunchHeight() float64 { return p.height }

func (p *fakeProgression) TriggerPrestige(model.Totals) (model.TierOutcome, error) {
	p.prestiges++
	p.prestige++
	return model.TierOutcome{Level: p.prestige, Points: 1}, nil
}

func (p *fakeProgression) TriggerAscension(model.Totals) (model.TierOutcome, error) {
	p.ascensions++
	p.ascension++
	p.prestige = 0
	return model.TierOutcome{Level: p.ascension, Points: 5}, nil
}

func (p *fakeProgression) Reset(full bool) {
	p.resets = append(p.resets, full)
	p.height = p.base
	if full {
		p.prestige = 0
		p.ascension = 0
	}
}

type fakeFactory struct {
	launches int
	resets   int
}

func (f *fakeFactory) NewBody(height float64, orbital bool) model.BodySpec {
	f.launches++
	return model.BodySpec{Material: "tungsten", Mass: 100, Length: 0.66, Radius: 0.05, DragCoefficient: 0.82}
}

func (f *fakeFactory) Reset() { f.resets++ }

type countingResetter struct{ resets int }

func (c *countingResetter) Reset() { c.resets++ }

type recordingSink struct{ snaps []state.Snapshot }

func (s *recordingSink) Publish(snap state.Snapshot) { s.snaps = append(s.snaps, snap) }

type fakeMetrics struct {
	launches     []bool
	impacts      int
	deorbits     int
	staleDeorbit int
	tiers        []string
	resets       []bool
	ticks        int
}

func (m *fakeMetrics) RecordLaunch(orbital bool)          { m.launches = append(m.launches, orbital) }
func (m *fakeMetrics) RecordImpact(model.ImpactResult)    { m.impacts++ }
func (m *fakeMetrics) RecordTierChange(tier string)       { m.tiers = append(m.tiers, tier) }
func (m *fakeMetrics) RecordReset(full bool)              { m.resets = append(m.resets, full) }
func (m *fakeMetrics) ObserveTick(time.Duration, float64) { m.ticks++ }
func (m *fakeMetrics) RecordDeorbit(stale bool) {
	if stale {
		m.staleDeorbit++
		return
	}
	m.deorbits++
}
