package core

import (
	"math"
	"sync"

	"github.com/Rawrkanos/rodsfromnod/model"
)

// Crater is a paraboloid depression carved into the terrain by an impact.
type Crater struct {
	Center model.Vec3 // only X and Z are meaningful
	Radius float64
	Depth  float64
}

// Terrain is a flat datum at BaseElevation that accumulates crater
// depressions. Height-field generation itself is left to the renderer.
type Terrain struct {
	mu            sync.RWMutex
	baseElevation float64
	craters       []Crater
}

// NewTerrain constructs a flat terrain at the given elevation.
func NewTerrain(baseElevation float64) *Terrain {
	return &Terrain{baseElevation: baseElevation}
}

// HeightAt returns the ground height at (x, z), taking the deepest crater
// covering that point.
func (t *Terrain) HeightAt(x, z float64) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h := t.baseElevation
	for _, c := range t.craters {
		if c.Radius <= 0 {
			continue
		}
		d := math.Hypot(x-c.Center.X, z-c.Center.Z)
		if d >= c.Radius {
			continue
		}
		r := d / c.Radius
		floor := t.baseElevation - c.Depth*(1-r*r)
		if floor < h {
			h = floor
		}
	}
	return h
}

// ApplyCrater records a new depression.
func (t *Terrain) ApplyCrater(center model.Vec3, radius, depth float64) {
	if radius <= 0 || depth <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.craters = append(t.craters, Crater{
		Center: model.Vec3{X: center.X, Z: center.Z},
		Radius: radius,
		Depth:  depth,
	})
}

// Craters returns a copy of the recorded craters.
func (t *Terrain) Craters() []Crater {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Crater, len(t.craters))
	copy(out, t.craters)
	return out
}

// Reset removes every crater.
func (t *Terrain) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.craters = nil
}
