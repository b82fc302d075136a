package core

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Rawrkanos/rodsfromnod/model"
)

// RodMaterial is a catalog entry for projectile construction.
type RodMaterial struct {
	Name            string
	Density         float64 // kg/m^3
	DragCoefficient float64
	// AblationSpeed is the speed above which the rod starts shedding mass.
	AblationSpeed float64 // m/s
}

// DefaultRodMaterials is the stock catalog. Tungsten is the default.
var DefaultRodMaterials = []RodMaterial{
	{Name: "tungsten", Density: 19300, DragCoefficient: 0.82, AblationSpeed: 3000},
	{Name: "depleted-uranium", Density: 19050, DragCoefficient: 0.82, AblationSpeed: 2500},
	{Name: "steel", Density: 7850, DragCoefficient: 0.9, AblationSpeed: 1500},
}

// RodGeometry is the rod's shape; mass follows from the material density.
type RodGeometry struct {
	Length float64 // m
	Radius float64 // m
}

// DefaultRodGeometry gives a roughly 100 kg tungsten rod.
func DefaultRodGeometry() RodGeometry {
	return RodGeometry{Length: 0.66, Radius: 0.05}
}

// RodFactory builds body specs for launches from the selected material.
type RodFactory struct {
	mu sync.RWMutex

	geometry  RodGeometry
	materials map[string]RodMaterial
	fallback  string
	selected  string
}

// NewRodFactory constructs a factory over the given catalog. The first
// material is the default selection. An empty catalog uses
// DefaultRodMaterials.
func NewRodFactory(geometry RodGeometry, catalog []RodMaterial) *RodFactory {
	if geometry.Length <= 0 || geometry.Radius <= 0 {
		geometry = DefaultRodGeometry()
	}
	if len(catalog) == 0 {
		catalog = DefaultRodMaterials
	}
	f := &RodFactory{
		geometry:  geometry,
		materials: make(map[string]RodMaterial, len(catalog)),
		fallback:  catalog[0].Name,
		selected:  catalog[0].Name,
	}
	for _, m := range catalog {
		f.materials[m.Name] = m
	}
	return f
}

// Materials lists the catalog names in sorted order.
func (f *RodFactory) Materials() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.materials))
	for name := range f.materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select switches the material used for subsequent bodies.
func (f *RodFactory) Select(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.materials[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMaterial, name)
	}
	f.selected = name
	return nil
}

// Selected returns the current material name.
func (f *RodFactory) Selected() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.selected
}

// NewBody returns the spec for a rod of the selected material. Height and
// phase do not change the rod itself.
func (f *RodFactory) NewBody(height float64, orbital bool) model.BodySpec {
	f.mu.RLock()
	defer f.mu.RUnlock()

	m := f.materials[f.selected]
	volume := math.Pi * f.geometry.Radius * f.geometry.Radius * f.geometry.Length
	return model.BodySpec{
		Material:        m.Name,
		Mass:            m.Density * volume,
		Length:          f.geometry.Length,
		Radius:          f.geometry.Radius,
		DragCoefficient: m.DragCoefficient,
	}
}

// Degradation reports ablation of a rod in flight.
type Degradation struct {
	Degraded bool
	MassLoss float64 // kg
}

// maxMassLossFraction bounds how much of the rod can ablate away.
const maxMassLossFraction = 0.5

// CheckDegradation estimates mass loss for the selected material at the given
// velocity. Loss grows linearly with the overspeed ratio: 10% of the rod per
// multiple of the ablation speed, capped at half the rod.
func (f *RodFactory) CheckDegradation(velocity model.Vec3) Degradation {
	f.mu.RLock()
	m := f.materials[f.selected]
	f.mu.RUnlock()

	speed := velocity.Norm()
	if m.AblationSpeed <= 0 || speed <= m.AblationSpeed {
		return Degradation{}
	}
	mass := f.NewBody(0, false).Mass
	frac := math.Min(0.1*(speed-m.AblationSpeed)/m.AblationSpeed, maxMassLossFraction)
	return Degradation{Degraded: true, MassLoss: mass * frac}
}

// Reset restores the default material.
func (f *RodFactory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = f.fallback
}
