package model

import "math"

// BodySpec describes a projectile before it is registered with the
// physics system. Units are SI.
type BodySpec struct {
	Material        string
	Mass            float64 // kg
	Length          float64 // m
	Radius          float64 // m
	DragCoefficient float64
}

// CrossSection returns the frontal area presented by a rod falling tip-first.
func (s BodySpec) CrossSection() float64 {
	return math.Pi * s.Radius * s.Radius
}

// BodyState is the kinematic state of one registered body as reported by the
// physics system.
type BodyState struct {
	Position Vec3
	Velocity Vec3

	Mass            float64
	Area            float64
	DragCoefficient float64

	// Orbital is true while the body is held in orbit awaiting deorbit.
	Orbital  bool
	Collided bool
	Active   bool
}

// Altitude returns the body's height above the datum.
func (s BodyState) Altitude() float64 {
	return s.Position.Y
}

// Speed returns the magnitude of the body's velocity.
func (s BodyState) Speed() float64 {
	return s.Velocity.Norm()
}
