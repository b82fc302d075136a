package core

import "errors"

var (
	// ErrBodyNotFound indicates an index outside the registry.
	ErrBodyNotFound = errors.New("body not found")
	// ErrBodyInactive indicates the body has already collided.
	ErrBodyInactive = errors.New("body is not active")
	// ErrInvalidBody indicates a body spec with non-physical parameters.
	ErrInvalidBody = errors.New("invalid body spec")
	// ErrNotOrbital indicates a deorbit request for a body that is not held in orbit.
	ErrNotOrbital = errors.New("body is not held in orbit")
	// ErrInvalidFactor indicates a deorbit factor outside [0, 1].
	ErrInvalidFactor = errors.New("deorbit factor must be within [0, 1]")
	// ErrNoImpact indicates a precomputed trajectory never reached the ground.
	ErrNoImpact = errors.New("trajectory does not reach the ground")
	// ErrNotCollided indicates an impact resolution request for a body still in flight.
	ErrNotCollided = errors.New("body has not collided")
	// ErrUnknownMaterial indicates a rod material missing from the catalog.
	ErrUnknownMaterial = errors.New("unknown rod material")
	// ErrOrbitPropagation indicates SGP4 could not produce a usable state.
	ErrOrbitPropagation = errors.New("orbit propagation failed")
)
