package orchestrator

import "time"

// Config tunes the tick loop and progression gates.
type Config struct {
	// Epoch is where both clocks start and return to on a full reset.
	Epoch time.Time

	// AccelerationFactor is the fall speed multiplier while a precomputed
	// descent plays back.
	AccelerationFactor float64
	// DecelerationWindow is the simulated time before the predicted impact
	// that always plays at 1x.
	DecelerationWindow time.Duration

	// DeorbitDelay is the frame-clock delay between an orbital launch and
	// the deorbit burn.
	DeorbitDelay time.Duration
	// DeorbitMargin pads the predicted impact time after a deorbit.
	DeorbitMargin time.Duration
	// DeorbitFactor is the fraction of orbital speed removed by the burn.
	DeorbitFactor float64

	// BaseLaunchHeight is used when no progression controller is wired.
	BaseLaunchHeight float64
	// OrbitalThreshold is the launch height that switches to orbital
	// launches.
	OrbitalThreshold float64

	PrestigeThreshold float64
	PrestigeCap       int
}

// DefaultConfig returns the stock orchestrator tuning.
func DefaultConfig() Config {
	return Config{
		Epoch:              time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
		AccelerationFactor: 10,
		DecelerationWindow: 5 * time.Second,
		DeorbitDelay:       time.Second,
		DeorbitMargin:      time.Second,
		DeorbitFactor:      0.95,
		BaseLaunchHeight:   30000,
		OrbitalThreshold:   160000,
		PrestigeThreshold:  1e6,
		PrestigeCap:        10,
	}
}

// ApplyDefaults fills zero or invalid fields.
func (c Config) ApplyDefaults() Config {
	def := DefaultConfig()
	if c.Epoch.IsZero() {
		c.Epoch = def.Epoch
	}
	if c.AccelerationFactor < 1 {
		c.AccelerationFactor = def.AccelerationFactor
	}
	if c.DecelerationWindow <= 0 {
		c.DecelerationWindow = def.DecelerationWindow
	}
	if c.DeorbitDelay <= 0 {
		c.DeorbitDelay = def.DeorbitDelay
	}
	if c.DeorbitMargin <= 0 {
		c.DeorbitMargin = def.DeorbitMargin
	}
	if c.DeorbitFactor <= 0 || c.DeorbitFactor > 1 {
		c.DeorbitFactor = def.DeorbitFactor
	}
	if c.BaseLaunchHeight <= 0 {
		c.BaseLaunchHeight = def.BaseLaunchHeight
	}
	if c.OrbitalThreshold <= 0 {
		c.OrbitalThreshold = def.OrbitalThreshold
	}
	if c.PrestigeThreshold <= 0 {
		c.PrestigeThreshold = def.PrestigeThreshold
	}
	if c.PrestigeCap <= 0 {
		c.PrestigeCap = def.PrestigeCap
	}
	return c
}
