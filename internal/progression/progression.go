// Package progression tracks upgrades, prestige and ascension. It owns the
// tier data; the orchestrator decides when tiers are triggered.
package progression

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/model"
)

var (
	// ErrPrestigeCapped indicates prestige was requested at the cap.
	ErrPrestigeCapped = errors.New("prestige level is capped")
	// ErrPrestigeIncomplete indicates ascension was requested before the prestige cap.
	ErrPrestigeIncomplete = errors.New("prestige cap not reached")
)

// Config tunes the upgrade curve and tier rewards.
type Config struct {
	// BaseLaunchHeight is the drop altitude at upgrade level 0, metres.
	BaseLaunchHeight float64
	// HeightGrowth multiplies the launch height per upgrade level.
	HeightGrowth float64
	// MaxUpgradeLevel caps the upgrade curve.
	MaxUpgradeLevel int

	// UpgradeBaseCost is the run score unlocking level 1; each further level
	// costs UpgradeCostGrowth times the previous one.
	UpgradeBaseCost   float64
	UpgradeCostGrowth float64

	// PrestigeCap is the highest prestige level.
	PrestigeCap int
	// PrestigePointDivisor converts per-prestige score into points:
	// floor(sqrt(score / divisor)), at least 1.
	PrestigePointDivisor float64
}

// DefaultConfig returns the stock progression curve. Level 4 sits just below
// the 160 km orbital threshold and level 5 crosses it.
func DefaultConfig() Config {
	return Config{
		BaseLaunchHeight:     30000,
		HeightGrowth:         1.5,
		MaxUpgradeLevel:      12,
		UpgradeBaseCost:      1000,
		UpgradeCostGrowth:    2.5,
		PrestigeCap:          10,
		PrestigePointDivisor: 1e6,
	}
}

// ApplyDefaults fills zero or invalid fields.
func (c Config) ApplyDefaults() Config {
	def := DefaultConfig()
	if c.BaseLaunchHeight <= 0 {
		c.BaseLaunchHeight = def.BaseLaunchHeight
	}
	if c.HeightGrowth < 1 {
		c.HeightGrowth = def.HeightGrowth
	}
	if c.MaxUpgradeLevel <= 0 {
		c.MaxUpgradeLevel = def.MaxUpgradeLevel
	}
	if c.UpgradeBaseCost <= 0 {
		c.UpgradeBaseCost = def.UpgradeBaseCost
	}
	if c.UpgradeCostGrowth <= 1 {
		c.UpgradeCostGrowth = def.UpgradeCostGrowth
	}
	if c.PrestigeCap <= 0 {
		c.PrestigeCap = def.PrestigeCap
	}
	if c.PrestigePointDivisor <= 0 {
		c.PrestigePointDivisor = def.PrestigePointDivisor
	}
	return c
}

// Levels is a copy of the controller's tier data.
type Levels struct {
	Upgrade         int
	Prestige        int
	Ascension       int
	PrestigePoints  int
	AscensionPoints int
}

// Controller is the reference progression controller.
type Controller struct {
	mu  sync.RWMutex
	cfg Config
	log logging.Logger

	levels Levels
}

// New constructs a controller at the start of an epoch.
func New(cfg Config, log logging.Logger) *Controller {
	if log == nil {
		log = logging.Noop()
	}
	return &Controller{cfg: cfg.ApplyDefaults(), log: log}
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Observe unlocks every upgrade level the run score now pays for. Levels are
// never lost within a run.
func (c *Controller) Observe(t model.Totals) {
	c.mu.Lock()
	defer c.mu.Unlock()

	level := c.levels.Upgrade
	for level < c.cfg.MaxUpgradeLevel && t.Score >= c.upgradeCost(level+1) {
		level++
	}
	if level != c.levels.Upgrade {
		c.log.Info(context.Background(), "upgrade unlocked",
			logging.Int("level", level),
			logging.Float64("launch_height", c.heightFor(level)),
		)
		c.levels.Upgrade = level
	}
}

// UpgradeCost returns the run score needed for the given level.
func (c *Controller) UpgradeCost(level int) float64 {
	return c.upgradeCost(level)
}

func (c *Controller) upgradeCost(level int) float64 {
	if level <= 0 {
		return 0
	}
	return c.cfg.UpgradeBaseCost * math.Pow(c.cfg.UpgradeCostGrowth, float64(level-1))
}

// LaunchHeight returns the drop altitude unlocked by the current upgrade level.
func (c *Controller) LaunchHeight() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.heightFor(c.levels.Upgrade)
}

func (c *Controller) heightFor(level int) float64 {
	return c.cfg.BaseLaunchHeight * math.Pow(c.cfg.HeightGrowth, float64(level))
}

// TriggerPrestige advances one prestige level and awards points from the
// per-prestige score. Upgrades are forfeited.
func (c *Controller) TriggerPrestige(t model.Totals) (model.TierOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.levels.Prestige >= c.cfg.PrestigeCap {
		return model.TierOutcome{}, fmt.Errorf("%w: level %d", ErrPrestigeCapped, c.levels.Prestige)
	}
	points := int(math.Sqrt(math.Max(t.TotalScorePerPrestige, 0) / c.cfg.PrestigePointDivisor))
	if points < 1 {
		points = 1
	}

	c.levels.Prestige++
	c.levels.PrestigePoints += points
	c.levels.Upgrade = 0
	return model.TierOutcome{Level: c.levels.Prestige, Points: points}, nil
}

// TriggerAscension converts the prestige track into ascension points once
// the prestige cap is reached. Prestige levels, points and upgrades reset.
func (c *Controller) TriggerAscension(t model.Totals) (model.TierOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.levels.Prestige < c.cfg.PrestigeCap {
		return model.TierOutcome{}, fmt.Errorf("%w: level %d of %d", ErrPrestigeIncomplete, c.levels.Prestige, c.cfg.PrestigeCap)
	}
	points := 1 + c.levels.PrestigePoints/10

	c.levels.Ascension++
	c.levels.AscensionPoints += points
	c.levels.Prestige = 0
	c.levels.PrestigePoints = 0
	c.levels.Upgrade = 0
	return model.TierOutcome{Level: c.levels.Ascension, Points: points}, nil
}

// Reset clears the upgrade level; a full reset also clears every tier.
func (c *Controller) Reset(full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if full {
		c.levels = Levels{}
		return
	}
	c.levels.Upgrade = 0
}

// Levels returns a copy of the tier data.
func (c *Controller) Levels() Levels {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.levels
}
