package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Rawrkanos/rodsfromnod/internal/sim/state"
	"github.com/Rawrkanos/rodsfromnod/model"
)

// SimCollector exposes orchestrator metrics. It satisfies the orchestrator's
// MetricsRecorder and SnapshotSink interfaces.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Launches     *prometheus.CounterVec
	Impacts      prometheus.Counter
	ImpactEnergy prometheus.Histogram
	Deorbits     *prometheus.CounterVec
	TierChanges  *prometheus.CounterVec
	Resets       *prometheus.CounterVec
	TickDuration prometheus.Histogram

	TimeAcceleration prometheus.Gauge
	Score            prometheus.Gauge
	ScoreOverall     prometheus.Gauge
	TotalEnergy      prometheus.Gauge
	PrestigeLevel    prometheus.Gauge
	AscensionLevel   prometheus.Gauge
	LaunchHeight     prometheus.Gauge
	BodyInFlight     prometheus.Gauge
	OrbitalPhase     prometheus.Gauge
}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &SimCollector{gatherer: gathererFor(reg)}

	var err error
	if c.Launches, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rodsim_launches_total",
		Help: "Rods launched, labeled by phase (suborbital or orbital).",
	}, []string{"phase"}), "rodsim_launches_total"); err != nil {
		return nil, err
	}
	if c.Impacts, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rodsim_impacts_total",
		Help: "Impacts resolved and folded into the score.",
	}), "rodsim_impacts_total"); err != nil {
		return nil, err
	}
	if c.ImpactEnergy, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rodsim_impact_energy_joules",
		Help:    "Kinetic energy delivered per impact.",
		Buckets: prometheus.ExponentialBuckets(1e6, 10, 8),
	}), "rodsim_impact_energy_joules"); err != nil {
		return nil, err
	}
	if c.Deorbits, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rodsim_deorbits_total",
		Help: "Deferred deorbit tasks, labeled by outcome (fired or stale).",
	}, []string{"outcome"}), "rodsim_deorbits_total"); err != nil {
		return nil, err
	}
	if c.TierChanges, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rodsim_tier_changes_total",
		Help: "Prestige and ascension transitions.",
	}, []string{"tier"}), "rodsim_tier_changes_total"); err != nil {
		return nil, err
	}
	if c.Resets, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rodsim_resets_total",
		Help: "Explicit resets, labeled by kind (soft or full).",
	}, []string{"kind"}), "rodsim_resets_total"); err != nil {
		return nil, err
	}
	if c.TickDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rodsim_tick_duration_seconds",
		Help:    "Wall time spent inside one orchestrator tick.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "rodsim_tick_duration_seconds"); err != nil {
		return nil, err
	}

	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.TimeAcceleration, "rodsim_time_acceleration", "Physics time advanced per unit of frame time in the last tick."},
		{&c.Score, "rodsim_score", "Score of the current run."},
		{&c.ScoreOverall, "rodsim_score_overall", "Score accumulated since the last full reset."},
		{&c.TotalEnergy, "rodsim_total_energy_joules", "Impact energy delivered in the current run."},
		{&c.PrestigeLevel, "rodsim_prestige_level", "Current prestige level."},
		{&c.AscensionLevel, "rodsim_ascension_level", "Current ascension level."},
		{&c.LaunchHeight, "rodsim_launch_height_meters", "Unlocked launch altitude."},
		{&c.BodyInFlight, "rodsim_body_in_flight", "1 while a rod is in flight."},
		{&c.OrbitalPhase, "rodsim_orbital_phase", "1 once launches start in orbit."},
	}
	for _, g := range gauges {
		gauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}

	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a /metrics handler over the collector's gatherer.
func (c *SimCollector) Handler() http.Handler {
	return handlerFor(c.Gatherer())
}

// RecordLaunch counts a launch.
func (c *SimCollector) RecordLaunch(orbital bool) {
	if c == nil {
		return
	}
	phase := "suborbital"
	if orbital {
		phase = "orbital"
	}
	c.Launches.WithLabelValues(phase).Inc()
}

// RecordImpact counts a folded impact and its energy.
func (c *SimCollector) RecordImpact(result model.ImpactResult) {
	if c == nil {
		return
	}
	c.Impacts.Inc()
	c.ImpactEnergy.Observe(result.Energy)
}

// RecordDeorbit counts a deferred deorbit by outcome.
func (c *SimCollector) RecordDeorbit(stale bool) {
	if c == nil {
		return
	}
	outcome := "fired"
	if stale {
		outcome = "stale"
	}
	c.Deorbits.WithLabelValues(outcome).Inc()
}

// RecordTierChange counts a prestige or ascension.
func (c *SimCollector) RecordTierChange(tier string) {
	if c == nil {
		return
	}
	c.TierChanges.WithLabelValues(tier).Inc()
}

// RecordReset counts an explicit reset.
func (c *SimCollector) RecordReset(full bool) {
	if c == nil {
		return
	}
	kind := "soft"
	if full {
		kind = "full"
	}
	c.Resets.WithLabelValues(kind).Inc()
}

// ObserveTick records tick latency and the effective time acceleration.
func (c *SimCollector) ObserveTick(wall time.Duration, multiplier float64) {
	if c == nil {
		return
	}
	c.TickDuration.Observe(wall.Seconds())
	c.TimeAcceleration.Set(multiplier)
}

// Publish mirrors a state snapshot into gauges.
func (c *SimCollector) Publish(snap state.Snapshot) {
	if c == nil {
		return
	}
	c.Score.Set(snap.Score)
	c.ScoreOverall.Set(snap.TotalScoreOverall)
	c.TotalEnergy.Set(snap.TotalEnergy)
	c.PrestigeLevel.Set(float64(snap.PrestigeLevel))
	c.AscensionLevel.Set(float64(snap.AscensionLevel))
	c.LaunchHeight.Set(snap.LaunchHeight)
	c.BodyInFlight.Set(boolGauge(snap.HasActiveBody()))
	c.OrbitalPhase.Set(boolGauge(snap.IsOrbitalPhase))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
