package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/model"
)

// resolveImpact runs the impact pipeline for a collided body. The body is
// cleared first so a failing resolver can never cause a second fold.
func (o *Orchestrator) resolveImpact(ctx context.Context, idx int, st model.BodyState) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.resolve_impact",
		trace.WithAttributes(attribute.Int("rod.index", idx)))
	defer span.End()

	o.state.ClearBody()
	o.trajectory = model.Trajectory{}
	o.decelerated = false

	if o.impact == nil {
		o.log.Debug(ctx, "no impact resolver, impact dropped", logging.Int("body", idx))
		return
	}

	var result model.ImpactResult
	if !o.guard(ctx, "impact.resolve", func() (err error) {
		result, err = o.impact.Resolve(idx, st)
		return err
	}) {
		span.SetStatus(codes.Error, "resolve failed")
		return
	}

	o.state.FoldImpact(result.Score, result.Energy)
	span.SetAttributes(
		attribute.Float64("impact.score", result.Score),
		attribute.Float64("impact.energy_j", result.Energy),
	)

	for _, gen := range o.effects {
		o.guard(ctx, "effect.generate", func() error {
			gen.Generate(idx, result)
			return nil
		})
	}
	o.metrics.RecordImpact(result)

	o.log.Info(ctx, "impact resolved",
		logging.Int("body", idx),
		logging.Float64("score", result.Score),
		logging.Float64("energy_j", result.Energy),
		logging.Float64("crater_radius_m", result.CraterRadius),
	)

	o.evaluateProgression(ctx)
}

// evaluateProgression applies unlocks and tier transitions after an impact.
// It only runs with no body in flight.
func (o *Orchestrator) evaluateProgression(ctx context.Context) {
	assert(!o.state.HasActiveBody(), "progression evaluated mid-flight")
	if o.progression == nil {
		return
	}

	totals := o.state.Totals()
	var height float64
	o.guard(ctx, "progression.observe", func() error {
		o.progression.Observe(totals)
		height = o.progression.LaunchHeight()
		return nil
	})
	if prev := o.state.LaunchHeight(); o.state.RaiseLaunchHeight(height) > prev {
		o.log.Info(ctx, "launch height raised", logging.Float64("height", o.state.LaunchHeight()))
	}
	o.checkOrbitalPhase(ctx)

	totals = o.state.Totals()
	if totals.TotalScorePerPrestige > o.cfg.PrestigeThreshold && totals.PrestigeLevel < o.cfg.PrestigeCap {
		o.triggerPrestige(ctx, totals)
	}

	totals = o.state.Totals()
	if totals.PrestigeLevel >= o.cfg.PrestigeCap && totals.AscensionLevel == 0 {
		o.triggerAscension(ctx, totals)
	}
}

// checkOrbitalPhase flips launches to orbital once the launch height
// reaches the threshold. The flag is never cleared here.
func (o *Orchestrator) checkOrbitalPhase(ctx context.Context) {
	if o.state.LaunchHeight() < o.cfg.OrbitalThreshold {
		return
	}
	if o.state.EnterOrbitalPhase() {
		o.log.Info(ctx, "orbital phase unlocked", logging.Float64("height", o.state.LaunchHeight()))
	}
}

func (o *Orchestrator) triggerPrestige(ctx context.Context, totals model.Totals) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.prestige")
	defer span.End()

	var out model.TierOutcome
	if !o.guard(ctx, "progression.prestige", func() (err error) {
		out, err = o.progression.TriggerPrestige(totals)
		return err
	}) {
		span.SetStatus(codes.Error, "prestige failed")
		return
	}
	o.state.ApplyPrestige(out)
	o.cascadeReset(ctx, false)
	o.metrics.RecordTierChange("prestige")
	span.SetAttributes(attribute.Int("tier.level", out.Level), attribute.Int("tier.points", out.Points))
	o.log.Info(ctx, "prestige",
		logging.Int("level", out.Level),
		logging.Int("points", out.Points),
	)
}

func (o *Orchestrator) triggerAscension(ctx context.Context, totals model.Totals) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.ascension")
	defer span.End()

	var out model.TierOutcome
	if !o.guard(ctx, "progression.ascension", func() (err error) {
		out, err = o.progression.TriggerAscension(totals)
		return err
	}) {
		span.SetStatus(codes.Error, "ascension failed")
		return
	}
	o.state.ApplyAscension(out)
	o.cascadeReset(ctx, false)
	o.metrics.RecordTierChange("ascension")
	span.SetAttributes(attribute.Int("tier.level", out.Level), attribute.Int("tier.points", out.Points))
	o.log.Info(ctx, "ascension",
		logging.Int("level", out.Level),
		logging.Int("points", out.Points),
	)
}
