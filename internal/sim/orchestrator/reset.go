package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/model"
)

// Reset starts a new run. A soft reset keeps long-horizon totals, tier
// levels and the orbital flag; a full reset returns to a fresh epoch and
// rewinds both clocks. Pending deferred tasks are not cancelled; the epoch
// bump makes them stale.
func (o *Orchestrator) Reset(ctx context.Context, full bool) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.reset",
		trace.WithAttributes(attribute.Bool("reset.full", full)))
	defer span.End()

	o.cascadeReset(ctx, full)
	o.metrics.RecordReset(full)
	o.log.Info(ctx, "simulation reset", logging.Bool("full", full))
	o.publish(ctx)
}

// cascadeReset resets every collaborator, then the local state.
func (o *Orchestrator) cascadeReset(ctx context.Context, full bool) {
	o.epoch++

	o.guard(ctx, "registry.reset", func() error {
		o.registry.Reset()
		return nil
	})
	if o.bodies != nil {
		o.guard(ctx, "bodies.reset", func() error {
			o.bodies.Reset()
			return nil
		})
	}
	if o.impact != nil {
		o.guard(ctx, "impact.reset", func() error {
			o.impact.Reset()
			return nil
		})
	}
	for _, gen := range o.effects {
		o.guard(ctx, "effect.reset", func() error {
			gen.Reset()
			return nil
		})
	}
	for _, r := range o.resetters {
		o.guard(ctx, "resetter.reset", func() error {
			r.Reset()
			return nil
		})
	}
	if o.progression != nil {
		o.guard(ctx, "progression.reset", func() error {
			o.progression.Reset(full)
			return nil
		})
	}

	o.trajectory = model.Trajectory{}
	o.decelerated = false

	base := o.baseLaunchHeight()
	if full {
		o.frameClock.Reset()
		o.simClock.Reset()
		o.state.FullReset(base, o.simClock.Now(), o.frameClock.Now())
	} else {
		o.state.SoftReset(base)
	}
	o.checkOrbitalPhase(ctx)
}
