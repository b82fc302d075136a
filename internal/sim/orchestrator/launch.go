package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/model"
)

// deorbitToken ties a deferred deorbit to the launch that scheduled it. A
// token whose epoch or body no longer matches is stale.
type deorbitToken struct {
	epoch uint64
	index int
}

// LaunchBody registers a new projectile at the unlocked launch height.
// Suborbital bodies start falling at once with an accelerated precomputed
// descent; orbital bodies are held until a deferred deorbit fires. It
// returns ErrBodyInFlight without side effects while a body is active.
func (o *Orchestrator) LaunchBody(ctx context.Context) error {
	if !o.running.Load() {
		return ErrStopped
	}
	if o.state.HasActiveBody() {
		return ErrBodyInFlight
	}
	if o.bodies == nil {
		return ErrNoBodyFactory
	}

	height := o.state.LaunchHeight()
	orbital := o.state.IsOrbitalPhase()

	ctx, span := o.tracer.Start(ctx, "orchestrator.launch", trace.WithAttributes(
		attribute.Float64("rod.launch_height", height),
		attribute.Bool("rod.orbital", orbital),
	))
	defer span.End()

	var spec model.BodySpec
	var idx int
	ok := o.guard(ctx, "registry.add_object", func() (err error) {
		spec = o.bodies.NewBody(height, orbital)
		idx, err = o.registry.AddObject(spec, orbital, height)
		return err
	})
	if !ok {
		span.SetStatus(codes.Error, "add object failed")
		return ErrCollaborator
	}
	span.SetAttributes(attribute.Int("rod.index", idx), attribute.String("rod.material", spec.Material))

	o.epoch++
	o.trajectory = model.Trajectory{}
	o.decelerated = false
	o.state.ActivateBody(idx)
	o.metrics.RecordLaunch(orbital)

	o.log.Info(ctx, "body launched",
		logging.Int("body", idx),
		logging.Float64("height", height),
		logging.Bool("orbital", orbital),
		logging.String("material", spec.Material),
	)

	if orbital {
		o.scheduleDeorbit(ctx, deorbitToken{epoch: o.epoch, index: idx})
	} else {
		o.beginDescent(ctx, idx, 0)
	}
	o.publish(ctx)
	return nil
}

// scheduleDeorbit queues the deorbit burn on the frame clock.
func (o *Orchestrator) scheduleDeorbit(ctx context.Context, tok deorbitToken) {
	ctx = context.WithoutCancel(ctx)
	at := o.scheduler.Now().Add(o.cfg.DeorbitDelay)
	o.scheduler.Schedule(at, func() { o.fireDeorbit(ctx, tok) })
	o.log.Debug(ctx, "deorbit scheduled",
		logging.Int("body", tok.index),
		logging.Any("at", at),
	)
}

// fireDeorbit runs the deferred burn. Stale tokens are ignored.
func (o *Orchestrator) fireDeorbit(ctx context.Context, tok deorbitToken) {
	if tok.epoch != o.epoch || o.state.CurrentBody() != tok.index {
		o.log.Debug(ctx, "stale deorbit ignored",
			logging.Int("body", tok.index),
			logging.Any("token_epoch", tok.epoch),
			logging.Any("epoch", o.epoch),
		)
		o.metrics.RecordDeorbit(true)
		return
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.deorbit",
		trace.WithAttributes(attribute.Int("rod.index", tok.index)))
	defer span.End()

	if !o.guard(ctx, "registry.deorbit", func() error {
		return o.registry.DeOrbit(tok.index, o.cfg.DeorbitFactor)
	}) {
		// A body that cannot leave orbit is abandoned.
		span.SetStatus(codes.Error, "deorbit failed")
		o.log.Error(ctx, "deorbit failed, abandoning body", logging.Int("body", tok.index))
		o.state.ClearBody()
		o.trajectory = model.Trajectory{}
		return
	}
	o.metrics.RecordDeorbit(false)
	o.beginDescent(ctx, tok.index, o.cfg.DeorbitMargin)
}

// beginDescent precomputes the body's descent and starts accelerated
// playback. Without a precomputer, or when precomputation fails, the body
// falls at 1x with no predicted impact time.
func (o *Orchestrator) beginDescent(ctx context.Context, idx int, margin time.Duration) {
	if o.atmosphere == nil {
		o.log.Debug(ctx, "no trajectory precomputer, playing at 1x", logging.Int("body", idx))
		return
	}
	var traj model.Trajectory
	if !o.guard(ctx, "atmosphere.precalculate", func() (err error) {
		traj, err = o.atmosphere.PreCalculateTrajectory(idx)
		return err
	}) {
		return
	}
	final, ok := traj.Final()
	if !ok {
		o.log.Warn(ctx, "empty trajectory, playing at 1x", logging.Int("body", idx))
		return
	}

	o.trajectory = traj
	impactAt := o.simClock.Now().Add(final.Time + margin)
	o.state.SetImpactTime(impactAt)
	o.state.SetFallSpeedMultiplier(o.cfg.AccelerationFactor)
	o.enforceDeceleration(ctx)

	o.log.Debug(ctx, "descent precomputed",
		logging.Int("body", idx),
		logging.Int("samples", traj.Len()),
		logging.Duration("fall_time", final.Time),
	)
}
