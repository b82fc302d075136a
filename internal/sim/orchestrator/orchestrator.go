// Package orchestrator coordinates a single rod drop at a time: it advances
// the physics registry, plays precomputed descents back at an accelerated
// rate, resolves impacts exactly once and gates progression on the results.
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/internal/schedule"
	"github.com/Rawrkanos/rodsfromnod/internal/sim/state"
	"github.com/Rawrkanos/rodsfromnod/model"
	"github.com/Rawrkanos/rodsfromnod/timectrl"
)

const tracerName = "github.com/Rawrkanos/rodsfromnod/internal/sim/orchestrator"

// Orchestrator owns the authoritative SimulationState and mediates every
// call between collaborators. Tick, LaunchBody and Reset must be called from
// a single goroutine; Running and Snapshot are safe from any goroutine.
type Orchestrator struct {
	cfg    Config
	log    logging.Logger
	tracer trace.Tracer

	registry    ObjectRegistry
	atmosphere  TrajectoryPrecomputer
	impact      ImpactResolver
	effects     []EffectGenerator
	progression ProgressionController
	bodies      BodyFactory
	resetters   []Resetter
	sinks       []SnapshotSink
	metrics     MetricsRecorder
	scheduler   schedule.EventScheduler

	// frameClock advances by the unscaled frame delta; simClock by the
	// scaled physics delta.
	frameClock *timectrl.ManualClock
	simClock   *timectrl.ManualClock

	state *state.SimulationState

	// trajectory is the active body's precomputed descent.
	trajectory model.Trajectory
	// decelerated latches once the active body enters the final window.
	decelerated bool
	// epoch is bumped on every launch and reset; deferred tasks carry it.
	epoch uint64

	running atomic.Bool
}

// Option customises Orchestrator construction.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithAtmosphere attaches the trajectory precomputer and force model.
func WithAtmosphere(a TrajectoryPrecomputer) Option {
	return func(o *Orchestrator) { o.atmosphere = a }
}

// WithImpactResolver attaches the impact resolver.
func WithImpactResolver(r ImpactResolver) Option {
	return func(o *Orchestrator) { o.impact = r }
}

// WithEffects attaches one-shot effect generators, run in order after each
// resolved impact.
func WithEffects(gens ...EffectGenerator) Option {
	return func(o *Orchestrator) {
		for _, g := range gens {
			if g != nil {
				o.effects = append(o.effects, g)
			}
		}
	}
}

// WithProgression attaches the progression controller.
func WithProgression(p ProgressionController) Option {
	return func(o *Orchestrator) { o.progression = p }
}

// WithBodyFactory attaches the factory used by LaunchBody.
func WithBodyFactory(f BodyFactory) Option {
	return func(o *Orchestrator) { o.bodies = f }
}

// WithResetters attaches subsystems that only take part in resets.
func WithResetters(rs ...Resetter) Option {
	return func(o *Orchestrator) {
		for _, r := range rs {
			if r != nil {
				o.resetters = append(o.resetters, r)
			}
		}
	}
}

// WithSinks attaches snapshot consumers.
func WithSinks(sinks ...SnapshotSink) Option {
	return func(o *Orchestrator) {
		for _, s := range sinks {
			if s != nil {
				o.sinks = append(o.sinks, s)
			}
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithScheduler replaces the deferred task scheduler. The default scheduler
// runs on the frame clock.
func WithScheduler(s schedule.EventScheduler) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.scheduler = s
		}
	}
}

// WithTracer replaces the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// New constructs a stopped orchestrator around registry.
func New(cfg Config, registry ObjectRegistry, opts ...Option) (*Orchestrator, error) {
	if registry == nil {
		return nil, ErrNoRegistry
	}
	cfg = cfg.ApplyDefaults()
	o := &Orchestrator{
		cfg:        cfg,
		log:        logging.Noop(),
		tracer:     otel.Tracer(tracerName),
		registry:   registry,
		metrics:    noopMetrics{},
		frameClock: timectrl.NewManualClock(cfg.Epoch),
		simClock:   timectrl.NewManualClock(cfg.Epoch),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.scheduler == nil {
		o.scheduler = schedule.NewEventScheduler(o.frameClock)
	}
	o.state = state.NewSimulationState(o.baseLaunchHeight(),
		state.WithClocks(o.simClock.Now(), o.frameClock.Now()))
	o.checkOrbitalPhase(context.Background())
	return o, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Start enables Tick and LaunchBody.
func (o *Orchestrator) Start() {
	if o.running.CompareAndSwap(false, true) {
		o.log.Info(context.Background(), "orchestrator started")
	}
}

// Stop turns Tick into a no-op. State is kept.
func (o *Orchestrator) Stop() {
	if o.running.CompareAndSwap(true, false) {
		o.log.Info(context.Background(), "orchestrator stopped")
	}
}

// Running reports whether the loop is enabled.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() state.Snapshot {
	return o.state.Snapshot()
}

// Trajectory returns the active body's precomputed descent, if any.
func (o *Orchestrator) Trajectory() (model.Trajectory, bool) {
	if !o.state.HasActiveBody() || o.trajectory.Len() == 0 {
		return model.Trajectory{}, false
	}
	return o.trajectory, true
}

// SimTime returns the simulated clock.
func (o *Orchestrator) SimTime() time.Time {
	return o.simClock.Now()
}

// FrameTime returns the frame clock.
func (o *Orchestrator) FrameTime() time.Time {
	return o.frameClock.Now()
}

// Tick advances the simulation by one frame of dt wall time.
func (o *Orchestrator) Tick(ctx context.Context, dt time.Duration) {
	if !o.running.Load() || dt <= 0 {
		return
	}
	start := time.Now()

	o.frameClock.Advance(dt)
	o.guard(ctx, "scheduler.run_due", func() error {
		o.scheduler.RunDue()
		return nil
	})

	physicsDt := o.physicsStep(ctx, dt)
	o.simClock.Advance(physicsDt)
	o.enforceDeceleration(ctx)
	o.guard(ctx, "registry.update", func() error {
		o.registry.Update(physicsDt)
		return nil
	})

	if o.state.HasActiveBody() {
		o.checkCollision(ctx)
	}
	o.applyForces(ctx)

	o.state.SetClocks(o.simClock.Now(), o.frameClock.Now())
	o.publish(ctx)
	o.metrics.ObserveTick(time.Since(start), float64(physicsDt)/float64(dt))
}

// physicsStep scales dt by the fall speed multiplier. An accelerated step
// never crosses into the deceleration window; it is clamped to end on the
// window boundary.
func (o *Orchestrator) physicsStep(ctx context.Context, dt time.Duration) time.Duration {
	o.enforceDeceleration(ctx)

	mult := o.state.FallSpeedMultiplier()
	if mult <= 1 {
		return dt
	}
	step := time.Duration(float64(dt) * mult)
	impactAt, ok := o.state.ImpactTime()
	if !ok {
		return step
	}
	if room := impactAt.Sub(o.simClock.Now()) - o.cfg.DecelerationWindow; step > room {
		step = max(room, dt)
	}
	return step
}

// enforceDeceleration latches 1x playback once the active body's predicted
// impact is within the deceleration window.
func (o *Orchestrator) enforceDeceleration(ctx context.Context) {
	if o.decelerated || !o.state.HasActiveBody() {
		return
	}
	impactAt, ok := o.state.ImpactTime()
	if !ok {
		return
	}
	if impactAt.Sub(o.simClock.Now()) > o.cfg.DecelerationWindow {
		return
	}
	o.decelerated = true
	o.state.SetFallSpeedMultiplier(1)
	o.log.Debug(ctx, "entering deceleration window",
		logging.Int("body", o.state.CurrentBody()),
		logging.Duration("time_to_impact", impactAt.Sub(o.simClock.Now())),
	)
}

// checkCollision reads the active body once and resolves it if it hit the
// ground.
func (o *Orchestrator) checkCollision(ctx context.Context) {
	idx := o.state.CurrentBody()
	assert(idx != state.NoBody, "collision check without an active body")

	var st model.BodyState
	if !o.guard(ctx, "registry.state", func() (err error) {
		st, err = o.registry.State(idx)
		return err
	}) {
		return
	}
	if !st.Collided {
		return
	}
	o.resolveImpact(ctx, idx, st)
}

// applyForces recomputes atmospheric forces for every live body for the
// next tick.
func (o *Orchestrator) applyForces(ctx context.Context) {
	if o.atmosphere == nil {
		return
	}
	o.guard(ctx, "atmosphere.apply_forces", func() error {
		for idx := range o.registry.LiveIndices() {
			st, err := o.registry.State(idx)
			if err != nil {
				continue
			}
			if err := o.registry.ApplyForce(idx, o.atmosphere.CalculateForces(st)); err != nil {
				o.log.Debug(ctx, "apply force skipped", logging.Int("body", idx), logging.Err(err))
			}
		}
		return nil
	})
}

func (o *Orchestrator) publish(ctx context.Context) {
	if len(o.sinks) == 0 {
		return
	}
	snap := o.state.Snapshot()
	for _, sink := range o.sinks {
		o.guard(ctx, "sink.publish", func() error {
			sink.Publish(snap)
			return nil
		})
	}
}

func (o *Orchestrator) baseLaunchHeight() float64 {
	if o.progression == nil {
		return o.cfg.BaseLaunchHeight
	}
	var h float64
	if !o.guard(context.Background(), "progression.launch_height", func() error {
		h = o.progression.LaunchHeight()
		return nil
	}) || h <= 0 {
		return o.cfg.BaseLaunchHeight
	}
	return h
}

// guard runs a collaborator call, converting errors and panics into a log
// line. It reports whether fn completed without either.
func (o *Orchestrator) guard(ctx context.Context, op string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			o.log.Error(ctx, "collaborator panicked",
				logging.String("op", op),
				logging.Err(fmt.Errorf("%w: %v", ErrCollaborator, r)),
			)
		}
	}()
	if err := fn(); err != nil {
		o.log.Warn(ctx, "collaborator call failed",
			logging.String("op", op),
			logging.Err(err),
		)
		return false
	}
	return true
}

// assert panics on an internal invariant breach.
func assert(cond bool, msg string) {
	if !cond {
		panic("orchestrator: " + msg)
	}
}
