// Package runtime assembles the reference collaborators around an
// orchestrator and drives it from a frame clock.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Rawrkanos/rodsfromnod/core"
	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/internal/progression"
	"github.com/Rawrkanos/rodsfromnod/internal/sim/orchestrator"
	"github.com/Rawrkanos/rodsfromnod/internal/sim/state"
	"github.com/Rawrkanos/rodsfromnod/timectrl"
)

// Config wires every subsystem of a SimRuntime.
type Config struct {
	Orchestrator orchestrator.Config
	Progression  progression.Config
	Physics      core.PhysicsConfig
	Atmosphere   core.AtmosphereConfig
	Impact       core.ImpactConfig
	Ejecta       core.EjectaConfig
	Shockwave    core.ShockwaveConfig

	Rod      core.RodGeometry
	Material string

	TerrainElevation float64

	// FrameInterval is the wall-clock length of one frame.
	FrameInterval time.Duration
	Mode          timectrl.Mode

	// AutoLaunch drops a new rod whenever none is in flight.
	AutoLaunch bool
	// MaxLaunches stops auto-launching after this many drops; 0 is unbounded.
	MaxLaunches int
}

// DefaultConfig returns a headless accelerated setup that keeps dropping
// rods.
func DefaultConfig() Config {
	return Config{
		Orchestrator:  orchestrator.DefaultConfig(),
		Progression:   progression.DefaultConfig(),
		Physics:       core.DefaultPhysicsConfig(),
		Atmosphere:    core.DefaultAtmosphereConfig(),
		Impact:        core.DefaultImpactConfig(),
		Ejecta:        core.DefaultEjectaConfig(),
		Shockwave:     core.DefaultShockwaveConfig(),
		Rod:           core.DefaultRodGeometry(),
		FrameInterval: 50 * time.Millisecond,
		Mode:          timectrl.Accelerated,
		AutoLaunch:    true,
	}
}

// Summary describes a finished or ongoing run.
type Summary struct {
	RunID          string
	Frames         int64
	Launches       int
	Impacts        int
	Score          float64
	ScoreOverall   float64
	TotalEnergy    float64
	PrestigeLevel  int
	AscensionLevel int
	LaunchHeight   float64
	Orbital        bool
	SimElapsed     time.Duration

	// MaxSpeed is the fastest observed speed of any rod in flight, m/s.
	MaxSpeed float64
	// Ablated counts rods that exceeded their material's ablation speed.
	Ablated int
}

// SimRuntime owns the reference collaborators and the orchestrator they
// serve. Fields are exported for read-only inspection by callers.
type SimRuntime struct {
	Orchestrator *orchestrator.Orchestrator
	Progression  *progression.Controller

	Terrain    *core.Terrain
	Physics    *core.PhysicsSystem
	Atmosphere *core.Atmosphere
	Impact     *core.ImpactSystem
	Ejecta     *core.EjectaSystem
	Shockwave  *core.ShockwaveSystem
	Rods       *core.RodFactory

	Clock *timectrl.TimeController

	cfg   Config
	log   logging.Logger
	runID string

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	maxSpeed float64
	ablated  int
	// ablatedBody is the in-flight body already counted in ablated.
	ablatedBody int
}

// New builds the collaborator graph. Extra orchestrator options (sinks,
// metrics, tracer) are applied after the reference collaborators.
func New(cfg Config, log logging.Logger, opts ...orchestrator.Option) (*SimRuntime, error) {
	if log == nil {
		log = logging.Noop()
	}
	if cfg.FrameInterval <= 0 {
		return nil, fmt.Errorf("frame interval must be positive, got %s", cfg.FrameInterval)
	}
	cfg.Orchestrator = cfg.Orchestrator.ApplyDefaults()
	cfg.Progression = cfg.Progression.ApplyDefaults()
	cfg.Progression.BaseLaunchHeight = cfg.Orchestrator.BaseLaunchHeight
	cfg.Progression.PrestigeCap = cfg.Orchestrator.PrestigeCap

	r := &SimRuntime{
		cfg:         cfg,
		log:         log,
		ablatedBody: state.NoBody,
	}
	r.ctx, r.runID = logging.ContextWithRunID(context.Background(), "")
	r.ctx, r.cancel = context.WithCancel(r.ctx)

	r.Terrain = core.NewTerrain(cfg.TerrainElevation)
	r.Physics = core.NewPhysicsSystem(cfg.Physics, r.Terrain,
		core.WithOrbitModel(core.NewSGP4OrbitModel()),
		core.WithPhysicsLogger(log),
	)
	r.Atmosphere = core.NewAtmosphere(cfg.Atmosphere, r.Physics)
	r.Impact = core.NewImpactSystem(cfg.Impact, r.Terrain)
	r.Ejecta = core.NewEjectaSystem(cfg.Ejecta)
	r.Shockwave = core.NewShockwaveSystem(cfg.Shockwave)
	r.Rods = core.NewRodFactory(cfg.Rod, nil)
	if cfg.Material != "" {
		if err := r.Rods.Select(cfg.Material); err != nil {
			return nil, err
		}
	}
	r.Progression = progression.New(cfg.Progression, log)

	base := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithAtmosphere(r.Atmosphere),
		orchestrator.WithImpactResolver(r.Impact),
		orchestrator.WithEffects(r.Ejecta, r.Shockwave),
		orchestrator.WithProgression(r.Progression),
		orchestrator.WithBodyFactory(r.Rods),
		orchestrator.WithResetters(r.Terrain),
	}
	orch, err := orchestrator.New(cfg.Orchestrator, r.Physics, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	r.Orchestrator = orch

	r.Clock = timectrl.NewTimeController(cfg.Orchestrator.Epoch, cfg.FrameInterval, cfg.Mode)
	r.Clock.AddListener(r.frame)
	return r, nil
}

// RunID identifies this runtime in logs and summaries.
func (r *SimRuntime) RunID() string {
	return r.runID
}

// Context returns the runtime's lifecycle context, tagged with the run ID.
func (r *SimRuntime) Context() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}

// Start enables the orchestrator without emitting frames.
func (r *SimRuntime) Start() {
	r.Orchestrator.Start()
	r.log.Info(r.ctx, "simulation runtime started",
		logging.String("mode", r.cfg.Mode.String()),
		logging.Duration("frame", r.cfg.FrameInterval),
		logging.String("material", r.Rods.Selected()),
	)
}

// Step emits one frame synchronously.
func (r *SimRuntime) Step() {
	r.Clock.Step()
}

// Run starts the orchestrator and emits frames until duration of frame time
// has elapsed (0 means unbounded), ctx is cancelled or Close is called. The
// returned channel is closed once the orchestrator has been stopped.
func (r *SimRuntime) Run(ctx context.Context, duration time.Duration) <-chan struct{} {
	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-r.ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	r.Start()
	frames := r.Clock.Run(runCtx, duration)
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-frames
		cancel()
		r.Orchestrator.Stop()
	}()
	return done
}

// Close stops the runtime. It is safe to call more than once.
func (r *SimRuntime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel()
	r.Orchestrator.Stop()
}

// Summary reports the run so far.
func (r *SimRuntime) Summary() Summary {
	snap := r.Orchestrator.Snapshot()
	r.mu.Lock()
	maxSpeed, ablated := r.maxSpeed, r.ablated
	r.mu.Unlock()
	return Summary{
		RunID:          r.runID,
		Frames:         r.Clock.Frames(),
		Launches:       snap.Launches,
		Impacts:        snap.Impacts,
		Score:          snap.Score,
		ScoreOverall:   snap.TotalScoreOverall,
		TotalEnergy:    snap.TotalEnergy,
		PrestigeLevel:  snap.PrestigeLevel,
		AscensionLevel: snap.AscensionLevel,
		LaunchHeight:   snap.LaunchHeight,
		Orbital:        snap.IsOrbitalPhase,
		SimElapsed:     snap.SimTime.Sub(r.cfg.Orchestrator.Epoch),
		MaxSpeed:       maxSpeed,
		Ablated:        ablated,
	}
}

// frame is the TimeController listener: one orchestrator tick followed by
// the auto-launch policy.
func (r *SimRuntime) frame(_ time.Time, dt time.Duration) {
	ctx := r.ctx
	r.Orchestrator.Tick(ctx, dt)
	r.observeBody(ctx)

	if !r.cfg.AutoLaunch || !r.Orchestrator.Running() {
		return
	}
	snap := r.Orchestrator.Snapshot()
	if snap.HasActiveBody() {
		return
	}
	if r.cfg.MaxLaunches > 0 && snap.Launches >= r.cfg.MaxLaunches {
		return
	}
	if err := r.Orchestrator.LaunchBody(ctx); err != nil && !errors.Is(err, orchestrator.ErrBodyInFlight) {
		r.log.Warn(ctx, "auto launch failed", logging.Err(err))
	}
}

// observeBody tracks peak speed and ablation of the rod in flight.
func (r *SimRuntime) observeBody(ctx context.Context) {
	idx := r.Orchestrator.Snapshot().CurrentBodyIndex
	if idx == state.NoBody {
		r.mu.Lock()
		r.ablatedBody = state.NoBody
		r.mu.Unlock()
		return
	}
	st, err := r.Physics.State(idx)
	if err != nil {
		return
	}
	speed := st.Velocity.Norm()
	deg := r.Rods.CheckDegradation(st.Velocity)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxSpeed = max(r.maxSpeed, speed)
	if deg.Degraded && r.ablatedBody != idx {
		r.ablatedBody = idx
		r.ablated++
		r.log.Info(ctx, "rod ablating",
			logging.Int("body", idx),
			logging.Float64("speed", speed),
			logging.Float64("mass_loss_kg", deg.MassLoss),
		)
	}
}
