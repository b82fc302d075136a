package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Rawrkanos/rodsfromnod/core"
	"github.com/Rawrkanos/rodsfromnod/internal/sim/state"
	"github.com/Rawrkanos/rodsfromnod/timectrl"
)

func stepUntilImpacts(t *testing.T, r *SimRuntime, want, maxFrames int) {
	t.Helper()
	for i := 0; i < maxFrames; i++ {
		if r.Summary().Impacts >= want {
			return
		}
		r.Step()
	}
	t.Fatalf("impacts = %d after %d frames, want %d", r.Summary().Impacts, maxFrames, want)
}

func TestNew_RejectsNonPositiveFrame(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameInterval = 0
	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("expected error for zero frame interval")
	}
}

func TestNew_UnknownMaterial(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Material = "unobtainium"
	_, err := New(cfg, nil)
	if !errors.Is(err, core.ErrUnknownMaterial) {
		t.Fatalf("New error = %v, want ErrUnknownMaterial", err)
	}
}

func TestNew_ProgressionFollowsOrchestratorBase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Orchestrator.BaseLaunchHeight = 42000
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := r.Progression.LaunchHeight(); got != 42000 {
		t.Fatalf("progression LaunchHeight = %v, want 42000", got)
	}
	if got := r.Orchestrator.Snapshot().LaunchHeight; got != 42000 {
		t.Fatalf("snapshot LaunchHeight = %v, want 42000", got)
	}
	if r.RunID() == "" {
		t.Fatalf("expected a run id")
	}
}

func TestSimRuntime_SuborbitalDropEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLaunches = 1
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Start()

	r.Step()
	snap := r.Orchestrator.Snapshot()
	if !snap.HasActiveBody() {
		t.Fatalf("expected auto launch on the first frame")
	}
	if snap.IsOrbitalPhase {
		t.Fatalf("30 km start must be suborbital")
	}

	stepUntilImpacts(t, r, 1, 5000)

	sum := r.Summary()
	if sum.Launches != 1 || sum.Impacts != 1 {
		t.Fatalf("launches/impacts = %d/%d, want 1/1", sum.Launches, sum.Impacts)
	}
	if sum.Score <= 0 || sum.TotalEnergy <= 0 {
		t.Fatalf("score/energy = %v/%v, want positive", sum.Score, sum.TotalEnergy)
	}
	if sum.ScoreOverall != sum.Score {
		t.Fatalf("overall = %v, want %v", sum.ScoreOverall, sum.Score)
	}
	if sum.MaxSpeed <= 0 {
		t.Fatalf("MaxSpeed = %v, want positive", sum.MaxSpeed)
	}
	if wall := time.Duration(sum.Frames) * cfg.FrameInterval; sum.SimElapsed <= wall {
		t.Fatalf("sim elapsed %v not ahead of frame time %v", sum.SimElapsed, wall)
	}
	if got := len(r.Terrain.Craters()); got != 1 {
		t.Fatalf("craters = %d, want 1", got)
	}
	if _, ok := r.Impact.AnimationData(0); !ok {
		t.Fatalf("expected explosion data for body 0")
	}
	if _, ok := r.Ejecta.AnimationData(0); !ok {
		t.Fatalf("expected ejecta data for body 0")
	}
	if _, ok := r.Shockwave.AnimationData(0); !ok {
		t.Fatalf("expected shockwave data for body 0")
	}

	// MaxLaunches holds the runtime idle.
	for i := 0; i < 10; i++ {
		r.Step()
	}
	if got := r.Orchestrator.Snapshot().CurrentBodyIndex; got != state.NoBody {
		t.Fatalf("current body = %d, want NoBody", got)
	}
}

func TestSimRuntime_OrbitalDropAblatesSteel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Orchestrator.BaseLaunchHeight = 200000
	cfg.Material = "steel"
	cfg.MaxLaunches = 1
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !r.Orchestrator.Snapshot().IsOrbitalPhase {
		t.Fatalf("expected orbital phase at 200 km")
	}
	r.Start()

	r.Step()
	if _, ok := r.Orchestrator.Trajectory(); ok {
		t.Fatalf("held orbital body must not have a trajectory before deorbit")
	}

	stepUntilImpacts(t, r, 1, 20000)

	sum := r.Summary()
	if sum.Impacts != 1 {
		t.Fatalf("impacts = %d, want 1", sum.Impacts)
	}
	if sum.MaxSpeed <= 1500 {
		t.Fatalf("MaxSpeed = %v, want above steel ablation speed", sum.MaxSpeed)
	}
	if sum.Ablated != 1 {
		t.Fatalf("ablated = %d, want 1", sum.Ablated)
	}
}

func TestSimRuntime_RunStopsAfterDuration(t *testing.T) {
	cfg := DefaultConfig()
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := r.Run(context.Background(), 2*time.Second)
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("Run did not finish")
	}

	if r.Orchestrator.Running() {
		t.Fatalf("orchestrator still running after Run")
	}
	sum := r.Summary()
	if sum.Frames != 40 {
		t.Fatalf("frames = %d, want 40", sum.Frames)
	}
	if sum.Launches != 1 {
		t.Fatalf("launches = %d, want 1", sum.Launches)
	}
}

func TestSimRuntime_CloseStopsUnboundedRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = timectrl.RealTime
	cfg.FrameInterval = time.Millisecond
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := r.Run(context.Background(), 0)
	time.Sleep(20 * time.Millisecond)
	r.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after Close")
	}
	if r.Clock.Frames() == 0 {
		t.Fatalf("expected frames before Close")
	}
}
