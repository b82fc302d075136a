package state

import (
	"testing"
	"time"

	"github.com/Rawrkanos/rodsfromnod/model"
)

func TestSimulationState_FoldImpactUpdatesEveryAccumulator(t *testing.T) {
	s := NewSimulationState(30000)
	s.FoldImpact(1000, 5e6)
	s.FoldImpact(250, 1e6)

	snap := s.Snapshot()
	for name, got := range map[string]float64{
		"Score":                  snap.Score,
		"TotalScorePerPrestige":  snap.TotalScorePerPrestige,
		"TotalScorePerAscension": snap.TotalScorePerAscension,
		"TotalScoreOverall":      snap.TotalScoreOverall,
	} {
		if got != 1250 {
			t.Fatalf("%s = %v, want 1250", name, got)
		}
	}
	if snap.TotalEnergy != 6e6 {
		t.Fatalf("TotalEnergy = %v, want 6e6", snap.TotalEnergy)
	}
	if snap.Impacts != 2 {
		t.Fatalf("Impacts = %d, want 2", snap.Impacts)
	}
}

func TestSimulationState_ActivateAndClearBody(t *testing.T) {
	s := NewSimulationState(30000)
	if s.HasActiveBody() {
		t.Fatalf("new state has an active body")
	}

	// Without a body the multiplier and impact time cannot be set.
	s.SetFallSpeedMultiplier(10)
	s.SetImpactTime(time.Unix(100, 0))
	if got := s.FallSpeedMultiplier(); got != 1 {
		t.Fatalf("multiplier without body = %v, want 1", got)
	}
	if _, ok := s.ImpactTime(); ok {
		t.Fatalf("impact time recorded without body")
	}

	s.ActivateBody(3)
	s.SetFallSpeedMultiplier(10)
	s.SetImpactTime(time.Unix(100, 0))
	snap := s.Snapshot()
	if snap.CurrentBodyIndex != 3 || snap.FallSpeedMultiplier != 10 || !snap.ImpactKnown {
		t.Fatalf("snapshot after activate = %+v", snap)
	}

	s.ClearBody()
	snap = s.Snapshot()
	if snap.HasActiveBody() || snap.ImpactKnown || snap.FallSpeedMultiplier != 1 {
		t.Fatalf("snapshot after clear = %+v", snap)
	}
}

func TestSimulationState_ActivateWhileActivePanics(t *testing.T) {
	s := NewSimulationState(30000)
	s.ActivateBody(0)

	defer func() {
		if recover() == nil {
			t.Fatalf("second ActivateBody did not panic")
		}
	}()
	s.ActivateBody(1)
}

func TestSimulationState_LaunchHeightNeverDecreases(t *testing.T) {
	s := NewSimulationState(30000)
	if got := s.RaiseLaunchHeight(45000); got != 45000 {
		t.Fatalf("RaiseLaunchHeight(45000) = %v", got)
	}
	if got := s.RaiseLaunchHeight(20000); got != 45000 {
		t.Fatalf("RaiseLaunchHeight(20000) = %v, want 45000", got)
	}
}

func TestSimulationState_SoftAndFullReset(t *testing.T) {
	epoch := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	s := NewSimulationState(30000, WithClocks(epoch, epoch))
	s.FoldImpact(1000, 1e6)
	s.RaiseLaunchHeight(200000)
	s.EnterOrbitalPhase()
	s.ApplyPrestige(model.TierOutcome{Level: 2, Points: 3})
	s.ActivateBody(0)

	s.SoftReset(30000)
	snap := s.Snapshot()
	if snap.Score != 0 || snap.TotalEnergy != 0 || snap.TotalScorePerPrestige != 0 {
		t.Fatalf("soft reset kept run totals: %+v", snap)
	}
	if snap.TotalScorePerAscension != 1000 || snap.TotalScoreOverall != 1000 {
		t.Fatalf("soft reset cleared long-horizon totals: %+v", snap)
	}
	if snap.PrestigeLevel != 2 || snap.PrestigePoints != 3 || !snap.IsOrbitalPhase {
		t.Fatalf("soft reset cleared tiers: %+v", snap)
	}
	if snap.LaunchHeight != 30000 || snap.HasActiveBody() {
		t.Fatalf("soft reset kept flight state: %+v", snap)
	}

	later := epoch.Add(time.Hour)
	s.SetClocks(later, later)
	s.FullReset(30000, epoch, epoch)
	snap = s.Snapshot()
	want := Snapshot{
		CurrentBodyIndex:    NoBody,
		LaunchHeight:        30000,
		FallSpeedMultiplier: 1,
		SimTime:             epoch,
		FrameTime:           epoch,
	}
	if snap != want {
		t.Fatalf("full reset snapshot = %+v, want %+v", snap, want)
	}
}

func TestSimulationState_AscensionClearsPrestigeTrack(t *testing.T) {
	s := NewSimulationState(30000)
	s.FoldImpact(500, 0)
	s.ApplyPrestige(model.TierOutcome{Level: 10, Points: 12})
	s.ApplyAscension(model.TierOutcome{Level: 1, Points: 2})

	snap := s.Snapshot()
	if snap.PrestigeLevel != 0 || snap.PrestigePoints != 0 {
		t.Fatalf("prestige track survived ascension: %+v", snap)
	}
	if snap.AscensionLevel != 1 || snap.AscensionPoints != 2 {
		t.Fatalf("ascension not folded: %+v", snap)
	}
	if snap.TotalScorePerAscension != 0 || snap.TotalScoreOverall != 500 {
		t.Fatalf("accumulators after ascension: %+v", snap)
	}
}

func TestSnapshot_TimeToImpact(t *testing.T) {
	now := time.Unix(1000, 0)
	snap := Snapshot{SimTime: now, ImpactTime: now.Add(7 * time.Second), ImpactKnown: true}
	if d, ok := snap.TimeToImpact(); !ok || d != 7*time.Second {
		t.Fatalf("TimeToImpact = %v, %v; want 7s, true", d, ok)
	}
	if _, ok := (Snapshot{}).TimeToImpact(); ok {
		t.Fatalf("TimeToImpact ok without prediction")
	}
}
