package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/internal/telemetry"
)

// TestRun_BatchWithTelemetry runs a short accelerated batch end to end.
func TestRun_BatchWithTelemetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.jsonl")
	cfg := Config{
		Duration:          20 * time.Second,
		Tick:              50 * time.Millisecond,
		Accelerated:       true,
		Material:          "tungsten",
		BaseHeight:        30000,
		MaxLaunches:       1,
		TelemetryPath:     path,
		TelemetryInterval: time.Second,
	}

	sum, err := run(context.Background(), cfg, logging.Noop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Frames != 400 {
		t.Fatalf("frames = %d, want 400", sum.Frames)
	}
	if sum.Launches != 1 || sum.Impacts != 1 {
		t.Fatalf("launches/impacts = %d/%d, want 1/1", sum.Launches, sum.Impacts)
	}
	if sum.ScoreOverall <= 0 {
		t.Fatalf("ScoreOverall = %v, want positive", sum.ScoreOverall)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open telemetry: %v", err)
	}
	defer f.Close()
	records, err := telemetry.ReadJSONLines(f)
	if err != nil {
		t.Fatalf("ReadJSONLines: %v", err)
	}
	if len(records) < 2 {
		t.Fatalf("records = %d, want at least 2", len(records))
	}
	last := records[len(records)-1].AsMap()
	if got, _ := last["impacts"].(float64); got != 1 {
		t.Fatalf("last record impacts = %v, want 1", last["impacts"])
	}
}

func TestRun_UnknownMaterial(t *testing.T) {
	cfg := Config{Duration: time.Second, Tick: 50 * time.Millisecond, Accelerated: true, Material: "cheese"}
	if _, err := run(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unknown material")
	}
}

func TestPrintSummary(t *testing.T) {
	sum, err := run(context.Background(), Config{
		Duration:    time.Second,
		Tick:        50 * time.Millisecond,
		Accelerated: true,
		BaseHeight:  30000,
	}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var buf bytes.Buffer
	printSummary(&buf, sum)
	out := buf.String()
	for _, want := range []string{"run " + sum.RunID, "launches=1", "orbital=false"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary %q missing %q", out, want)
		}
	}
}
