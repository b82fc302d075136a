package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/internal/observability"
	"github.com/Rawrkanos/rodsfromnod/internal/runtime"
	"github.com/Rawrkanos/rodsfromnod/internal/sim/orchestrator"
	"github.com/Rawrkanos/rodsfromnod/internal/telemetry"
	"github.com/Rawrkanos/rodsfromnod/timectrl"
)

// Config holds the batch run settings parsed from flags.
type Config struct {
	Duration    time.Duration
	Tick        time.Duration
	Accelerated bool

	Material    string
	BaseHeight  float64
	MaxLaunches int

	// TelemetryPath receives JSON-lines snapshots; empty disables.
	TelemetryPath     string
	TelemetryInterval time.Duration
}

func main() {
	var cfg Config
	flag.DurationVar(&cfg.Duration, "duration", 5*time.Minute, "total frame time to simulate")
	flag.DurationVar(&cfg.Tick, "tick", 50*time.Millisecond, "frame interval")
	flag.BoolVar(&cfg.Accelerated, "accelerated", true, "run in accelerated mode (vs real-time)")
	flag.StringVar(&cfg.Material, "material", "tungsten", "rod material")
	flag.Float64Var(&cfg.BaseHeight, "base-height", 30000, "base launch height in metres")
	flag.IntVar(&cfg.MaxLaunches, "max-launches", 0, "stop launching after this many rods (0 = unbounded)")
	flag.StringVar(&cfg.TelemetryPath, "telemetry", "", "write JSON-lines snapshots to this file")
	flag.DurationVar(&cfg.TelemetryInterval, "telemetry-interval", time.Second, "minimum frame time between snapshots")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	sum, err := run(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		os.Exit(1)
	}
	printSummary(os.Stdout, sum)
}

// run performs one headless batch run and returns its summary.
func run(ctx context.Context, cfg Config, log logging.Logger) (runtime.Summary, error) {
	if log == nil {
		log = logging.Noop()
	}

	rcfg := runtime.DefaultConfig()
	rcfg.FrameInterval = cfg.Tick
	rcfg.Mode = timectrl.RealTime
	if cfg.Accelerated {
		rcfg.Mode = timectrl.Accelerated
	}
	rcfg.Material = cfg.Material
	rcfg.Orchestrator.BaseLaunchHeight = cfg.BaseHeight
	rcfg.MaxLaunches = cfg.MaxLaunches

	var opts []orchestrator.Option
	var sink *telemetry.JSONLinesSink
	if cfg.TelemetryPath != "" {
		f, err := os.Create(cfg.TelemetryPath)
		if err != nil {
			return runtime.Summary{}, fmt.Errorf("open telemetry file %q: %w", cfg.TelemetryPath, err)
		}
		defer f.Close()
		sink = telemetry.NewJSONLinesSink(f, cfg.TelemetryInterval, log)
		opts = append(opts, orchestrator.WithSinks(sink))
	}

	rt, err := runtime.New(rcfg, log, opts...)
	if err != nil {
		return runtime.Summary{}, err
	}
	defer rt.Close()

	log.Info(ctx, "starting simulation",
		logging.Duration("duration", cfg.Duration),
		logging.Duration("tick", cfg.Tick),
		logging.String("mode", rcfg.Mode.String()),
	)
	<-rt.Run(ctx, cfg.Duration)

	if sink != nil {
		if err := sink.Err(); err != nil {
			return rt.Summary(), fmt.Errorf("telemetry: %w", err)
		}
		log.Info(ctx, "telemetry written",
			logging.String("path", cfg.TelemetryPath),
			logging.Int("records", sink.Records()),
		)
	}
	return rt.Summary(), nil
}

func printSummary(w io.Writer, sum runtime.Summary) {
	fmt.Fprintf(w, "run %s: %d frames, %s simulated\n", sum.RunID, sum.Frames, sum.SimElapsed)
	fmt.Fprintf(w, "launches=%d impacts=%d ablated=%d max_speed=%.0f m/s\n",
		sum.Launches, sum.Impacts, sum.Ablated, sum.MaxSpeed)
	fmt.Fprintf(w, "score=%.1f overall=%.1f energy=%.3g J\n", sum.Score, sum.ScoreOverall, sum.TotalEnergy)
	fmt.Fprintf(w, "prestige=%d ascension=%d launch_height=%.0f m orbital=%v\n",
		sum.PrestigeLevel, sum.AscensionLevel, sum.LaunchHeight, sum.Orbital)
}
