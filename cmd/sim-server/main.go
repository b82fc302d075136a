package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/internal/observability"
	"github.com/Rawrkanos/rodsfromnod/internal/rpc"
	"github.com/Rawrkanos/rodsfromnod/internal/runtime"
	"github.com/Rawrkanos/rodsfromnod/internal/sim/orchestrator"
	"github.com/Rawrkanos/rodsfromnod/timectrl"
)

// Config holds the daemon settings parsed from flags.
type Config struct {
	ListenAddress  string
	MetricsAddress string
	LogLevel       string
	LogFormat      string

	TickInterval   time.Duration
	Accelerated    bool
	HealthInterval time.Duration

	Material   string
	BaseHeight float64
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.ListenAddress, "grpc-addr", ":50051", "TCP address the control gRPC server listens on")
	flag.StringVar(&cfg.MetricsAddress, "metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables)")
	flag.StringVar(&cfg.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", "", "log format override (json or text)")
	flag.DurationVar(&cfg.TickInterval, "tick", 50*time.Millisecond, "frame interval")
	flag.BoolVar(&cfg.Accelerated, "accelerated", false, "step frames back to back instead of on the wall clock")
	flag.DurationVar(&cfg.HealthInterval, "health-interval", time.Second, "how often health follows the simulation loop")
	flag.StringVar(&cfg.Material, "material", "tungsten", "rod material")
	flag.Float64Var(&cfg.BaseHeight, "base-height", 30000, "base launch height in metres")
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()

	log := logging.NewFromEnv()
	if cfg.LogLevel != "" || cfg.LogFormat != "" {
		log = logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "sim-server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the control plane on lis and drives the simulation until ctx is
// cancelled.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	simMetrics, err := observability.NewSimCollector(reg)
	if err != nil {
		return fmt.Errorf("sim metrics: %w", err)
	}
	rpcMetrics, err := observability.NewRPCCollector(reg)
	if err != nil {
		return fmt.Errorf("rpc metrics: %w", err)
	}

	rcfg := runtime.DefaultConfig()
	rcfg.FrameInterval = cfg.TickInterval
	rcfg.Mode = timectrl.RealTime
	if cfg.Accelerated {
		rcfg.Mode = timectrl.Accelerated
	}
	rcfg.Material = cfg.Material
	rcfg.Orchestrator.BaseLaunchHeight = cfg.BaseHeight

	rt, err := runtime.New(rcfg, log,
		orchestrator.WithMetrics(simMetrics),
		orchestrator.WithSinks(simMetrics),
	)
	if err != nil {
		return err
	}

	metricsSrv := serveMetrics(cfg.MetricsAddress, simMetrics, log)

	server := rpc.NewServer(rt.Orchestrator, log, rpc.WithCollector(rpcMetrics))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()

	loopDone := rt.Run(ctx, 0)
	server.SyncHealth()
	go server.WatchHealth(ctx, cfg.HealthInterval)

	log.Info(ctx, "sim-server started",
		logging.String("run_id", rt.RunID()),
		logging.String("grpc_addr", lis.Addr().String()),
		logging.String("metrics_addr", cfg.MetricsAddress),
	)

	select {
	case <-ctx.Done():
		err = nil
	case err = <-serveErr:
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	}

	log.Info(context.Background(), "shutting down sim-server")
	rt.Close()
	<-loopDone
	server.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	sum := rt.Summary()
	log.Info(context.Background(), "run summary",
		logging.String("run_id", sum.RunID),
		logging.Int("launches", sum.Launches),
		logging.Int("impacts", sum.Impacts),
		logging.Float64("score_overall", sum.ScoreOverall),
	)
	return err
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
