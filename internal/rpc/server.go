// Package rpc hosts the simulator's gRPC control server: standard health
// checking tied to the simulation loop, plus reflection for tooling.
package rpc

import (
	"context"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/internal/observability"
)

// SimulationService is the health service name reporting the loop state.
const SimulationService = "rodsim.Simulation"

// LoopStatus reports whether the simulation loop is running.
type LoopStatus interface {
	Running() bool
}

// Server wraps a grpc.Server with a health service that follows a
// LoopStatus.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	status LoopStatus
	log    logging.Logger
}

type serverOptions struct {
	collector  *observability.RPCCollector
	reflection bool
}

// ServerOption customises Server construction.
type ServerOption func(*serverOptions)

// WithCollector records RPC metrics on collector.
func WithCollector(c *observability.RPCCollector) ServerOption {
	return func(o *serverOptions) { o.collector = c }
}

// WithReflection toggles the gRPC reflection service.
func WithReflection(enabled bool) ServerOption {
	return func(o *serverOptions) { o.reflection = enabled }
}

// NewServer builds the control server. Health starts out matching status.
func NewServer(status LoopStatus, log logging.Logger, opts ...ServerOption) *Server {
	if log == nil {
		log = logging.Noop()
	}
	o := serverOptions{reflection: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	interceptors := []grpc.UnaryServerInterceptor{
		RequestIDUnaryServerInterceptor(log),
		TracingUnaryServerInterceptor(),
	}
	if o.collector != nil {
		interceptors = append(interceptors, o.collector.UnaryServerInterceptor())
	}

	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	if o.reflection {
		reflection.Register(gs)
	}

	s := &Server{grpc: gs, health: hs, status: status, log: log}
	s.SyncHealth()
	return s
}

// SyncHealth publishes the loop state to the health service.
func (s *Server) SyncHealth() {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s.status != nil && s.status.Running() {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(SimulationService, st)
}

// WatchHealth calls SyncHealth every interval until ctx is done.
func (s *Server) WatchHealth(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncHealth()
		}
	}
}

// Serve accepts connections on lis until Stop or GracefulStop.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info(context.Background(), "serving control gRPC", logging.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// GracefulStop marks every service NOT_SERVING and drains the server.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
