package main

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/internal/rpc"
)

func TestSimServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := Config{
		ListenAddress:  lis.Addr().String(),
		MetricsAddress: "",
		LogLevel:       "warn",
		LogFormat:      "text",
		TickInterval:   10 * time.Millisecond,
		Accelerated:    false,
		HealthInterval: 10 * time.Millisecond,
		Material:       "tungsten",
		BaseHeight:     30000,
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(runCtx, cfg, log, lis)
	}()

	conn, err := grpc.DialContext(ctx, cfg.ListenAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.DialContext: %v", err)
	}
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	var status healthpb.HealthCheckResponse_ServingStatus
	for {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.SimulationService})
		if err == nil {
			status = resp.GetStatus()
			if status == healthpb.HealthCheckResponse_SERVING {
				break
			}
		}
		select {
		case <-ctx.Done():
			t.Fatalf("simulation never reported SERVING (last status %v, err %v)", status, err)
		case <-time.After(10 * time.Millisecond):
		}
	}

	stop()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("server returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}
