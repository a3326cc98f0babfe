package client

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func serveHealth(t *testing.T, status healthpb.HealthCheckResponse_ServingStatus) string {
	t.Helper()
	// Short path: Unix socket paths are limited to ~104 bytes on macOS.
	dir, err := os.MkdirTemp("/tmp", "sigma-client-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socketPath := filepath.Join(dir, "d.sock")

	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", status)
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return socketPath
}

func TestProbeServing(t *testing.T) {
	socketPath := serveHealth(t, healthpb.HealthCheckResponse_SERVING)
	if !Probe(socketPath) {
		t.Fatal("Probe() = false for a serving daemon")
	}
}

func TestProbeNotServing(t *testing.T) {
	socketPath := serveHealth(t, healthpb.HealthCheckResponse_NOT_SERVING)
	if Probe(socketPath) {
		t.Fatal("Probe() = true for a daemon that is shutting down")
	}
}

func TestProbeNoDaemon(t *testing.T) {
	if Probe(filepath.Join(t.TempDir(), "absent.sock")) {
		t.Fatal("Probe() = true with nothing listening")
	}
}

func TestEnsureAlreadyRunning(t *testing.T) {
	socketPath := serveHealth(t, healthpb.HealthCheckResponse_SERVING)
	started, err := Ensure("main", socketPath, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if started {
		t.Fatal("Ensure() spawned a daemon although one was running")
	}
}

func TestHealthy(t *testing.T) {
	socketPath := serveHealth(t, healthpb.HealthCheckResponse_SERVING)
	c, err := New(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !c.Healthy(ctx) {
		t.Fatal("Healthy() = false")
	}
}
