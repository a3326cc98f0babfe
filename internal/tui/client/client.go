package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/sigma/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DaemonBinary is the daemon executable started by Ensure.
const DaemonBinary = "sigmad"

var ErrNotReady = errors.New("daemon did not become ready")

// Client wraps the gRPC connection to a profile's daemon.
type Client struct {
	*api.Client
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// New dials the daemon's Unix domain socket. The connection is lazy; the
// first call fails if nothing listens there.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{
		Client: api.NewClient(conn),
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}, nil
}

// Healthy reports whether the daemon answers its health check as SERVING.
func (c *Client) Healthy(ctx context.Context) bool {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Probe checks if a daemon is running and responsive on the socket.
func Probe(socketPath string) bool {
	c, err := New(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Healthy(ctx)
}

// Ensure starts the daemon for profileName unless one already answers on
// socketPath, then waits up to timeout for it. started reports whether a new
// process was spawned.
func Ensure(profileName, socketPath string, timeout time.Duration) (started bool, err error) {
	if Probe(socketPath) {
		return false, nil
	}
	if err := start(profileName); err != nil {
		return false, fmt.Errorf("start %s: %w", DaemonBinary, err)
	}
	if !wait(socketPath, timeout) {
		return true, ErrNotReady
	}
	return true, nil
}

// start runs the daemon binary found next to the current executable, or on PATH.
func start(profileName string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	bin := filepath.Join(filepath.Dir(executable), DaemonBinary)
	if _, err := os.Stat(bin); err != nil {
		bin = DaemonBinary
	}

	cmd := exec.Command(bin, "--profile", profileName)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func wait(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if Probe(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
