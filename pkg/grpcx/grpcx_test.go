package grpcx

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealthReporter(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	gs := NewServer(ServerConfig{EnableReflection: true}, nil)

	var dbDown atomic.Bool
	reporter := NewHealthReporter(gs, map[string]Check{
		"database": func(ctx context.Context) error {
			if dbDown.Load() {
				return errors.New("connection refused")
			}
			return nil
		},
		"artifacts": func(ctx context.Context) error { return nil },
	}, 0, nil)

	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := Dial(ClientConfig{
		Target: "passthrough:///bufnet",
		Dialer: func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	client := healthpb.NewHealthClient(conn)
	ctx := context.Background()

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	reporter.Run(ctx)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check("database"))

	dbDown.Store(true)
	reporter.Run(ctx)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check("database"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check("artifacts"))

	reporter.Shutdown()
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check("artifacts"))
}
