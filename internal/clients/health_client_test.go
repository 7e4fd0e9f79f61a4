package clients

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	healthsrv "github.com/booklog/booklog/internal/grpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type staticPinger struct{ err error }

func (p staticPinger) Ping() error { return p.err }

type staticBroker bool

func (b staticBroker) IsHealthy() bool { return bool(b) }

func dialBuf(t *testing.T, health *healthsrv.HealthServer) *HealthClient {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	server := healthsrv.NewServer(health, zap.NewNop())
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	client, err := NewHealthClient("passthrough:///bufnet", zap.NewNop(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name   string
		pinger staticPinger
		broker staticBroker
		want   grpc_health_v1.HealthCheckResponse_ServingStatus
	}{
		{"serving", staticPinger{}, true, grpc_health_v1.HealthCheckResponse_SERVING},
		{"database down", staticPinger{err: errors.New("down")}, true, grpc_health_v1.HealthCheckResponse_NOT_SERVING},
		{"broker down", staticPinger{}, false, grpc_health_v1.HealthCheckResponse_NOT_SERVING},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := dialBuf(t, healthsrv.NewHealthServer(tt.pinger, tt.broker, zap.NewNop()))

			status, err := client.Probe(context.Background(), 5*time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestProbeUnreachable(t *testing.T) {
	lis := bufconn.Listen(1024)
	require.NoError(t, lis.Close())

	client, err := NewHealthClient("passthrough:///bufnet", zap.NewNop(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	defer client.Close()

	status, err := client.Probe(context.Background(), 200*time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_UNKNOWN, status)
}
