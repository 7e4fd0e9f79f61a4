// Package clients holds outbound connections to the booklog daemon's gRPC
// surface.
package clients

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthClient wraps the gRPC connection to the daemon's health service
type HealthClient struct {
	conn   *grpc.ClientConn
	client grpc_health_v1.HealthClient
	target string
	log    *zap.Logger
}

// NewHealthClient prepares a connection to target. The connection is made
// lazily on the first probe. Extra options are appended after the defaults.
func NewHealthClient(target string, log *zap.Logger, opts ...grpc.DialOption) (*HealthClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create health client for %s: %w", target, err)
	}

	return &HealthClient{
		conn:   conn,
		client: grpc_health_v1.NewHealthClient(conn),
		target: target,
		log:    log,
	}, nil
}

// Probe asks for the overall serving status. It gives up after timeout.
func (c *HealthClient) Probe(ctx context.Context, timeout time.Duration) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.Check(ctx, &grpc_health_v1.HealthCheckRequest{}, grpc.WaitForReady(true))
	if err != nil {
		c.log.Debug("Health probe failed", zap.String("target", c.target), zap.Error(err))
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, fmt.Errorf("health probe %s: %w", c.target, err)
	}
	return resp.Status, nil
}

// Close closes the connection to the daemon
func (c *HealthClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
