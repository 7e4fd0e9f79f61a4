// Package grpc exposes the daemon's readiness over the standard gRPC health
// protocol.
package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger is a dependency that can be probed synchronously. *db.DB satisfies
// it.
type Pinger interface {
	Ping() error
}

// Broker reports whether the event publisher can deliver.
type Broker interface {
	IsHealthy() bool
}

// HealthServer implements the gRPC health checking protocol
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	db        Pinger
	publisher Broker
	log       *zap.Logger

	// interval between probes while a Watch stream is open
	interval time.Duration
}

// NewHealthServer creates a new health check server
func NewHealthServer(database Pinger, publisher Broker, log *zap.Logger) *HealthServer {
	return &HealthServer{
		db:        database,
		publisher: publisher,
		log:       log,
		interval:  5 * time.Second,
	}
}

func (h *HealthServer) status() grpc_health_v1.HealthCheckResponse_ServingStatus {
	if err := h.db.Ping(); err != nil {
		h.log.Error("Database health check failed", zap.Error(err))
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	if !h.publisher.IsHealthy() {
		h.log.Error("RabbitMQ health check failed")
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_SERVING
}

// Check implements the health check
func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: h.status()}, nil
}

// Watch sends the current status, then a new message whenever it changes,
// until the client goes away.
func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, server grpc_health_v1.Health_WatchServer) error {
	last := h.status()
	if err := server.Send(&grpc_health_v1.HealthCheckResponse{Status: last}); err != nil {
		return err
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-server.Context().Done():
			return nil
		case <-ticker.C:
			current := h.status()
			if current == last {
				continue
			}
			last = current
			if err := server.Send(&grpc_health_v1.HealthCheckResponse{Status: current}); err != nil {
				return err
			}
		}
	}
}
