package grpc

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewServer builds the gRPC server: health service plus reflection for
// grpcurl/grpcui.
func NewServer(health *HealthServer, log *zap.Logger) *grpc.Server {
	server := grpc.NewServer(
		grpc.UnaryInterceptor(LoggingInterceptor(log)),
	)
	grpc_health_v1.RegisterHealthServer(server, health)
	reflection.Register(server)
	return server
}
