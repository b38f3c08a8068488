package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer reports NOT_SERVING until the chunk corpus is loaded.
type HealthServer struct {
	service string
	health  *health.Server
}

func NewHealthServer(service string) *HealthServer {
	h := &HealthServer{service: service, health: health.NewServer()}
	h.SetReady(false)
	return h
}

// SetReady flips both the overall status and the named service status.
func (h *HealthServer) SetReady(ready bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(h.service, status)
}

// Shutdown marks every service NOT_SERVING so load balancers drain first.
func (h *HealthServer) Shutdown() {
	h.health.Shutdown()
}

// NewServer builds the gRPC server carrying the health service and reflection.
func NewServer(h *HealthServer) *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, h.health)
	reflection.Register(s)
	return s
}
