package server

import (
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ChatService is the health service name reported next to the overall status.
const ChatService = "chat.Relay"

// HealthServer exposes the standard gRPC health protocol for the chat server.
type HealthServer struct {
	log      *slog.Logger
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
}

func NewHealthServer(log *slog.Logger, address string) (*HealthServer, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	h := &HealthServer{log: log, server: s, health: hs, listener: listener}
	h.SetServing(false)
	return h, nil
}

// Serve blocks until Stop.
func (h *HealthServer) Serve() error {
	h.log.Info("Starting gRPC health server", "address", h.listener.Addr().String())
	if err := h.server.Serve(h.listener); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("gRPC health server error: %w", err)
	}
	return nil
}

func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ChatService, status)
}

func (h *HealthServer) Addr() net.Addr { return h.listener.Addr() }

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
