package health

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"dualvision-worker-go/internal/services/events"
)

// PipelineService is the health service name that tracks the pipeline state
const PipelineService = "dualvision.Pipeline"

// Service exposes the standard gRPC health protocol. The overall server is
// always SERVING; PipelineService is SERVING only while frames are flowing.
type Service struct {
	server *grpc.Server
	health *health.Server
	port   int
}

// NewService creates the gRPC server for port
func NewService(port int) *Service {
	s := &Service{
		server: grpc.NewServer(),
		health: health.NewServer(),
		port:   port,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(PipelineService, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve blocks serving on lis
func (s *Service) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
	return s.server.Serve(lis)
}

// ListenAndServe serves on the configured port until ctx ends
func (s *Service) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %d: %w", s.port, err)
	}
	go func() {
		<-ctx.Done()
		s.server.GracefulStop()
	}()
	if err := s.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// SetPipelineServing flips the pipeline health status
func (s *Service) SetPipelineServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(PipelineService, status)
}

// Name implements events.Sink
func (s *Service) Name() string { return "grpc-health" }

// Deliver implements events.Sink. Only status envelopes change anything.
func (s *Service) Deliver(_ context.Context, env events.Envelope) error {
	if env.Type == events.TypeStatus && env.Status != nil {
		s.SetPipelineServing(env.Status.Running)
	}
	return nil
}

// Close marks everything NOT_SERVING and stops the server
func (s *Service) Close() error {
	s.health.Shutdown()
	s.server.Stop()
	return nil
}
