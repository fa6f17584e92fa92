package health

import (
	"context"
	"net"
	"testing"

	"go.viam.com/test"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/events"
)

func dial(t *testing.T, s *Service) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 16)
	go s.Serve(lis)
	t.Cleanup(func() { s.Close() })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := c.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	test.That(t, err, test.ShouldBeNil)
	return resp.GetStatus()
}

func TestPipelineHealthFollowsStatus(t *testing.T) {
	s := NewService(0)
	c := dial(t, s)

	test.That(t, check(t, c, ""), test.ShouldEqual, healthpb.HealthCheckResponse_SERVING)
	test.That(t, check(t, c, PipelineService), test.ShouldEqual, healthpb.HealthCheckResponse_NOT_SERVING)

	err := s.Deliver(context.Background(), events.Envelope{Type: events.TypeStatus, Status: &models.PipelineStatus{Running: true}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, check(t, c, PipelineService), test.ShouldEqual, healthpb.HealthCheckResponse_SERVING)

	// detection events leave the status alone
	test.That(t, s.Deliver(context.Background(), events.Envelope{Type: events.TypeDetections}), test.ShouldBeNil)
	test.That(t, check(t, c, PipelineService), test.ShouldEqual, healthpb.HealthCheckResponse_SERVING)

	s.SetPipelineServing(false)
	test.That(t, check(t, c, PipelineService), test.ShouldEqual, healthpb.HealthCheckResponse_NOT_SERVING)
}
