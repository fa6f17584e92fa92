package cache

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"

	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/events"
)

func TestKeys(t *testing.T) {
	s := NewService(Options{Prefix: "lab"})
	defer s.Close()
	test.That(t, s.StatusKey(), test.ShouldEqual, "lab:status")
	test.That(t, s.DetectionsKey(models.SourceCascade), test.ShouldEqual, "lab:detections:cascade")
	test.That(t, s.Name(), test.ShouldEqual, "redis")
}

func TestDefaults(t *testing.T) {
	s := NewService(Options{})
	defer s.Close()
	test.That(t, s.prefix, test.ShouldEqual, "dualvision")
	test.That(t, s.ttl, test.ShouldEqual, 5*time.Second)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(&config.Config{
		RedisAddr:       "cache:6379",
		RedisDB:         2,
		RedisPrefix:     "cam",
		FreshnessWindow: 3 * time.Second,
	})
	test.That(t, opts.Addr, test.ShouldEqual, "cache:6379")
	test.That(t, opts.DB, test.ShouldEqual, 2)
	test.That(t, opts.TTL, test.ShouldEqual, 3*time.Second)
}

func TestDeliverUnreachable(t *testing.T) {
	s := NewService(Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.Deliver(ctx, events.Envelope{Type: events.TypeStatus, Status: &models.PipelineStatus{}})
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, s.Deliver(ctx, events.Envelope{Type: events.TypeDetections}), test.ShouldBeNil)
	test.That(t, s.Deliver(ctx, events.Envelope{Type: "bogus"}), test.ShouldNotBeNil)
}
