package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.viam.com/test"

	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/events"
	"dualvision-worker-go/internal/testutils/inject"
)

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	a := inject.NewRecordingSink()
	b := inject.NewRecordingSink()
	f := events.NewFanout(8, a)
	f.Add(b)
	test.That(t, f.Sinks(), test.ShouldResemble, []string{"recording", "recording"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	f.PublishDetections(models.DetectionEvent{ID: "e1", Source: models.SourceCascade})
	waitFor(t, a.Seen())
	waitFor(t, b.Seen())
	f.PublishStatus(models.PipelineStatus{Running: true, State: models.StateRunning.String()})
	waitFor(t, a.Seen())

	envs := a.Envelopes()
	test.That(t, envs, test.ShouldHaveLength, 2)
	test.That(t, envs[0].Type, test.ShouldEqual, events.TypeDetections)
	test.That(t, envs[0].Detections.ID, test.ShouldEqual, "e1")
	test.That(t, envs[1].Type, test.ShouldEqual, events.TypeStatus)
	test.That(t, envs[1].Status.Running, test.ShouldBeTrue)
}

func TestFanoutDropsWhenFull(t *testing.T) {
	f := events.NewFanout(2)
	for i := 0; i < 5; i++ {
		f.PublishStatus(models.PipelineStatus{})
	}
	_, dropped := f.Stats()
	test.That(t, dropped, test.ShouldEqual, uint64(3))
}

func TestFanoutSurvivesFailingSinks(t *testing.T) {
	failing := &inject.Sink{
		NameFunc: func() string { return "failing" },
		DeliverFunc: func(context.Context, events.Envelope) error {
			return errors.New("broker down")
		},
	}
	panicking := &inject.Sink{
		NameFunc: func() string { return "panicking" },
		DeliverFunc: func(context.Context, events.Envelope) error {
			panic("boom")
		},
	}
	good := inject.NewRecordingSink()
	f := events.NewFanout(4, failing, panicking, good)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	f.PublishStatus(models.PipelineStatus{})
	waitFor(t, good.Seen())
	test.That(t, good.Envelopes(), test.ShouldHaveLength, 1)
}

func TestFanoutCloseCombinesErrors(t *testing.T) {
	closed := 0
	s := func(err error) events.Sink {
		return &inject.Sink{CloseFunc: func() error { closed++; return err }}
	}
	f := events.NewFanout(1, s(errors.New("a")), s(nil), s(errors.New("b")))
	err := f.Close()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "a")
	test.That(t, err.Error(), test.ShouldContainSubstring, "b")
	test.That(t, closed, test.ShouldEqual, 3)
	test.That(t, f.Sinks(), test.ShouldBeEmpty)
}

func TestHubBroadcast(t *testing.T) {
	hub := events.NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	test.That(t, err, test.ShouldBeNil)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	test.That(t, hub.Clients(), test.ShouldEqual, 1)

	err = hub.Deliver(context.Background(), events.Envelope{
		Type:       events.TypeDetections,
		Detections: &models.DetectionEvent{ID: "abc", Source: models.SourceLearned},
	})
	test.That(t, err, test.ShouldBeNil)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	test.That(t, err, test.ShouldBeNil)

	var env events.Envelope
	test.That(t, json.Unmarshal(msg, &env), test.ShouldBeNil)
	test.That(t, env.Type, test.ShouldEqual, events.TypeDetections)
	test.That(t, env.Detections.ID, test.ShouldEqual, "abc")

	test.That(t, hub.Close(), test.ShouldBeNil)
	test.That(t, hub.Clients(), test.ShouldEqual, 0)
}
