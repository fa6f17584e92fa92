package events

import (
	"context"
	"time"

	"dualvision-worker-go/internal/models"
)

// Type names an envelope payload
type Type string

const (
	TypeDetections Type = "detections"
	TypeStatus     Type = "status"
)

// Envelope is one event as delivered to sinks
type Envelope struct {
	Type       Type                   `json:"type"`
	Detections *models.DetectionEvent `json:"detections,omitempty"`
	Status     *models.PipelineStatus `json:"status,omitempty"`
	At         time.Time              `json:"at"`
}

// Sink receives envelopes from the fanout. Deliver is called from a single
// goroutine and should return promptly.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, env Envelope) error
	Close() error
}
