package inject

import (
	"context"
	"sync"

	"dualvision-worker-go/internal/services/events"
)

// Sink is an injected event sink.
type Sink struct {
	events.Sink
	NameFunc    func() string
	DeliverFunc func(ctx context.Context, env events.Envelope) error
	CloseFunc   func() error
}

// Name calls the injected Name or the real version.
func (s *Sink) Name() string {
	if s.NameFunc == nil {
		if s.Sink == nil {
			return "inject"
		}
		return s.Sink.Name()
	}
	return s.NameFunc()
}

// Deliver calls the injected Deliver or the real version.
func (s *Sink) Deliver(ctx context.Context, env events.Envelope) error {
	if s.DeliverFunc == nil {
		return s.Sink.Deliver(ctx, env)
	}
	return s.DeliverFunc(ctx, env)
}

// Close calls the injected Close or the real version.
func (s *Sink) Close() error {
	if s.CloseFunc == nil {
		if s.Sink == nil {
			return nil
		}
		return s.Sink.Close()
	}
	return s.CloseFunc()
}

// RecordingSink keeps every delivered envelope
type RecordingSink struct {
	*Sink

	mu   sync.Mutex
	envs []events.Envelope
	seen chan struct{}
}

// NewRecordingSink returns a sink that records deliveries
func NewRecordingSink() *RecordingSink {
	r := &RecordingSink{seen: make(chan struct{}, 1024)}
	r.Sink = &Sink{
		NameFunc: func() string { return "recording" },
		DeliverFunc: func(_ context.Context, env events.Envelope) error {
			r.mu.Lock()
			r.envs = append(r.envs, env)
			r.mu.Unlock()
			select {
			case r.seen <- struct{}{}:
			default:
			}
			return nil
		},
	}
	return r
}

// Envelopes returns a copy of everything delivered so far
func (r *RecordingSink) Envelopes() []events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Envelope, len(r.envs))
	copy(out, r.envs)
	return out
}

// Seen is signalled after every delivery
func (r *RecordingSink) Seen() <-chan struct{} {
	return r.seen
}
