package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"dualvision-worker-go/internal/models"
)

const deliverTimeout = 2 * time.Second

// Fanout queues events from the pipeline and hands them to every sink.
// Publishing never blocks: when the queue is full the event is dropped.
type Fanout struct {
	queue chan Envelope

	mu    sync.RWMutex
	sinks []Sink

	dropped   atomic.Uint64
	delivered atomic.Uint64
	failures  rate.Sometimes
	logger    zerolog.Logger
	now       func() time.Time
}

// NewFanout creates a fanout with a queue of size envelopes
func NewFanout(size int, sinks ...Sink) *Fanout {
	if size <= 0 {
		size = 64
	}
	return &Fanout{
		queue:    make(chan Envelope, size),
		sinks:    sinks,
		failures: rate.Sometimes{First: 3, Every: 100},
		logger:   log.With().Str("service", "events").Logger(),
		now:      time.Now,
	}
}

// Add registers another sink
func (f *Fanout) Add(s Sink) {
	if s == nil {
		return
	}
	f.mu.Lock()
	f.sinks = append(f.sinks, s)
	f.mu.Unlock()
	f.logger.Info().Str("sink", s.Name()).Msg("Event sink registered")
}

// Sinks returns the names of registered sinks
func (f *Fanout) Sinks() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		names = append(names, s.Name())
	}
	return names
}

// PublishDetections enqueues a detection event
func (f *Fanout) PublishDetections(ev models.DetectionEvent) {
	f.enqueue(Envelope{Type: TypeDetections, Detections: &ev, At: f.now()})
}

// PublishStatus enqueues a status snapshot
func (f *Fanout) PublishStatus(st models.PipelineStatus) {
	f.enqueue(Envelope{Type: TypeStatus, Status: &st, At: f.now()})
}

func (f *Fanout) enqueue(env Envelope) {
	select {
	case f.queue <- env:
	default:
		f.dropped.Add(1)
	}
}

// Run delivers queued envelopes until ctx ends
func (f *Fanout) Run(ctx context.Context) error {
	f.logger.Info().Int("queue", cap(f.queue)).Strs("sinks", f.Sinks()).Msg("Event fanout started")
	for {
		select {
		case <-ctx.Done():
			f.logger.Info().Uint64("delivered", f.delivered.Load()).Uint64("dropped", f.dropped.Load()).Msg("Event fanout stopped")
			return nil
		case env := <-f.queue:
			f.dispatch(ctx, env)
		}
	}
}

func (f *Fanout) dispatch(ctx context.Context, env Envelope) {
	f.mu.RLock()
	sinks := f.sinks
	f.mu.RUnlock()

	for _, s := range sinks {
		f.deliver(ctx, s, env)
	}
	f.delivered.Add(1)
}

func (f *Fanout) deliver(ctx context.Context, s Sink, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().Str("sink", s.Name()).Interface("panic", r).Msg("panic_recovered")
		}
	}()
	dctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()
	if err := s.Deliver(dctx, env); err != nil {
		f.failures.Do(func() {
			f.logger.Warn().Err(err).Str("sink", s.Name()).Str("type", string(env.Type)).Msg("Event delivery failed")
		})
	}
}

// Stats returns delivered and dropped envelope counts
func (f *Fanout) Stats() (delivered, dropped uint64) {
	return f.delivered.Load(), f.dropped.Load()
}

// Close closes every sink
func (f *Fanout) Close() error {
	f.mu.Lock()
	sinks := f.sinks
	f.sinks = nil
	f.mu.Unlock()

	var err error
	for _, s := range sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}
