package detection

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"dualvision-worker-go/internal/models"
)

// GuardOptions configures the call policy around a detector
type GuardOptions struct {
	Timeout time.Duration
	Retries int
}

// Guard wraps a Detector with a bounded call policy: a per-call timeout,
// a single retry budget, panic recovery and a busy flag that prevents new
// calls while a timed-out one is still running. Every attempt works on its
// own clone of the frame. Failures come back as an empty result plus the error.
type Guard struct {
	inner   Detector
	timeout time.Duration
	retries int
	busy    atomic.Bool
	logger  zerolog.Logger

	calls    atomic.Uint64
	failures atomic.Uint64
}

// NewGuard creates a guard around d
func NewGuard(d Detector, opts GuardOptions) *Guard {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Guard{
		inner:   d,
		timeout: opts.Timeout,
		retries: opts.Retries,
		logger:  log.With().Str("service", "detection").Str("kind", d.Kind().String()).Logger(),
	}
}

func (g *Guard) Kind() models.DetectionSource { return g.inner.Kind() }

// Available reports the wrapped detector's state. A busy detector was
// available when its call started and is not asked again until it returns.
func (g *Guard) Available() bool {
	if g.busy.Load() {
		return true
	}
	return g.inner.Available()
}

// Busy reports whether a timed-out call is still occupying the detector
func (g *Guard) Busy() bool { return g.busy.Load() }

// Stats returns the number of calls and failed calls
func (g *Guard) Stats() (calls, failures uint64) {
	return g.calls.Load(), g.failures.Load()
}

// Info reports availability, counters and, for detectors that load several
// models, the loaded model names
func (g *Guard) Info() models.DetectorInfo {
	calls, failures := g.Stats()
	info := models.DetectorInfo{
		Available: g.Available(),
		Busy:      g.Busy(),
		Calls:     calls,
		Failures:  failures,
	}
	if named, ok := g.inner.(interface{ Names() []string }); ok {
		info.Loaded = named.Names()
	}
	return info
}

func (g *Guard) Close() error { return g.inner.Close() }

// Detect runs the wrapped detector under the guard policy.
// The returned slice is never nil and every box is clamped to the frame.
func (g *Guard) Detect(ctx context.Context, frame gocv.Mat) ([]models.Detection, error) {
	g.calls.Add(1)

	if g.busy.Load() {
		g.failures.Add(1)
		return []models.Detection{}, ErrBusy
	}
	if !g.inner.Available() {
		return []models.Detection{}, ErrUnavailable
	}
	if frame.Empty() {
		return []models.Detection{}, nil
	}

	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		dets, err := g.attempt(ctx, frame)
		if err == nil {
			return models.ClampDetections(dets, frame.Cols(), frame.Rows()), nil
		}
		lastErr = err
		if errors.Is(err, ErrTimeout) || ctx.Err() != nil {
			break
		}
		g.logger.Debug().Err(err).Int("attempt", attempt+1).Msg("Detector attempt failed")
	}

	g.failures.Add(1)
	return []models.Detection{}, lastErr
}

type guardResult struct {
	dets []models.Detection
	err  error
}

func (g *Guard) attempt(ctx context.Context, frame gocv.Mat) ([]models.Detection, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	img := frame.Clone()
	done := make(chan guardResult, 1)
	g.busy.Store(true)

	go func() {
		var r guardResult
		defer func() {
			if p := recover(); p != nil {
				g.logger.Error().Interface("panic", p).Msg("panic_recovered")
				r = guardResult{err: fmt.Errorf("%w: %v", ErrPanic, p)}
			}
			img.Close()
			g.busy.Store(false)
			done <- r
		}()
		r.dets, r.err = g.inner.Detect(callCtx, img)
	}()

	select {
	case r := <-done:
		return r.dets, r.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn().Dur("timeout", g.timeout).Msg("Detector call timed out, skipping until it returns")
		return nil, ErrTimeout
	}
}
