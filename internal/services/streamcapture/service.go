package streamcapture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/models"
)

var (
	// ErrDeviceUnavailable is returned when a device cannot be opened or never yields a frame
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrNotRunning is returned by operations that need an open device
	ErrNotRunning = errors.New("frame source not running")
)

// Options controls device lifecycle timing
type Options struct {
	ReleaseDelay   time.Duration
	WarmupRetries  int
	WarmupInterval time.Duration
	ReadTimeout    time.Duration
	BufferSize     int
	ErrorLogEvery  int
}

// OptionsFromConfig extracts frame source options from process configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ReleaseDelay:   cfg.DeviceReleaseDelay,
		WarmupRetries:  cfg.WarmupRetries,
		WarmupInterval: cfg.WarmupInterval,
		ReadTimeout:    cfg.ReadTimeout,
		BufferSize:     cfg.CaptureBufferSize,
		ErrorLogEvery:  cfg.ErrorLogEvery,
	}
}

// Service owns the camera device handle. mu guards the handle, the running
// flag and the index; opMu serializes Start and Stop against each other.
// A read that outlives its timeout keeps the device marked busy and is
// awaited before the device is closed. No new device is opened until that
// close has happened.
type Service struct {
	opts Options
	open Opener

	opMu sync.Mutex

	mu      sync.Mutex
	dev     Device
	running bool
	index   int
	width   int
	height  int
	fps     int
	pending chan struct{}
	// releasing is closed once a device left behind by a hung read is closed
	releasing chan struct{}

	readFailures rate.Sometimes
	logger       zerolog.Logger
}

// NewService creates a frame source using open to reach devices
func NewService(opts Options, open Opener) *Service {
	if opts.WarmupRetries <= 0 {
		opts.WarmupRetries = 5
	}
	if opts.WarmupInterval <= 0 {
		opts.WarmupInterval = 100 * time.Millisecond
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 2 * time.Second
	}
	if opts.ErrorLogEvery <= 0 {
		opts.ErrorLogEvery = 100
	}
	if open == nil {
		open = OpenCamera
	}
	return &Service{
		opts:         opts,
		open:         open,
		index:        -1,
		readFailures: rate.Sometimes{First: 1, Every: opts.ErrorLogEvery},
		logger:       log.With().Str("service", "streamcapture").Logger(),
	}
}

// Start stops any prior session, waits for the device to be released, then
// opens device index with the configured resolution and fps. It fails with
// ErrDeviceUnavailable when the device cannot be opened or yields no frame
// within the warmup budget.
func (s *Service) Start(ctx context.Context, index int, cfg models.PipelineConfig) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.stopLocked() && s.opts.ReleaseDelay > 0 {
		if err := sleepCtx(ctx, s.opts.ReleaseDelay); err != nil {
			return err
		}
	}

	logger := s.logger.With().Int("device_index", index).Logger()
	if err := s.awaitRelease(ctx); err != nil {
		logger.Warn().Err(err).Msg("Refusing to open capture device")
		return err
	}
	logger.Info().
		Int("width", cfg.TargetWidth).
		Int("height", cfg.TargetHeight).
		Int("fps", cfg.TargetFPS).
		Msg("Opening capture device")

	dev, err := s.open(index)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open capture device")
		return fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, index, err)
	}
	if dev == nil || !dev.IsOpened() {
		if dev != nil {
			dev.Close()
		}
		logger.Error().Msg("Capture device is not opened")
		return fmt.Errorf("%w: device %d is not opened", ErrDeviceUnavailable, index)
	}

	configureDevice(dev, cfg.TargetWidth, cfg.TargetHeight, cfg.TargetFPS, s.opts.BufferSize)

	if err := s.warmup(ctx, dev); err != nil {
		logger.Error().Err(err).Int("retries", s.opts.WarmupRetries).Msg("Capture device yielded no frame")
		return fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, index, err)
	}

	w, h, fps := describeDevice(dev)

	s.mu.Lock()
	s.dev = dev
	s.running = true
	s.index = index
	s.width, s.height, s.fps = w, h, fps
	s.mu.Unlock()

	logger.Info().Int("actual_width", w).Int("actual_height", h).Int("actual_fps", fps).Msg("Capture device started")
	return nil
}

// warmup reads until the device yields a frame. On failure the device is closed.
func (s *Service) warmup(ctx context.Context, dev Device) error {
	for attempt := 0; attempt < s.opts.WarmupRetries; attempt++ {
		img, ok, done := timedRead(dev, s.opts.ReadTimeout)
		if ok {
			img.Close()
			return nil
		}
		if done != nil {
			// the read is still in flight; close only after it returns
			s.releaseAfter(dev, done, func() { img.Close() })
			return fmt.Errorf("read timed out after %s", s.opts.ReadTimeout)
		}
		img.Close()
		if err := sleepCtx(ctx, backoffDelay(attempt, s.opts.WarmupInterval, 10*s.opts.WarmupInterval, 20)); err != nil {
			dev.Close()
			return err
		}
	}
	dev.Close()
	return fmt.Errorf("no frame after %d attempts", s.opts.WarmupRetries)
}

// Stop releases the device. It is idempotent and safe when not running.
func (s *Service) Stop() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.stopLocked()
}

// stopLocked must be called with opMu held. It reports whether a device was open.
func (s *Service) stopLocked() bool {
	s.mu.Lock()
	dev := s.dev
	pending := s.pending
	index := s.index
	s.dev = nil
	s.running = false
	s.index = -1
	s.mu.Unlock()

	if dev == nil {
		return false
	}

	if pending != nil {
		select {
		case <-pending:
		case <-time.After(2 * s.opts.ReadTimeout):
			s.logger.Warn().Int("device_index", index).Msg("Read still in flight, releasing device after it returns")
			s.releaseAfter(dev, pending, nil)
			return true
		}
	}

	if err := dev.Close(); err != nil {
		s.logger.Warn().Err(err).Int("device_index", index).Msg("Error closing capture device")
	}
	s.logger.Info().Int("device_index", index).Msg("Capture device released")
	return true
}

// releaseAfter closes dev once done is closed. Start refuses to open another
// device until then.
func (s *Service) releaseAfter(dev Device, done <-chan struct{}, cleanup func()) {
	released := make(chan struct{})
	s.mu.Lock()
	s.releasing = released
	s.mu.Unlock()
	go func() {
		defer close(released)
		<-done
		if cleanup != nil {
			cleanup()
		}
		dev.Close()
	}()
}

// awaitRelease waits up to one read timeout for a device left behind by a
// hung read. It fails with ErrDeviceUnavailable if that device is still busy.
func (s *Service) awaitRelease(ctx context.Context) error {
	s.mu.Lock()
	released := s.releasing
	s.mu.Unlock()
	if released == nil {
		return nil
	}

	timer := time.NewTimer(s.opts.ReadTimeout)
	defer timer.Stop()
	select {
	case <-released:
	case <-timer.C:
		return fmt.Errorf("%w: previous device still busy", ErrDeviceUnavailable)
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	if s.releasing == released {
		s.releasing = nil
	}
	s.mu.Unlock()
	return nil
}

// ReadFrame pulls one frame. It never blocks past the read timeout or ctx;
// a missing frame is reported as ok=false and is never fatal. The caller owns
// the returned Mat.
func (s *Service) ReadFrame(ctx context.Context) (gocv.Mat, bool) {
	s.mu.Lock()
	if !s.running || s.dev == nil || s.pending != nil {
		s.mu.Unlock()
		return gocv.Mat{}, false
	}
	dev := s.dev
	done := make(chan struct{})
	s.pending = done
	s.mu.Unlock()

	img := gocv.NewMat()
	var ok bool
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Interface("panic", r).Msg("panic_recovered")
				ok = false
			}
		}()
		ok = dev.Read(&img) && !img.Empty()
	}()

	timer := time.NewTimer(s.opts.ReadTimeout)
	defer timer.Stop()

	select {
	case <-done:
		s.clearPending(done)
		if !ok {
			img.Close()
			s.readFailures.Do(func() {
				s.logger.Warn().Msg("Failed to read frame")
			})
			return gocv.Mat{}, false
		}
		return img, true
	case <-timer.C:
	case <-ctx.Done():
	}

	s.readFailures.Do(func() {
		s.logger.Warn().Dur("timeout", s.opts.ReadTimeout).Msg("Frame read timed out")
	})
	go func() {
		<-done
		img.Close()
		s.clearPending(done)
	}()
	return gocv.Mat{}, false
}

func (s *Service) clearPending(done chan struct{}) {
	s.mu.Lock()
	if s.pending == done {
		s.pending = nil
	}
	s.mu.Unlock()
}

// IsRunning reports whether a device is open
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// DeviceIndex returns the open device index
func (s *Service) DeviceIndex() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, s.running
}

// Describe returns the resolution and fps of the open device
func (s *Service) Describe() (width, height, fps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height, s.fps
}

// timedRead reads one frame bounded by timeout. When the read outlives the
// timeout, done is returned non-nil and the caller must wait on it before
// closing img or the device.
func timedRead(dev Device, timeout time.Duration) (img gocv.Mat, ok bool, done chan struct{}) {
	img = gocv.NewMat()
	ch := make(chan struct{})
	var read bool
	go func() {
		defer close(ch)
		defer func() { _ = recover() }()
		read = dev.Read(&img) && !img.Empty()
	}()

	select {
	case <-ch:
		return img, read, nil
	case <-time.After(timeout):
		return img, false, ch
	}
}

// backoffDelay calculates a jittered exponential delay clamped to [minDelay, maxDelay]
func backoffDelay(attempt int, minDelay, maxDelay time.Duration, jitterPct int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt))) * minDelay
	if base < minDelay {
		base = minDelay
	}
	if base > maxDelay {
		base = maxDelay
	}
	jitter := time.Duration(float64(base) * float64(jitterPct) / 100.0 * (rand.Float64()*2 - 1))
	return base + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
