package camera

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dualvision-worker-go/internal/logging"
	"dualvision-worker-go/internal/models"
)

const shutdownGrace = 10 * time.Second

func (c *Controller) setState(state models.PipelineState) {
	c.state.Store(int32(state))
}

func (c *Controller) getState() models.PipelineState {
	return models.PipelineState(c.state.Load())
}

// IsRunning reports whether frames are flowing
func (c *Controller) IsRunning() bool {
	return c.getState() == models.StateRunning
}

// State returns the current pipeline state
func (c *Controller) State() models.PipelineState {
	return c.getState()
}

// Start opens device index and begins emitting frames. On failure the
// pipeline stays stopped and the frame source error is returned.
func (c *Controller) Start(ctx context.Context, index int) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.getState() == models.StateRunning {
		return fmt.Errorf("%w on device %d", ErrAlreadyRunning, c.currentIndex())
	}
	return c.startLocked(ctx, index)
}

// Stop ends the session. It is idempotent.
func (c *Controller) Stop() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.stopLocked()
}

// Switch stops the current session and starts device index. The old device
// is released before the new one is opened.
func (c *Controller) Switch(ctx context.Context, index int) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.logger.Info().Int("from", c.currentIndex()).Int("to", index).Msg("Switching camera")
	c.stopLocked()
	return c.startLocked(ctx, index)
}

// Reconfigure replaces the pipeline configuration. A running session is
// stopped and restarted on the same device so the configuration never
// changes under a running session.
func (c *Controller) Reconfigure(ctx context.Context, cfg models.PipelineConfig) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	cfg = cfg.Normalize()
	wasRunning := c.getState() == models.StateRunning
	index := c.currentIndex()

	if wasRunning {
		c.stopLocked()
	}
	c.cfg.Store(&cfg)
	c.logger.Info().
		Int("width", cfg.TargetWidth).
		Int("height", cfg.TargetHeight).
		Int("fps", cfg.TargetFPS).
		Int("detection_interval", cfg.DetectionIntervalFrames).
		Bool("learned", cfg.LearnedEnabled).
		Bool("cascade", cfg.CascadeEnabled).
		Int("quality", cfg.JPEGQuality).
		Msg("Pipeline reconfigured")

	if wasRunning {
		return c.startLocked(ctx, index)
	}
	return nil
}

// startLocked must be called with opMu held
func (c *Controller) startLocked(ctx context.Context, index int) error {
	c.setState(models.StateStarting)
	cfg := c.Config()

	if err := c.source.Start(ctx, index, cfg); err != nil {
		c.setState(models.StateStopped)
		c.logger.Error().Err(err).Int("device_index", index).Msg("Failed to start pipeline")
		c.publishStatus()
		return err
	}

	sess := &models.CameraSession{
		ID:          uuid.NewString(),
		DeviceIndex: index,
		StartedAt:   c.clock.Now(),
	}
	c.commitMu.Lock()
	c.resetSession()
	c.session.Store(sess)
	c.commitMu.Unlock()
	c.setState(models.StateRunning)

	select {
	case c.wake <- struct{}{}:
	default:
	}

	logger := logging.WithSession(logging.WithDevice(c.logger, index), sess.ID)
	logger.Info().Msg("Pipeline started")
	c.publishStatus()
	return nil
}

// stopLocked must be called with opMu held
func (c *Controller) stopLocked() {
	if c.getState() == models.StateStopped {
		return
	}
	c.setState(models.StateStopping)
	logger := c.logger
	if sess := c.session.Load(); sess != nil {
		logger = logging.WithSession(logging.WithDevice(logger, sess.DeviceIndex), sess.ID)
	}

	c.commitMu.Lock()
	c.session.Store(nil)
	c.learned.Store(nil)
	c.cascade.Store(nil)
	c.publisher.Reset()
	c.commitMu.Unlock()
	c.source.Stop()
	c.setState(models.StateStopped)

	logger.Info().Msg("Pipeline stopped")
	c.publishStatus()
}

func (c *Controller) resetSession() {
	c.frameCounter.Store(0)
	c.emitted.Store(0)
	c.dropped.Store(0)
	c.inferences.Store(0)
	c.learned.Store(nil)
	c.cascade.Store(nil)
	c.fps.Reset()
}

func (c *Controller) currentIndex() int {
	if sess := c.session.Load(); sess != nil {
		return sess.DeviceIndex
	}
	return -1
}

// Shutdown stops the session and closes every stream subscriber. Subscribers
// are closed even when the device does not release in time; the error then
// reports ctx's error or ErrShutdownTimeout.
func (c *Controller) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	timer := c.clock.Timer(shutdownGrace)
	defer timer.Stop()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	case <-timer.C:
		err = ErrShutdownTimeout
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Pipeline stop timed out during shutdown")
	}
	c.publisher.Shutdown()
	return err
}
