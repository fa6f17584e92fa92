package camera

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/detection"
	"dualvision-worker-go/internal/services/frameprocessing"
	"dualvision-worker-go/internal/services/publisher/mjpeg"
)

// Run drives the frame loop until ctx ends. It idles while stopped and
// never returns on a per-frame error.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info().Msg("Frame loop started")
	defer c.logger.Info().Msg("Frame loop stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}
		var wait time.Duration
		if c.IsRunning() {
			wait = c.safeStep(ctx)
		} else {
			wait = c.opts.IdleInterval
		}
		if wait > 0 && !c.sleep(ctx, wait) {
			return nil
		}
	}
}

// sleep waits for d, a start signal or ctx. It returns false when ctx ended.
func (c *Controller) sleep(ctx context.Context, d time.Duration) bool {
	t := c.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-c.wake:
		return true
	case <-t.C:
		return true
	}
}

func (c *Controller) safeStep(ctx context.Context) (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("panic_recovered")
			wait = c.opts.PanicDelay
		}
	}()
	return c.step(ctx)
}

// step runs one iteration: governor, capture, detection on every Nth frame,
// annotation, encode and publish. It returns how long to wait before the
// next iteration.
func (c *Controller) step(ctx context.Context) time.Duration {
	sess := c.session.Load()
	if sess == nil {
		return c.opts.RetryInterval
	}
	cfg := c.Config()
	now := c.clock.Now()

	if spacing := cfg.FrameSpacing(); !c.lastEmit.IsZero() {
		if elapsed := now.Sub(c.lastEmit); elapsed < spacing {
			return spacing - elapsed
		}
	}

	frame, ok := c.source.ReadFrame(ctx)
	if !ok {
		c.readFailures.Do(func() {
			c.logger.Debug().Msg("No frame available")
		})
		return c.opts.RetryInterval
	}
	defer func() { frame.Close() }()

	c.processor.Transform(&frame, cfg)

	n := c.frameCounter.Add(1)
	if cfg.AnyDetectorEnabled() && n%uint64(cfg.DetectionIntervalFrames) == 0 {
		c.detect(ctx, sess, frame, cfg, n)
	}

	drawn := c.processor.Annotate(&frame, c.resultSets(), cfg, c.clock.Now())
	if frameprocessing.ShouldDrawStats(cfg) {
		c.processor.DrawStats(&frame, frameprocessing.Stats{FPS: c.fps.Rate(), Counts: drawn}, cfg)
	}

	data, err := c.encode(frame, cfg.JPEGQuality)
	if err != nil {
		c.dropped.Add(1)
		c.encodeFailures.Do(func() {
			c.logger.Warn().Err(err).Uint64("frame", n).Msg("Failed to encode frame, dropping")
		})
		return c.opts.RetryInterval
	}

	published := c.commit(sess, func() {
		c.publisher.Publish(mjpeg.FramePart(data))
		c.emitted.Add(1)
		c.lastEmit = now
		c.fps.Tick(now)
	})
	if !published {
		c.logger.Debug().Str("session_id", sess.ID).Msg("Session ended mid-frame, dropping")
		return 0
	}

	if now.Sub(c.lastStatus) >= c.opts.StatusEvery {
		c.lastStatus = now
		c.publishStatus()
	}
	return 0
}

// detect runs every enabled detector on frame concurrently. Each kind only
// writes its own slot, so a failing detector never touches the other's set.
func (c *Controller) detect(ctx context.Context, sess *models.CameraSession, frame gocv.Mat, cfg models.PipelineConfig, n uint64) {
	if c.detectors == nil {
		return
	}
	c.inferences.Add(1)

	var g errgroup.Group
	for _, source := range models.Sources {
		if !cfg.Enabled(source) {
			continue
		}
		guard := c.detectors.For(source)
		slot := c.slot(source)
		if guard == nil || slot == nil {
			continue
		}
		g.Go(func() error {
			dets, err := guard.Detect(ctx, frame)
			switch {
			case errors.Is(err, detection.ErrBusy):
				// a timed out call is still running; keep the previous set
				return nil
			case err != nil && !errors.Is(err, detection.ErrUnavailable):
				c.detectFailures.Do(func() {
					c.logger.Warn().Err(err).Str("detector", source.String()).Uint64("frame", n).Msg("Detection failed")
				})
			}
			set := models.NewDetectionResultSet(source, dets, c.clock.Now())
			stored := c.commit(sess, func() { slot.Store(set) })
			if stored && err == nil {
				c.emitDetections(sess, set, n)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// commit runs fn only while sess is still the active session. Stop and
// start swap sessions under the same lock.
func (c *Controller) commit(sess *models.CameraSession, fn func()) bool {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()
	if c.session.Load() != sess {
		return false
	}
	fn()
	return true
}

func (c *Controller) emitDetections(sess *models.CameraSession, set *models.DetectionResultSet, n uint64) {
	c.events.PublishDetections(models.DetectionEvent{
		ID:          uuid.NewString(),
		SessionID:   sess.ID,
		Source:      set.Source,
		DeviceIndex: sess.DeviceIndex,
		FrameNumber: n,
		Detections:  set.Detections,
		ProducedAt:  set.ProducedAt,
	})
}
