package camera

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/detection"
	"dualvision-worker-go/internal/services/frameprocessing"
	"dualvision-worker-go/internal/services/publisher/mjpeg"
)

var (
	// ErrAlreadyRunning is returned by Start when a session is active
	ErrAlreadyRunning = errors.New("pipeline already running")
	// ErrShutdownTimeout is returned by Shutdown when the device is not released in time
	ErrShutdownTimeout = errors.New("pipeline stop timed out")
)

// FrameSource is the camera the controller pulls frames from
type FrameSource interface {
	Start(ctx context.Context, index int, cfg models.PipelineConfig) error
	Stop()
	ReadFrame(ctx context.Context) (gocv.Mat, bool)
	IsRunning() bool
	DeviceIndex() (int, bool)
}

// EventPublisher receives detection events and status snapshots. Both
// calls must return immediately.
type EventPublisher interface {
	PublishDetections(ev models.DetectionEvent)
	PublishStatus(st models.PipelineStatus)
}

type noopEvents struct{}

func (noopEvents) PublishDetections(models.DetectionEvent) {}
func (noopEvents) PublishStatus(models.PipelineStatus)     {}

// EncodeFunc compresses a frame at a quality
type EncodeFunc func(frame gocv.Mat, quality int) ([]byte, error)

// Options wires the controller
type Options struct {
	Pipeline         models.PipelineConfig
	IdleInterval     time.Duration
	RetryInterval    time.Duration
	SubscriberBuffer int
	FPSWindow        int
	StatusEvery      time.Duration
	ErrorLogEvery    int
	PanicDelay       time.Duration

	Clock     clock.Clock
	Events    EventPublisher
	Encode    EncodeFunc
	Processor *frameprocessing.Processor
}

// OptionsFromConfig builds controller options from process configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Pipeline:         cfg.PipelineDefaults(),
		IdleInterval:     cfg.IdleInterval,
		RetryInterval:    cfg.RetryInterval,
		SubscriberBuffer: cfg.SubscriberBuffer,
		FPSWindow:        cfg.FPSWindow,
		StatusEvery:      cfg.StatusPublishEvery,
		ErrorLogEvery:    cfg.ErrorLogEvery,
		PanicDelay:       cfg.PanicRestartDelay,
		Processor:        frameprocessing.NewProcessor(cfg),
	}
}

// Controller is the pipeline: it owns the session, runs detection at the
// configured cadence, keeps the latest result set per detector kind and
// publishes encoded frames. Control operations are serialized by opMu; the
// frame loop in Run only reads state through atomics.
type Controller struct {
	source    FrameSource
	detectors *detection.Service
	processor *frameprocessing.Processor
	publisher *mjpeg.Publisher
	events    EventPublisher
	clock     clock.Clock
	encode    EncodeFunc
	opts      Options

	opMu  sync.Mutex
	state atomic.Int32

	// commitMu orders frame-loop writes against session changes
	commitMu sync.Mutex
	cfg      atomic.Pointer[models.PipelineConfig]
	session  atomic.Pointer[models.CameraSession]
	wake     chan struct{}

	learned atomic.Pointer[models.DetectionResultSet]
	cascade atomic.Pointer[models.DetectionResultSet]

	// owned by the frame loop
	frameCounter atomic.Uint64
	lastEmit     time.Time
	lastStatus   time.Time

	emitted     atomic.Uint64
	dropped     atomic.Uint64
	inferences  atomic.Uint64
	fps         *FPSMeter
	lastChecked atomic.Pointer[time.Time]

	readFailures   rate.Sometimes
	detectFailures rate.Sometimes
	encodeFailures rate.Sometimes
	logger         zerolog.Logger
}

// NewController creates a stopped controller
func NewController(source FrameSource, detectors *detection.Service, opts Options) *Controller {
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = 100 * time.Millisecond
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 10 * time.Millisecond
	}
	if opts.StatusEvery <= 0 {
		opts.StatusEvery = 5 * time.Second
	}
	if opts.ErrorLogEvery <= 0 {
		opts.ErrorLogEvery = 100
	}
	if opts.PanicDelay <= 0 {
		opts.PanicDelay = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Events == nil {
		opts.Events = noopEvents{}
	}
	if opts.Processor == nil {
		opts.Processor = frameprocessing.NewProcessor(nil)
	}
	if opts.Encode == nil {
		opts.Encode = opts.Processor.Encode
	}
	if opts.Pipeline == (models.PipelineConfig{}) {
		opts.Pipeline = models.DefaultPipelineConfig()
	}

	c := &Controller{
		source:         source,
		detectors:      detectors,
		processor:      opts.Processor,
		publisher:      mjpeg.NewPublisher(opts.SubscriberBuffer),
		events:         opts.Events,
		clock:          opts.Clock,
		encode:         opts.Encode,
		opts:           opts,
		wake:           make(chan struct{}, 1),
		fps:            NewFPSMeter(opts.FPSWindow),
		readFailures:   rate.Sometimes{First: 1, Every: opts.ErrorLogEvery},
		detectFailures: rate.Sometimes{First: 1, Every: opts.ErrorLogEvery},
		encodeFailures: rate.Sometimes{First: 1, Every: opts.ErrorLogEvery},
		logger:         log.With().Str("service", "pipeline").Logger(),
	}
	pcfg := opts.Pipeline.Normalize()
	c.cfg.Store(&pcfg)
	c.setState(models.StateStopped)
	return c
}

// Config returns the active pipeline configuration
func (c *Controller) Config() models.PipelineConfig {
	return *c.cfg.Load()
}

// Publisher exposes the frame fanout
func (c *Controller) Publisher() *mjpeg.Publisher {
	return c.publisher
}

// FrameSequence returns framed JPEG parts until ctx ends. It keeps
// delivering across stop and start; while stopped nothing arrives.
func (c *Controller) FrameSequence(ctx context.Context) <-chan []byte {
	return c.publisher.Subscribe(ctx)
}

// LatestFrame returns the last emitted part, nil when stopped
func (c *Controller) LatestFrame() []byte {
	return c.publisher.Latest()
}

// ResultSet returns the latest result set of a detector kind
func (c *Controller) ResultSet(source models.DetectionSource) *models.DetectionResultSet {
	if slot := c.slot(source); slot != nil {
		return slot.Load()
	}
	return nil
}

func (c *Controller) slot(source models.DetectionSource) *atomic.Pointer[models.DetectionResultSet] {
	switch source {
	case models.SourceLearned:
		return &c.learned
	case models.SourceCascade:
		return &c.cascade
	default:
		return nil
	}
}

func (c *Controller) resultSets() []*models.DetectionResultSet {
	return []*models.DetectionResultSet{c.learned.Load(), c.cascade.Load()}
}

// Stats returns emitted frames, dropped frames and detection runs for the
// current session
func (c *Controller) Stats() (emitted, dropped, inferences uint64) {
	return c.emitted.Load(), c.dropped.Load(), c.inferences.Load()
}

// Status reports the pipeline state
func (c *Controller) Status() models.PipelineStatus {
	now := c.clock.Now()
	c.lastChecked.Store(&now)

	state := c.getState()
	cfg := c.Config()
	st := models.PipelineStatus{
		Running:         state == models.StateRunning,
		State:           state.String(),
		CameraConnected: c.source.IsRunning(),
		Streaming:       state == models.StateRunning && c.publisher.Subscribers() > 0,
		OSType:          runtime.GOOS,
		LastChecked:     now,
		FPS:             c.fps.Rate(),
		FramesEmitted:   c.emitted.Load(),
		FramesDropped:   c.dropped.Load(),
		Subscribers:     c.publisher.Subscribers(),
		Learned:         c.detectorStatus(models.SourceLearned, cfg, now),
		Cascade:         c.detectorStatus(models.SourceCascade, cfg, now),
	}
	if sess := c.session.Load(); sess != nil && st.Running {
		idx := sess.DeviceIndex
		st.DeviceIndex = &idx
		st.SessionID = sess.ID
	}
	return st
}

func (c *Controller) detectorStatus(source models.DetectionSource, cfg models.PipelineConfig, now time.Time) models.DetectorStatus {
	ds := models.DetectorStatus{Enabled: cfg.Enabled(source)}
	if c.detectors != nil {
		if g := c.detectors.For(source); g != nil {
			ds.Available = g.Available()
		}
	}
	if set := c.ResultSet(source); set != nil && set.IsFresh(now, cfg.FreshnessWindow) {
		ds.Count = set.Len()
		at := set.ProducedAt
		ds.ProducedAt = &at
	}
	return ds
}

func (c *Controller) publishStatus() {
	c.events.PublishStatus(c.Status())
}
