package services

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/cache"
	"dualvision-worker-go/internal/services/camera"
	"dualvision-worker-go/internal/services/detection"
	"dualvision-worker-go/internal/services/events"
	"dualvision-worker-go/internal/services/health"
	"dualvision-worker-go/internal/services/messaging"
	"dualvision-worker-go/internal/services/settings"
	"dualvision-worker-go/internal/services/streamcapture"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config    *config.Config
	Capture   *streamcapture.Service
	Detection *detection.Service
	Pipeline  *camera.Controller
	Events    *events.Fanout
	Hub       *events.Hub
	Health    *health.Service
	Settings  *settings.Store

	// optional, nil when disabled or unreachable
	Messaging *messaging.Service
	Cache     *cache.Service

	StartedAt  time.Time
	controlSub *nats.Subscription
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	store := settings.NewStore(cfg.SettingsPath)
	saved, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Str("path", store.Path()).Msg("Failed to load settings, unreadable fields use defaults")
	}

	capture := streamcapture.NewService(streamcapture.OptionsFromConfig(cfg), streamcapture.OpenCamera)
	detectors := detection.NewService(cfg)

	hub := events.NewHub()
	healthSvc := health.NewService(cfg.GRPCPort)
	fanout := events.NewFanout(cfg.EventQueueSize, hub, healthSvc)

	sc := &ServiceContainer{
		Config:    cfg,
		Capture:   capture,
		Detection: detectors,
		Events:    fanout,
		Hub:       hub,
		Health:    healthSvc,
		Settings:  store,
		StartedAt: time.Now(),
	}

	if cfg.NatsEnabled {
		msg, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("NATS unavailable, events and remote control disabled")
		} else {
			sc.Messaging = msg
			fanout.Add(msg)
		}
	}

	if cfg.RedisEnabled {
		cacheSvc := cache.NewService(cache.OptionsFromConfig(cfg))
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := cacheSvc.Ping(ctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, snapshot cache disabled")
			cacheSvc.Close()
		} else {
			sc.Cache = cacheSvc
			fanout.Add(cacheSvc)
		}
	}

	opts := camera.OptionsFromConfig(cfg)
	opts.Pipeline = saved.ApplyTo(cfg.PipelineDefaults())
	opts.Events = fanout
	sc.Pipeline = camera.NewController(capture, detectors, opts)

	return sc, nil
}

// Run starts the background loops and blocks until ctx ends or one of them fails
func (sc *ServiceContainer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return sc.Events.Run(gctx) })
	g.Go(func() error { return sc.Pipeline.Run(gctx) })
	g.Go(func() error { return sc.Health.ListenAndServe(gctx) })

	if sc.Messaging != nil {
		sub, err := sc.Messaging.SubscribeControl(func(cmd models.ControlCommand) error {
			return sc.Control(gctx, cmd)
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to subscribe to control subject")
		} else {
			sc.controlSub = sub
		}
	}

	if sc.Config.AutoStart {
		if err := sc.Pipeline.Start(gctx, sc.Config.DefaultDeviceIndex); err != nil {
			log.Warn().Err(err).Int("device_index", sc.Config.DefaultDeviceIndex).Msg("Auto start failed, waiting for start request")
		}
	}

	return g.Wait()
}

// Control executes a remote start, stop or switch
func (sc *ServiceContainer) Control(ctx context.Context, cmd models.ControlCommand) error {
	index := sc.Config.DefaultDeviceIndex
	if cmd.DeviceIndex != nil {
		index = *cmd.DeviceIndex
	}
	switch cmd.Action {
	case models.ControlStart:
		err := sc.Pipeline.Start(ctx, index)
		if errors.Is(err, camera.ErrAlreadyRunning) {
			return nil
		}
		return err
	case models.ControlStop:
		sc.Pipeline.Stop()
		return nil
	case models.ControlSwitch:
		return sc.Pipeline.Switch(ctx, index)
	default:
		return messaging.ErrInvalidCommand
	}
}

// ApplySettings saves s and applies it to the pipeline. A running session is
// stopped, reconfigured and started again on the same device.
func (sc *ServiceContainer) ApplySettings(ctx context.Context, s models.Settings) (models.Settings, error) {
	saved, err := sc.Settings.Save(s)
	if err != nil {
		return saved, err
	}
	return saved, sc.Pipeline.Reconfigure(ctx, saved.ApplyTo(sc.Pipeline.Config()))
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var err error
	if sc.controlSub != nil {
		err = multierr.Append(err, sc.controlSub.Unsubscribe())
	}
	if sc.Pipeline != nil {
		err = multierr.Append(err, sc.Pipeline.Shutdown(ctx))
	}
	if sc.Events != nil {
		err = multierr.Append(err, sc.Events.Close())
	}
	if sc.Detection != nil {
		err = multierr.Append(err, sc.Detection.Close())
	}
	return err
}

// CurrentSettings returns the saved settings
func (sc *ServiceContainer) CurrentSettings() models.Settings {
	return sc.Settings.Current()
}

// ResetSettings restores the defaults and applies them to the pipeline
func (sc *ServiceContainer) ResetSettings(ctx context.Context) (models.Settings, error) {
	saved, err := sc.Settings.Reset()
	if err != nil {
		return saved, err
	}
	return saved, sc.Pipeline.Reconfigure(ctx, saved.ApplyTo(sc.Pipeline.Config()))
}
