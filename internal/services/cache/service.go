package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/events"
)

const statusTTL = time.Minute

// Service keeps the latest status and detection sets in Redis so other
// processes can read them without subscribing to the event stream.
// Detection keys expire after the freshness window, matching what the
// stream would still draw.
type Service struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options for a cache connection
type Options struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	TTL         time.Duration
	DialTimeout time.Duration
}

// OptionsFromConfig reads cache options from process configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
		TTL:      cfg.FreshnessWindow,
	}
}

// NewService creates a client; it does not connect until first use
func NewService(opts Options) *Service {
	if opts.Prefix == "" {
		opts.Prefix = "dualvision"
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Second
	}
	ro := &redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if opts.DialTimeout > 0 {
		ro.DialTimeout = opts.DialTimeout
		ro.MaxRetries = -1
	}
	return &Service{
		client: redis.NewClient(ro),
		prefix: opts.Prefix,
		ttl:    opts.TTL,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// StatusKey is where the latest status snapshot lives
func (s *Service) StatusKey() string {
	return s.prefix + ":status"
}

// DetectionsKey is where the latest set of one detector kind lives
func (s *Service) DetectionsKey(source models.DetectionSource) string {
	return s.prefix + ":detections:" + string(source)
}

// Name implements events.Sink
func (s *Service) Name() string { return "redis" }

// Deliver implements events.Sink
func (s *Service) Deliver(ctx context.Context, env events.Envelope) error {
	switch env.Type {
	case events.TypeDetections:
		if env.Detections == nil {
			return nil
		}
		return s.set(ctx, s.DetectionsKey(env.Detections.Source), env.Detections, s.ttl)
	case events.TypeStatus:
		if env.Status == nil {
			return nil
		}
		return s.set(ctx, s.StatusKey(), env.Status, statusTTL)
	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
}

func (s *Service) set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// LatestDetections returns the cached event of one detector kind, nil on a miss
func (s *Service) LatestDetections(ctx context.Context, source models.DetectionSource) (*models.DetectionEvent, error) {
	var ev models.DetectionEvent
	ok, err := s.get(ctx, s.DetectionsKey(source), &ev)
	if err != nil || !ok {
		return nil, err
	}
	return &ev, nil
}

// LatestStatus returns the cached status, nil on a miss
func (s *Service) LatestStatus(ctx context.Context) (*models.PipelineStatus, error) {
	var st models.PipelineStatus
	ok, err := s.get(ctx, s.StatusKey(), &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

func (s *Service) get(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to decode cached value")
		return false, err
	}
	return true, nil
}

func (s *Service) Close() error {
	return s.client.Close()
}
