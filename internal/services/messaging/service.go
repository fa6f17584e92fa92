package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/events"
)

// ErrInvalidCommand is returned for control messages that cannot be executed
var ErrInvalidCommand = errors.New("invalid control command")

// Subjects derived from the configured prefix
type Subjects struct {
	Detections string
	Status     string
	Control    string
}

// SubjectsFor returns the subjects under prefix
func SubjectsFor(prefix string) Subjects {
	if prefix == "" {
		prefix = "dualvision"
	}
	return Subjects{
		Detections: prefix + ".detections",
		Status:     prefix + ".status",
		Control:    prefix + ".control",
	}
}

type Service struct {
	conn     *nats.Conn
	cfg      *config.Config
	subjects Subjects
}

func NewService(cfg *config.Config) (*Service, error) {
	opts := []nats.Option{
		nats.Name("dualvision-" + cfg.WorkerID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DrainTimeout(cfg.NatsDrainTimeout),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", cfg.NatsURL).Str("prefix", cfg.NatsSubjectPrefix).Msg("NATS connection established")

	return &Service{
		conn:     conn,
		cfg:      cfg,
		subjects: SubjectsFor(cfg.NatsSubjectPrefix),
	}, nil
}

func (s *Service) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return s.conn.Publish(subject, payload)
}

func (s *Service) Subscribe(subject string, handler func([]byte)) (*nats.Subscription, error) {
	return s.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

func (s *Service) QueueSubscribe(subject, queue string, handler func([]byte)) (*nats.Subscription, error) {
	return s.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// Name implements events.Sink
func (s *Service) Name() string { return "nats" }

// Deliver implements events.Sink
func (s *Service) Deliver(_ context.Context, env events.Envelope) error {
	switch env.Type {
	case events.TypeDetections:
		return s.Publish(s.subjects.Detections, env.Detections)
	case events.TypeStatus:
		return s.Publish(s.subjects.Status, env.Status)
	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
}

// SubscribeControl runs handler for every valid command on the control
// subject. Workers sharing the queue group split the commands between them.
// If the message has a reply subject the handler error is sent back.
func (s *Service) SubscribeControl(handler func(models.ControlCommand) error) (*nats.Subscription, error) {
	queue := s.cfg.NatsControlQueue
	sub, err := s.conn.QueueSubscribe(s.subjects.Control, queue, func(msg *nats.Msg) {
		reply := map[string]interface{}{"success": true}
		cmd, err := ParseControl(msg.Data)
		if err == nil {
			err = handler(cmd)
		}
		if err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("Control command failed")
			reply = map[string]interface{}{"success": false, "error": err.Error()}
		} else {
			log.Info().Str("action", string(cmd.Action)).Msg("Control command executed")
		}
		if msg.Reply != "" {
			payload, _ := json.Marshal(reply)
			if rerr := msg.Respond(payload); rerr != nil {
				log.Warn().Err(rerr).Msg("Failed to reply to control command")
			}
		}
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("subject", s.subjects.Control).Str("queue", queue).Msg("Listening for control commands")
	return sub, nil
}

// ParseControl decodes and validates a control message
func ParseControl(data []byte) (models.ControlCommand, error) {
	var cmd models.ControlCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if !cmd.Action.IsValid() {
		return cmd, fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
	}
	if cmd.Action == models.ControlSwitch && cmd.DeviceIndex == nil {
		return cmd, fmt.Errorf("%w: switch requires device_index", ErrInvalidCommand)
	}
	if cmd.DeviceIndex != nil && *cmd.DeviceIndex < 0 {
		return cmd, fmt.Errorf("%w: negative device_index", ErrInvalidCommand)
	}
	return cmd, nil
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Close implements events.Sink
func (s *Service) Close() error {
	return s.Shutdown(context.Background())
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn != nil {
		// Try graceful drain with timeout, fallback to immediate close
		if err := s.conn.Drain(); err != nil {
			log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
			s.conn.Close()
		}
	}
	return nil
}
