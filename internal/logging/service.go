package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dualvision-worker-go/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("worker_id", cfg.WorkerID).Str("service", service).Logger()
}

func WithDevice(base zerolog.Logger, deviceIndex int) zerolog.Logger {
	return base.With().Int("device_index", deviceIndex).Logger()
}

func WithSession(base zerolog.Logger, sessionID string) zerolog.Logger {
	return base.With().Str("session_id", sessionID).Logger()
}
