package logging

import (
	"fmt"
	"io"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dualvision-worker-go/internal/config"
)

type logdyWriter struct {
	logger logdy.Logdy
}

func (w *logdyWriter) Write(p []byte) (n int, err error) {
	w.logger.LogString(string(p))
	return len(p), nil
}

// StartLogdy starts embedded Logdy web UI and returns a writer to tee logs, plus the UI URL
func StartLogdy(cfg *config.Config) (io.Writer, string, error) {
	portStr := strconv.Itoa(cfg.LogdyPort)
	ld := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: portStr,
	}, nil)

	url := fmt.Sprintf("http://%s:%s", cfg.LogdyHost, portStr)
	return &logdyWriter{logger: ld}, url, nil
}

// Setup installs the global logger: console output, optionally teed into Logdy
func Setup(cfg *config.Config, console io.Writer) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	if !cfg.LogdyEnabled {
		return
	}
	w, url, err := StartLogdy(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Logdy disabled")
		return
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(out, w)).With().Timestamp().Logger()
	log.Info().Str("url", url).Msg("Logdy UI available")
}
