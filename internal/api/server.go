package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"dualvision-worker-go/internal/api/handlers"
	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/services"
)

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler   *handlers.HealthHandler
	cameraHandler   *handlers.CameraHandler
	videoHandler    *handlers.VideoHandler
	settingsHandler *handlers.SettingsHandler
	eventsHandler   *handlers.EventsHandler
	systemHandler   *handlers.SystemHandler
	workerHandler   *handlers.WorkerHandler
}

// NewServer wires every handler to the service container. shutdown is
// called by POST /worker/shutdown and may be nil.
func NewServer(cfg *config.Config, sc *services.ServiceContainer, shutdown func()) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	pipeline := sc.Pipeline

	s := &Server{
		config:          cfg,
		router:          router,
		healthHandler:   handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, pipeline),
		cameraHandler:   handlers.NewCameraHandler(pipeline, sc.Capture, cfg.DefaultDeviceIndex, cfg.ProbeMaxIndex),
		videoHandler:    handlers.NewVideoHandler(pipeline, cfg.StreamKeepalive),
		settingsHandler: handlers.NewSettingsHandler(sc),
		eventsHandler:   handlers.NewEventsHandler(sc.Hub),
		systemHandler:   handlers.NewSystemHandler(cfg.WorkerID, sc.StartedAt, pipeline, sc.Events),
		workerHandler:   handlers.NewWorkerHandler(cfg, pipeline, sc.Detection, sc.StartedAt, shutdown),
	}
	if sc.Cache != nil {
		s.cameraHandler.WithCache(sc.Cache)
		s.systemHandler.WithCache(sc.Cache)
	}
	s.Setup()
	return s
}

// Setup installs middleware, routes and docs
func (s *Server) Setup() {
	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting HTTP API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends.
// Open video streams end when the pipeline closes its subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping HTTP API")
	return s.server.Shutdown(ctx)
}
