package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/models"
)

type WorkerHandler struct {
	cfg       *config.Config
	pipeline  Pipeline
	startedAt time.Time
	shutdown  func()
	detectors DetectorInspector
}

func NewWorkerHandler(cfg *config.Config, pipeline Pipeline, detectors DetectorInspector, startedAt time.Time, shutdown func()) *WorkerHandler {
	return &WorkerHandler{
		cfg:       cfg,
		pipeline:  pipeline,
		startedAt: startedAt,
		shutdown:  shutdown,
		detectors: detectors,
	}
}

type WorkerDetailsResponse struct {
	WorkerID     string                `json:"worker_id"`
	Version      string                `json:"version"`
	Environment  string                `json:"environment"`
	Port         int                   `json:"port"`
	GRPCPort     int                   `json:"grpc_port"`
	StartTime    time.Time             `json:"start_time"`
	Detectors    DetectorConfig        `json:"detectors"`
	Pipeline     models.PipelineConfig `json:"pipeline"`
	Integrations IntegrationConfig     `json:"integrations"`
}

type DetectorConfig struct {
	LearnedBackend string        `json:"learned_backend"`
	LearnedModel   string        `json:"learned_model,omitempty"`
	LearnedRemote  string        `json:"learned_remote,omitempty"`
	Cascades       []string      `json:"cascades"`
	Timeout        time.Duration `json:"timeout"`
	Retries        int           `json:"retries"`

	Runtime map[string]models.DetectorInfo `json:"runtime,omitempty"`
}

type IntegrationConfig struct {
	NATS  bool `json:"nats"`
	Redis bool `json:"redis"`
	Logdy bool `json:"logdy"`
}

type ShutdownResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// GetInfo godoc
// @Summary Get service details
// @Description Detector backends, active pipeline configuration and enabled integrations
// @Tags worker
// @Accept json
// @Produce json
// @Success 200 {object} WorkerDetailsResponse
// @Router /worker/info [get]
func (h *WorkerHandler) GetInfo(c *gin.Context) {
	det := DetectorConfig{
		LearnedBackend: h.cfg.LearnedBackend,
		Cascades:       h.cfg.CascadeNames,
		Timeout:        h.cfg.DetectorTimeout,
		Retries:        h.cfg.DetectorRetries,
	}
	switch h.cfg.LearnedBackend {
	case config.BackendONNX:
		det.LearnedModel = h.cfg.LearnedModelPath
	case config.BackendGRPC:
		det.LearnedRemote = h.cfg.LearnedGRPCAddr
	}
	if h.detectors != nil {
		det.Runtime = h.detectors.Info()
	}

	c.JSON(http.StatusOK, WorkerDetailsResponse{
		WorkerID:    h.cfg.WorkerID,
		Version:     h.cfg.Version,
		Environment: h.cfg.Environment,
		Port:        h.cfg.Port,
		GRPCPort:    h.cfg.GRPCPort,
		StartTime:   h.startedAt,
		Detectors:   det,
		Pipeline:    h.pipeline.Config(),
		Integrations: IntegrationConfig{
			NATS:  h.cfg.NatsEnabled,
			Redis: h.cfg.RedisEnabled,
			Logdy: h.cfg.LogdyEnabled,
		},
	})
}

// Shutdown godoc
// @Summary Shutdown service
// @Description Gracefully stop the pipeline and the process
// @Tags worker
// @Produce json
// @Success 200 {object} ShutdownResponse
// @Failure 503 {object} ErrorResponse
// @Router /worker/shutdown [post]
func (h *WorkerHandler) Shutdown(c *gin.Context) {
	if h.shutdown == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Shutdown is not available"})
		return
	}

	c.JSON(http.StatusOK, ShutdownResponse{
		Status:    "shutting_down",
		Message:   "Shutdown initiated",
		Timestamp: time.Now(),
	})

	// Initiate shutdown in a goroutine to allow response to be sent
	go func() {
		time.Sleep(100 * time.Millisecond)
		h.shutdown()
	}()
}
