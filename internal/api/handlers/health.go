package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	WorkerID string
	Version  string
	pipeline Pipeline
}

func NewHealthHandler(workerID, version string, pipeline Pipeline) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, Version: version, pipeline: pipeline}
}

type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	WorkerID string `json:"worker_id" example:"streamer-1"`
	Pipeline string `json:"pipeline" example:"running"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"streamer-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the service is healthy and responsive. The pipeline state is informational.
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		WorkerID: h.WorkerID,
		Pipeline: h.pipeline.Status().State,
	})
}

// @Summary Service information
// @Description Get basic service information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   "running",
		Version:  h.Version,
		Capabilities: []string{
			"mjpeg_streaming",
			"learned_detection",
			"cascade_detection",
			"frame_transform",
			"live_events",
		},
	})
}
