package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dualvision-worker-go/internal/logging"
	"dualvision-worker-go/internal/services/publisher/mjpeg"
)

type VideoHandler struct {
	pipeline  Pipeline
	keepalive time.Duration
}

func NewVideoHandler(pipeline Pipeline, keepalive time.Duration) *VideoHandler {
	if keepalive <= 0 {
		keepalive = 2 * time.Second
	}
	return &VideoHandler{
		pipeline:  pipeline,
		keepalive: keepalive,
	}
}

// VideoFeed godoc
// @Summary Live MJPEG stream
// @Description multipart/x-mixed-replace stream of annotated JPEG frames. While the pipeline is stopped a placeholder frame is sent and the stream resumes when it starts again.
// @Tags video
// @Produce multipart/x-mixed-replace
// @Success 200 {string} binary
// @Router /video_feed [get]
func (h *VideoHandler) VideoFeed(c *gin.Context) {
	ctx := c.Request.Context()
	frames := h.pipeline.FrameSequence(ctx)

	first := h.pipeline.LatestFrame()
	if first == nil && !h.pipeline.IsRunning() {
		cfg := h.pipeline.Config()
		first = mjpeg.Placeholder(cfg.TargetWidth/2, cfg.TargetHeight/2, "Camera stopped", "POST /start_camera")
	}

	logging.Debug(c).Str("remote", c.ClientIP()).Msg("Video stream client connected")
	mjpeg.StreamMJPEGHTTP(c.Writer, c.Request, frames, first, h.keepalive)
	logging.Debug(c).Str("remote", c.ClientIP()).Msg("Video stream client disconnected")
}

// Snapshot godoc
// @Summary Latest frame
// @Description The most recently emitted annotated frame as a single JPEG
// @Tags video
// @Produce image/jpeg
// @Success 200 {string} binary
// @Failure 503 {object} ErrorResponse
// @Router /snapshot [get]
func (h *VideoHandler) Snapshot(c *gin.Context) {
	part := h.pipeline.LatestFrame()
	jpeg := mjpeg.JPEGFromPart(part)
	if len(jpeg) == 0 {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "No frame available"})
		return
	}
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "image/jpeg", jpeg)
}
