package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dualvision-worker-go/internal/logging"
	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/camera"
)

type CameraHandler struct {
	pipeline     Pipeline
	devices      DeviceProber
	defaultIndex int
	probeMax     int
	cache        SnapshotCache
}

func NewCameraHandler(pipeline Pipeline, devices DeviceProber, defaultIndex, probeMax int) *CameraHandler {
	if probeMax < 0 {
		probeMax = 5
	}
	return &CameraHandler{
		pipeline:     pipeline,
		devices:      devices,
		defaultIndex: defaultIndex,
		probeMax:     probeMax,
	}
}

// WithCache enables GET /status?cached=1
func (h *CameraHandler) WithCache(cache SnapshotCache) *CameraHandler {
	h.cache = cache
	return h
}

// bindIndex reads an optional camera_index body. ok is false when a response was written.
func (h *CameraHandler) bindIndex(c *gin.Context, required bool) (int, bool) {
	if !required && c.Request.ContentLength == 0 {
		return h.defaultIndex, true
	}
	var req models.CameraIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.Warn(c).Err(err).Msg("Invalid camera request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "camera_index is required"})
		return 0, false
	}
	if *req.CameraIndex < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "camera_index must not be negative"})
		return 0, false
	}
	return *req.CameraIndex, true
}

// StartCamera starts the pipeline
// @Summary Start the camera pipeline
// @Description Open a capture device and start streaming. Without a body the configured default device is used.
// @Tags cameras
// @Accept json
// @Produce json
// @Param request body models.CameraIndexRequest false "Device to open"
// @Success 200 {object} models.CameraIndexResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} models.CameraIndexResponse
// @Router /start_camera [post]
func (h *CameraHandler) StartCamera(c *gin.Context) {
	index, ok := h.bindIndex(c, false)
	if !ok {
		return
	}
	logging.SetDevice(c, index)

	err := h.pipeline.Start(c.Request.Context(), index)
	switch {
	case errors.Is(err, camera.ErrAlreadyRunning):
		c.JSON(http.StatusOK, models.CameraIndexResponse{Success: true, Message: "Camera already running", CameraIndex: h.status().DeviceIndex})
	case err != nil:
		logging.Error(c).Err(err).Msg("Failed to start camera")
		c.JSON(http.StatusInternalServerError, models.CameraIndexResponse{
			Success:     false,
			Error:       fmt.Sprintf("Failed to start camera %d: %v", index, err),
			CameraIndex: &index,
		})
	default:
		logging.Info(c).Msg("Camera started")
		c.JSON(http.StatusOK, models.CameraIndexResponse{Success: true, Message: fmt.Sprintf("Camera %d started", index), CameraIndex: &index})
	}
}

// StopCamera stops the pipeline
// @Summary Stop the camera pipeline
// @Description Stop streaming and release the capture device. Stopping a stopped pipeline succeeds.
// @Tags cameras
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /stop_camera [post]
func (h *CameraHandler) StopCamera(c *gin.Context) {
	h.pipeline.Stop()
	logging.Info(c).Msg("Camera stopped")
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Camera stopped"})
}

// SwitchCamera moves the pipeline to another device
// @Summary Switch camera
// @Description Release the current device and open another one
// @Tags cameras
// @Accept json
// @Produce json
// @Param request body models.CameraIndexRequest true "Device to switch to"
// @Success 200 {object} models.CameraIndexResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} models.CameraIndexResponse
// @Router /switch_camera [post]
func (h *CameraHandler) SwitchCamera(c *gin.Context) {
	index, ok := h.bindIndex(c, true)
	if !ok {
		return
	}
	logging.SetDevice(c, index)

	if err := h.pipeline.Switch(c.Request.Context(), index); err != nil {
		logging.Error(c).Err(err).Msg("Failed to switch camera")
		c.JSON(http.StatusInternalServerError, models.CameraIndexResponse{
			Success:     false,
			Error:       fmt.Sprintf("Failed to switch to camera %d: %v", index, err),
			CameraIndex: &index,
		})
		return
	}

	logging.Info(c).Msg("Camera switched")
	c.JSON(http.StatusOK, models.CameraIndexResponse{Success: true, Message: fmt.Sprintf("Switched to camera %d", index), CameraIndex: &index})
}

// GetStatus reports the pipeline state
// @Summary Pipeline status
// @Description Running flag, active device, session, fps, frame counters and per-detector state
// @Tags cameras
// @Produce json
// @Param cached query bool false "Return the last status written to the shared cache"
// @Success 200 {object} models.PipelineStatus
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /status [get]
func (h *CameraHandler) GetStatus(c *gin.Context) {
	if cached, _ := strconv.ParseBool(c.Query("cached")); cached {
		h.cachedStatus(c)
		return
	}
	c.JSON(http.StatusOK, h.status())
}

func (h *CameraHandler) cachedStatus(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Status cache is not enabled"})
		return
	}
	st, err := h.cache.LatestStatus(c.Request.Context())
	if err != nil {
		logging.Warn(c).Err(err).Msg("Failed to read cached status")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: fmt.Sprintf("Failed to read cached status: %v", err)})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No cached status"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *CameraHandler) status() models.PipelineStatus {
	return h.pipeline.Status()
}

// DetectCameras probes device indices
// @Summary Detect cameras
// @Description Try device indices 0..N and report the ones that open
// @Tags cameras
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /detect_cameras [get]
func (h *CameraHandler) DetectCameras(c *gin.Context) {
	found := h.devices.ProbeDevices(c.Request.Context(), h.probeMax)
	if found == nil {
		found = []models.CameraInfo{}
	}
	logging.Info(c).Int("found", len(found)).Msg("Camera probe finished")
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"available_cameras": found,
		"count":             len(found),
	})
}

// TestCamera opens one device and reads a frame
// @Summary Test a camera
// @Description Open a device, read one frame and report resolution and fps
// @Tags cameras
// @Produce json
// @Param index path int true "Device index"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} map[string]interface{}
// @Router /test_camera/{index} [get]
func (h *CameraHandler) TestCamera(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid camera index"})
		return
	}
	logging.SetDevice(c, index)

	info, err := h.devices.TestDevice(c.Request.Context(), index)
	if err != nil || !info.CanRead {
		msg := fmt.Sprintf("Camera %d test failed", index)
		if err != nil {
			msg = fmt.Sprintf("%s: %v", msg, err)
		}
		logging.Warn(c).Err(err).Msg("Camera test failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":      false,
			"error":        msg,
			"camera_index": index,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      fmt.Sprintf("Camera %d test succeeded", index),
		"camera_index": index,
		"camera":       info,
	})
}
