package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dualvision-worker-go/internal/logging"
	"dualvision-worker-go/internal/models"
)

type SettingsHandler struct {
	settings SettingsManager
}

func NewSettingsHandler(settings SettingsManager) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// FlipSettingsRequest updates the frame transform. Omitted fields keep their value.
type FlipSettingsRequest struct {
	Horizontal *bool `json:"horizontal"`
	Vertical   *bool `json:"vertical"`
	Rotation   *int  `json:"rotation" example:"90"`
}

// DetectionSettingsRequest updates detection and output settings. Omitted fields keep their value.
type DetectionSettingsRequest struct {
	YoloEnabled   *bool   `json:"yolo_enabled"`
	OpencvEnabled *bool   `json:"opencv_enabled"`
	ShowFPS       *bool   `json:"show_fps"`
	Quality       *int    `json:"quality" example:"85"`
	FPSLimit      *int    `json:"fps_limit" example:"15"`
	Resolution    *string `json:"resolution" example:"1024x768"`
}

// GetSettings godoc
// @Summary Current settings
// @Tags settings
// @Produce json
// @Success 200 {object} SettingsResponse
// @Router /settings [get]
// @Router /get_settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, SettingsResponse{Success: true, Settings: h.settings.CurrentSettings()})
}

// UpdateSettings godoc
// @Summary Update flip and rotation
// @Description Saves the transform and restarts a running pipeline with it
// @Tags settings
// @Accept json
// @Produce json
// @Param request body FlipSettingsRequest true "Transform settings"
// @Success 200 {object} SettingsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /update_settings [post]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req FlipSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	next := h.settings.CurrentSettings()
	if req.Horizontal != nil {
		next.Horizontal = *req.Horizontal
	}
	if req.Vertical != nil {
		next.Vertical = *req.Vertical
	}
	if req.Rotation != nil {
		if err := models.ValidateRotation(*req.Rotation); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		next.Rotation = *req.Rotation
	}

	h.apply(c, next, "Camera settings applied")
}

// UpdateDetectionSettings godoc
// @Summary Update detection settings
// @Description Saves detector toggles, fps overlay, quality, fps limit and resolution and restarts a running pipeline with them
// @Tags settings
// @Accept json
// @Produce json
// @Param request body DetectionSettingsRequest true "Detection settings"
// @Success 200 {object} SettingsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /update_detection_settings [post]
func (h *SettingsHandler) UpdateDetectionSettings(c *gin.Context) {
	var req DetectionSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	next := h.settings.CurrentSettings()
	ds := &next.DetectionSettings
	if req.YoloEnabled != nil {
		ds.YoloEnabled = *req.YoloEnabled
	}
	if req.OpencvEnabled != nil {
		ds.OpencvEnabled = *req.OpencvEnabled
	}
	if req.ShowFPS != nil {
		ds.ShowFPS = *req.ShowFPS
	}
	if req.Quality != nil {
		if *req.Quality < 1 || *req.Quality > 100 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "quality must be between 1 and 100"})
			return
		}
		ds.Quality = *req.Quality
	}
	if req.FPSLimit != nil {
		if *req.FPSLimit <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "fps_limit must be positive"})
			return
		}
		ds.FPSLimit = *req.FPSLimit
	}
	if req.Resolution != nil {
		if _, _, err := models.ParseResolution(*req.Resolution); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		ds.Resolution = *req.Resolution
	}

	h.apply(c, next, "Detection settings applied")
}

// ResetSettings godoc
// @Summary Reset settings
// @Description Restores every setting to its default and restarts a running pipeline with them
// @Tags settings
// @Produce json
// @Success 200 {object} SettingsResponse
// @Failure 500 {object} ErrorResponse
// @Router /reset_settings [post]
// @Router /reset_settings [get]
func (h *SettingsHandler) ResetSettings(c *gin.Context) {
	saved, err := h.settings.ResetSettings(c.Request.Context())
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to reset settings")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	logging.Info(c).Msg("Settings reset to defaults")
	c.JSON(http.StatusOK, SettingsResponse{Success: true, Message: "Settings reset", Settings: saved})
}

func (h *SettingsHandler) apply(c *gin.Context, next models.Settings, msg string) {
	saved, err := h.settings.ApplySettings(c.Request.Context(), next)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to apply settings")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	logging.Info(c).
		Bool("horizontal", saved.Horizontal).
		Bool("vertical", saved.Vertical).
		Int("rotation", saved.Rotation).
		Bool("yolo_enabled", saved.DetectionSettings.YoloEnabled).
		Bool("opencv_enabled", saved.DetectionSettings.OpencvEnabled).
		Str("resolution", saved.DetectionSettings.Resolution).
		Msg("Settings applied")
	c.JSON(http.StatusOK, SettingsResponse{Success: true, Message: msg, Settings: saved})
}
