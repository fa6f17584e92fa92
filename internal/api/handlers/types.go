package handlers

import (
	"context"

	"dualvision-worker-go/internal/models"
)

// Pipeline is the camera pipeline as seen by the HTTP layer
type Pipeline interface {
	Start(ctx context.Context, index int) error
	Stop()
	Switch(ctx context.Context, index int) error
	Status() models.PipelineStatus
	Config() models.PipelineConfig
	IsRunning() bool
	FrameSequence(ctx context.Context) <-chan []byte
	LatestFrame() []byte
}

// DeviceProber enumerates and tests capture devices
type DeviceProber interface {
	ProbeDevices(ctx context.Context, maxIndex int) []models.CameraInfo
	TestDevice(ctx context.Context, index int) (models.CameraInfo, error)
}

// SettingsManager persists settings and applies them to the pipeline
type SettingsManager interface {
	CurrentSettings() models.Settings
	ApplySettings(ctx context.Context, s models.Settings) (models.Settings, error)
	ResetSettings(ctx context.Context) (models.Settings, error)
}

// DetectorInspector reports the runtime state of both detectors keyed by kind
type DetectorInspector interface {
	Info() map[string]models.DetectorInfo
}

// SnapshotCache reads back the last status and detection events written to
// the shared cache
type SnapshotCache interface {
	LatestStatus(ctx context.Context) (*models.PipelineStatus, error)
	LatestDetections(ctx context.Context, source models.DetectionSource) (*models.DetectionEvent, error)
}

type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"camera_index is required"`
}

type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Camera stopped"`
}

// SettingsResponse is returned by every settings endpoint
type SettingsResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Settings models.Settings `json:"settings"`
}
