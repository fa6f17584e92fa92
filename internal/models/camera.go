package models

import (
	"time"
)

// PipelineState represents the atomic state of the pipeline controller
type PipelineState int32

const (
	StateStopped PipelineState = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s PipelineState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// PipelineConfig is fixed for the lifetime of a running session.
// It only changes through stop, reconfigure and start.
type PipelineConfig struct {
	TargetWidth             int           `json:"target_width"`
	TargetHeight            int           `json:"target_height"`
	TargetFPS               int           `json:"target_fps"`
	DetectionIntervalFrames int           `json:"detection_interval_frames"`
	FreshnessWindow         time.Duration `json:"freshness_window"`
	LearnedEnabled          bool          `json:"yolo_enabled"`
	CascadeEnabled          bool          `json:"cascade_enabled"`
	JPEGQuality             int           `json:"jpeg_quality"`
	ShowFPS                 bool          `json:"show_fps"`

	// Frame transform
	FlipHorizontal bool `json:"flip_horizontal"`
	FlipVertical   bool `json:"flip_vertical"`
	Rotation       int  `json:"rotation"`
}

// DefaultPipelineConfig returns the values used when nothing else is configured
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TargetWidth:             1024,
		TargetHeight:            768,
		TargetFPS:               DefaultFPSLimit,
		DetectionIntervalFrames: 1,
		FreshnessWindow:         5 * time.Second,
		LearnedEnabled:          true,
		CascadeEnabled:          true,
		JPEGQuality:             DefaultQuality,
		ShowFPS:                 true,
	}
}

// Normalize replaces out-of-range values with safe ones
func (c PipelineConfig) Normalize() PipelineConfig {
	d := DefaultPipelineConfig()
	if c.TargetWidth <= 0 || c.TargetHeight <= 0 {
		c.TargetWidth, c.TargetHeight = d.TargetWidth, d.TargetHeight
	}
	if c.TargetFPS <= 0 {
		c.TargetFPS = d.TargetFPS
	}
	if c.DetectionIntervalFrames <= 0 {
		c.DetectionIntervalFrames = 1
	}
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = d.FreshnessWindow
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		c.JPEGQuality = d.JPEGQuality
	}
	if !IsValidRotation(c.Rotation) {
		c.Rotation = 0
	}
	return c
}

// FrameSpacing is the minimum time between two emitted frames
func (c PipelineConfig) FrameSpacing() time.Duration {
	if c.TargetFPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TargetFPS)
}

// Enabled reports whether the given detector kind runs in this configuration
func (c PipelineConfig) Enabled(source DetectionSource) bool {
	switch source {
	case SourceLearned:
		return c.LearnedEnabled
	case SourceCascade:
		return c.CascadeEnabled
	default:
		return false
	}
}

// AnyDetectorEnabled reports whether at least one detector kind is on
func (c PipelineConfig) AnyDetectorEnabled() bool {
	return c.LearnedEnabled || c.CascadeEnabled
}

// HasTransform reports whether frames need flipping or rotating
func (c PipelineConfig) HasTransform() bool {
	return c.FlipHorizontal || c.FlipVertical || c.Rotation != 0
}

// CameraSession is created on start and torn down on stop or switch
type CameraSession struct {
	ID          string    `json:"id"`
	DeviceIndex int       `json:"device_index"`
	StartedAt   time.Time `json:"started_at"`
}

// DetectorStatus describes one detector slot in the status response
type DetectorStatus struct {
	Enabled    bool       `json:"enabled"`
	Available  bool       `json:"available"`
	Count      int        `json:"count"`
	ProducedAt *time.Time `json:"produced_at,omitempty"`
}

// DetectorInfo is the runtime view of one guarded detector
type DetectorInfo struct {
	Available bool     `json:"available"`
	Busy      bool     `json:"busy"`
	Calls     uint64   `json:"calls"`
	Failures  uint64   `json:"failures"`
	Loaded    []string `json:"loaded,omitempty"`
}

// PipelineStatus is returned by the controller and the /status endpoint
type PipelineStatus struct {
	Running     bool   `json:"running"`
	DeviceIndex *int   `json:"device_index"`
	State       string `json:"state"`

	CameraConnected bool      `json:"camera_connected"`
	Streaming       bool      `json:"streaming"`
	SessionID       string    `json:"session_id,omitempty"`
	OSType          string    `json:"os_type"`
	LastChecked     time.Time `json:"last_checked"`

	// Statistics
	FPS           float64 `json:"fps"`
	FramesEmitted uint64  `json:"frames_emitted"`
	FramesDropped uint64  `json:"frames_dropped"`
	Subscribers   int     `json:"subscribers"`

	Learned DetectorStatus `json:"learned"`
	Cascade DetectorStatus `json:"cascade"`
}

// CameraInfo is one entry returned by device probing
type CameraInfo struct {
	Index      int    `json:"index"`
	Resolution string `json:"resolution"`
	FPS        int    `json:"fps"`
	CanRead    bool   `json:"can_read"`
	Active     bool   `json:"active"`
}

// ControlAction names a remote control operation
type ControlAction string

const (
	ControlStart  ControlAction = "start"
	ControlStop   ControlAction = "stop"
	ControlSwitch ControlAction = "switch"
)

// IsValid checks if the control action is known
func (a ControlAction) IsValid() bool {
	switch a {
	case ControlStart, ControlStop, ControlSwitch:
		return true
	default:
		return false
	}
}

// ControlCommand is received on the control subject
type ControlCommand struct {
	Action      ControlAction `json:"action"`
	DeviceIndex *int          `json:"device_index,omitempty"`
}

// CameraIndexRequest for API
type CameraIndexRequest struct {
	CameraIndex *int `json:"camera_index" binding:"required"`
}

// CameraIndexResponse for API
type CameraIndexResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	CameraIndex *int   `json:"camera_index,omitempty"`
}
