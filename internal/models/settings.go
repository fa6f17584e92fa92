package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

const (
	DefaultResolution = "1024x768"
	DefaultQuality    = 85
	DefaultFPSLimit   = 15
)

var (
	ErrInvalidResolution = errors.New("invalid resolution")
	ErrInvalidRotation   = errors.New("invalid rotation")
)

// FlipSettings are stored at the top level of the settings file
type FlipSettings struct {
	Horizontal bool `json:"horizontal" mapstructure:"horizontal"`
	Vertical   bool `json:"vertical" mapstructure:"vertical"`
	Rotation   int  `json:"rotation" mapstructure:"rotation"`
}

// DetectionSettings are stored under "detection_settings"
type DetectionSettings struct {
	YoloEnabled   bool   `json:"yolo_enabled" mapstructure:"yolo_enabled"`
	OpencvEnabled bool   `json:"opencv_enabled" mapstructure:"opencv_enabled"`
	ShowFPS       bool   `json:"show_fps" mapstructure:"show_fps"`
	Quality       int    `json:"quality" mapstructure:"quality"`
	FPSLimit      int    `json:"fps_limit" mapstructure:"fps_limit"`
	Resolution    string `json:"resolution" mapstructure:"resolution"`
}

// Settings is the persisted settings document
type Settings struct {
	FlipSettings      `mapstructure:",squash"`
	DetectionSettings DetectionSettings `json:"detection_settings" mapstructure:"detection_settings"`
}

// DefaultSettings returns the documented defaults for every field
func DefaultSettings() Settings {
	return Settings{
		FlipSettings: FlipSettings{},
		DetectionSettings: DetectionSettings{
			YoloEnabled:   true,
			OpencvEnabled: true,
			ShowFPS:       true,
			Quality:       DefaultQuality,
			FPSLimit:      DefaultFPSLimit,
			Resolution:    DefaultResolution,
		},
	}
}

// ParseSettings decodes a settings document on top of the defaults.
// Missing fields keep their default and out-of-range values are normalized.
// A field of the wrong type keeps its default and is reported in the error
// while the other fields still apply. A nested "flip_settings" object is
// accepted as an alternative to top-level flip fields.
func ParseSettings(data []byte) (Settings, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return DefaultSettings(), fmt.Errorf("failed to parse settings: %w", err)
	}

	s := DefaultSettings()
	errs := decodeFields(doc, s.FlipSettings.fields(), "")
	errs = multierr.Append(errs, decodeSection(doc, "flip_settings", s.FlipSettings.fields()))
	errs = multierr.Append(errs, decodeSection(doc, "detection_settings", s.DetectionSettings.fields()))
	if errs != nil {
		errs = fmt.Errorf("failed to parse settings fields: %w", errs)
	}
	return s.Normalize(), errs
}

func (f *FlipSettings) fields() map[string]interface{} {
	return map[string]interface{}{
		"horizontal": &f.Horizontal,
		"vertical":   &f.Vertical,
		"rotation":   &f.Rotation,
	}
}

func (d *DetectionSettings) fields() map[string]interface{} {
	return map[string]interface{}{
		"yolo_enabled":   &d.YoloEnabled,
		"opencv_enabled": &d.OpencvEnabled,
		"show_fps":       &d.ShowFPS,
		"quality":        &d.Quality,
		"fps_limit":      &d.FPSLimit,
		"resolution":     &d.Resolution,
	}
}

func decodeSection(doc map[string]json.RawMessage, key string, fields map[string]interface{}) error {
	raw, ok := doc[key]
	if !ok {
		return nil
	}
	var section map[string]json.RawMessage
	if err := json.Unmarshal(raw, &section); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return decodeFields(section, fields, key+".")
}

// decodeFields unmarshals each known key into its destination. A failed key
// leaves its destination untouched.
func decodeFields(doc map[string]json.RawMessage, fields map[string]interface{}, prefix string) error {
	var errs error
	for key, dst := range fields {
		raw, ok := doc[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", prefix, key, err))
		}
	}
	return errs
}

// Normalize replaces invalid values with defaults
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if !IsValidRotation(s.Rotation) {
		s.Rotation = 0
	}
	if s.DetectionSettings.Quality < 1 || s.DetectionSettings.Quality > 100 {
		s.DetectionSettings.Quality = d.DetectionSettings.Quality
	}
	if s.DetectionSettings.FPSLimit <= 0 {
		s.DetectionSettings.FPSLimit = d.DetectionSettings.FPSLimit
	}
	if _, _, err := ParseResolution(s.DetectionSettings.Resolution); err != nil {
		s.DetectionSettings.Resolution = d.DetectionSettings.Resolution
	}
	return s
}

// ApplyTo copies the user-facing settings onto a pipeline configuration
func (s Settings) ApplyTo(base PipelineConfig) PipelineConfig {
	s = s.Normalize()
	w, h, _ := ParseResolution(s.DetectionSettings.Resolution)

	base.TargetWidth = w
	base.TargetHeight = h
	base.TargetFPS = s.DetectionSettings.FPSLimit
	base.JPEGQuality = s.DetectionSettings.Quality
	base.LearnedEnabled = s.DetectionSettings.YoloEnabled
	base.CascadeEnabled = s.DetectionSettings.OpencvEnabled
	base.ShowFPS = s.DetectionSettings.ShowFPS
	base.FlipHorizontal = s.Horizontal
	base.FlipVertical = s.Vertical
	base.Rotation = s.Rotation
	return base.Normalize()
}

// ParseResolution parses "WIDTHxHEIGHT"
func ParseResolution(s string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	return w, h, nil
}

// IsValidRotation accepts the four right-angle rotations
func IsValidRotation(r int) bool {
	switch r {
	case 0, 90, 180, 270:
		return true
	default:
		return false
	}
}

// ValidateRotation returns ErrInvalidRotation for anything but 0, 90, 180 or 270
func ValidateRotation(r int) error {
	if !IsValidRotation(r) {
		return fmt.Errorf("%w: %d", ErrInvalidRotation, r)
	}
	return nil
}
