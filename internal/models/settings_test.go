package models

import (
	"errors"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestParseSettingsDefaults(t *testing.T) {
	s, err := ParseSettings([]byte(`{}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldResemble, DefaultSettings())
}

func TestParseSettingsMissingRotation(t *testing.T) {
	s, err := ParseSettings([]byte(`{"horizontal": true, "detection_settings": {"quality": 70}}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Rotation, test.ShouldEqual, 0)
	test.That(t, s.Horizontal, test.ShouldBeTrue)
	test.That(t, s.DetectionSettings.Quality, test.ShouldEqual, 70)
	test.That(t, s.DetectionSettings.FPSLimit, test.ShouldEqual, DefaultFPSLimit)
	test.That(t, s.DetectionSettings.Resolution, test.ShouldEqual, DefaultResolution)
	test.That(t, s.DetectionSettings.YoloEnabled, test.ShouldBeTrue)
}

func TestParseSettingsNormalizes(t *testing.T) {
	s, err := ParseSettings([]byte(`{
		"rotation": 45,
		"detection_settings": {"quality": 250, "fps_limit": -1, "resolution": "wide"}
	}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Rotation, test.ShouldEqual, 0)
	test.That(t, s.DetectionSettings.Quality, test.ShouldEqual, DefaultQuality)
	test.That(t, s.DetectionSettings.FPSLimit, test.ShouldEqual, DefaultFPSLimit)
	test.That(t, s.DetectionSettings.Resolution, test.ShouldEqual, DefaultResolution)
}

func TestParseSettingsNestedFlip(t *testing.T) {
	s, err := ParseSettings([]byte(`{"flip_settings": {"vertical": true, "rotation": 270}}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Vertical, test.ShouldBeTrue)
	test.That(t, s.Horizontal, test.ShouldBeFalse)
	test.That(t, s.Rotation, test.ShouldEqual, 270)
}

func TestParseSettingsMalformed(t *testing.T) {
	s, err := ParseSettings([]byte(`{"rotation": `))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, s, test.ShouldResemble, DefaultSettings())
}

func TestParseSettingsBadFieldKeepsOthers(t *testing.T) {
	s, err := ParseSettings([]byte(`{
		"horizontal": true,
		"rotation": "sideways",
		"detection_settings": {"quality": "high", "fps_limit": 10, "yolo_enabled": false}
	}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "detection_settings.quality")
	test.That(t, err.Error(), test.ShouldContainSubstring, "rotation")
	test.That(t, s.Horizontal, test.ShouldBeTrue)
	test.That(t, s.Rotation, test.ShouldEqual, 0)
	test.That(t, s.DetectionSettings.Quality, test.ShouldEqual, DefaultQuality)
	test.That(t, s.DetectionSettings.FPSLimit, test.ShouldEqual, 10)
	test.That(t, s.DetectionSettings.YoloEnabled, test.ShouldBeFalse)
	test.That(t, s.DetectionSettings.OpencvEnabled, test.ShouldBeTrue)
}

func TestParseSettingsBadSection(t *testing.T) {
	s, err := ParseSettings([]byte(`{"vertical": true, "detection_settings": "fast"}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, s.Vertical, test.ShouldBeTrue)
	test.That(t, s.DetectionSettings, test.ShouldResemble, DefaultSettings().DetectionSettings)
}

func TestParseResolution(t *testing.T) {
	w, h, err := ParseResolution("1280x720")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, w, test.ShouldEqual, 1280)
	test.That(t, h, test.ShouldEqual, 720)

	w, h, err = ParseResolution(" 640X480 ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, w, test.ShouldEqual, 640)
	test.That(t, h, test.ShouldEqual, 480)

	for _, bad := range []string{"", "640", "0x480", "ax480", "640x-1", "1x2x3"} {
		_, _, err := ParseResolution(bad)
		test.That(t, errors.Is(err, ErrInvalidResolution), test.ShouldBeTrue)
	}
}

func TestValidateRotation(t *testing.T) {
	for _, r := range []int{0, 90, 180, 270} {
		test.That(t, ValidateRotation(r), test.ShouldBeNil)
	}
	err := ValidateRotation(45)
	test.That(t, errors.Is(err, ErrInvalidRotation), test.ShouldBeTrue)
}

func TestSettingsApplyTo(t *testing.T) {
	s := DefaultSettings()
	s.Horizontal = true
	s.Rotation = 90
	s.DetectionSettings.OpencvEnabled = false
	s.DetectionSettings.Resolution = "640x480"
	s.DetectionSettings.FPSLimit = 10
	s.DetectionSettings.Quality = 60

	base := DefaultPipelineConfig()
	base.DetectionIntervalFrames = 3
	base.FreshnessWindow = 2 * time.Second

	cfg := s.ApplyTo(base)
	test.That(t, cfg.TargetWidth, test.ShouldEqual, 640)
	test.That(t, cfg.TargetHeight, test.ShouldEqual, 480)
	test.That(t, cfg.TargetFPS, test.ShouldEqual, 10)
	test.That(t, cfg.JPEGQuality, test.ShouldEqual, 60)
	test.That(t, cfg.LearnedEnabled, test.ShouldBeTrue)
	test.That(t, cfg.CascadeEnabled, test.ShouldBeFalse)
	test.That(t, cfg.FlipHorizontal, test.ShouldBeTrue)
	test.That(t, cfg.Rotation, test.ShouldEqual, 90)
	test.That(t, cfg.DetectionIntervalFrames, test.ShouldEqual, 3)
	test.That(t, cfg.FreshnessWindow, test.ShouldEqual, 2*time.Second)
}

func TestPipelineConfigNormalize(t *testing.T) {
	cfg := PipelineConfig{Rotation: 33, JPEGQuality: 0}.Normalize()
	d := DefaultPipelineConfig()
	test.That(t, cfg.TargetWidth, test.ShouldEqual, d.TargetWidth)
	test.That(t, cfg.TargetHeight, test.ShouldEqual, d.TargetHeight)
	test.That(t, cfg.TargetFPS, test.ShouldEqual, d.TargetFPS)
	test.That(t, cfg.DetectionIntervalFrames, test.ShouldEqual, 1)
	test.That(t, cfg.FreshnessWindow, test.ShouldEqual, d.FreshnessWindow)
	test.That(t, cfg.JPEGQuality, test.ShouldEqual, d.JPEGQuality)
	test.That(t, cfg.Rotation, test.ShouldEqual, 0)
}

func TestPipelineConfigHelpers(t *testing.T) {
	cfg := DefaultPipelineConfig()
	test.That(t, cfg.FrameSpacing(), test.ShouldEqual, time.Second/15)
	test.That(t, cfg.Enabled(SourceLearned), test.ShouldBeTrue)
	test.That(t, cfg.AnyDetectorEnabled(), test.ShouldBeTrue)
	test.That(t, cfg.HasTransform(), test.ShouldBeFalse)

	cfg.LearnedEnabled = false
	cfg.CascadeEnabled = false
	test.That(t, cfg.Enabled(SourceCascade), test.ShouldBeFalse)
	test.That(t, cfg.Enabled(DetectionSource("x")), test.ShouldBeFalse)
	test.That(t, cfg.AnyDetectorEnabled(), test.ShouldBeFalse)

	cfg.Rotation = 180
	test.That(t, cfg.HasTransform(), test.ShouldBeTrue)
	test.That(t, PipelineConfig{}.FrameSpacing(), test.ShouldEqual, time.Duration(0))
}

func TestPipelineStateString(t *testing.T) {
	test.That(t, StateStopped.String(), test.ShouldEqual, "stopped")
	test.That(t, StateStarting.String(), test.ShouldEqual, "starting")
	test.That(t, StateRunning.String(), test.ShouldEqual, "running")
	test.That(t, StateStopping.String(), test.ShouldEqual, "stopping")
	test.That(t, PipelineState(42).String(), test.ShouldEqual, "unknown")
}

func TestControlAction(t *testing.T) {
	test.That(t, ControlStart.IsValid(), test.ShouldBeTrue)
	test.That(t, ControlSwitch.IsValid(), test.ShouldBeTrue)
	test.That(t, ControlAction("reboot").IsValid(), test.ShouldBeFalse)
}
