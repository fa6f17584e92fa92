package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"dualvision-worker-go/internal/models"
)

// Store reads and writes the settings file. The pipeline never touches the
// file itself; it only receives the resulting PipelineConfig.
type Store struct {
	path string

	mu      sync.RWMutex
	current models.Settings
}

// NewStore creates a store backed by path, starting from defaults
func NewStore(path string) *Store {
	return &Store{path: path, current: models.DefaultSettings()}
}

// Path returns the backing file
func (s *Store) Path() string { return s.path }

// Load reads the file. A missing file yields the defaults; a malformed one
// yields the defaults and an error.
func (s *Store) Load() (models.Settings, error) {
	settings, err := s.read()
	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()
	return settings, err
}

func (s *Store) read() (models.Settings, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("path", s.path).Msg("No settings file, using defaults")
		return models.DefaultSettings(), nil
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Failed to read settings file, using defaults")
		return models.DefaultSettings(), fmt.Errorf("failed to read settings: %w", err)
	}

	data, err := json.Marshal(v.AllSettings())
	if err != nil {
		return models.DefaultSettings(), err
	}
	settings, err := models.ParseSettings(data)
	if err != nil {
		return settings, err
	}
	log.Info().Str("path", s.path).Msg("Settings loaded")
	return settings, nil
}

// Current returns the last loaded or saved settings
func (s *Store) Current() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save normalizes and writes settings
func (s *Store) Save(settings models.Settings) (models.Settings, error) {
	settings = settings.Normalize()

	v := viper.New()
	v.SetConfigType("json")
	v.Set("horizontal", settings.Horizontal)
	v.Set("vertical", settings.Vertical)
	v.Set("rotation", settings.Rotation)
	v.Set("detection_settings", map[string]interface{}{
		"yolo_enabled":   settings.DetectionSettings.YoloEnabled,
		"opencv_enabled": settings.DetectionSettings.OpencvEnabled,
		"show_fps":       settings.DetectionSettings.ShowFPS,
		"quality":        settings.DetectionSettings.Quality,
		"fps_limit":      settings.DetectionSettings.FPSLimit,
		"resolution":     settings.DetectionSettings.Resolution,
	})

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return settings, fmt.Errorf("failed to create settings dir: %w", err)
		}
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return settings, fmt.Errorf("failed to write settings: %w", err)
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()

	log.Info().Str("path", s.path).Msg("Settings saved")
	return settings, nil
}

// Update applies fn to a copy of the current settings and saves the result
func (s *Store) Update(fn func(*models.Settings)) (models.Settings, error) {
	next := s.Current()
	fn(&next)
	return s.Save(next)
}

// Reset saves the defaults
func (s *Store) Reset() (models.Settings, error) {
	return s.Save(models.DefaultSettings())
}
