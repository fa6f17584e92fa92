package inject

import (
	"context"
	"sync"

	"gocv.io/x/gocv"

	"dualvision-worker-go/internal/models"
)

// FrameSource is an injected frame source. Unset funcs fall back to an
// in-memory source that always yields a copy of Frame while started.
type FrameSource struct {
	StartFunc       func(ctx context.Context, index int, cfg models.PipelineConfig) error
	StopFunc        func()
	ReadFrameFunc   func(ctx context.Context) (gocv.Mat, bool)
	IsRunningFunc   func() bool
	DeviceIndexFunc func() (int, bool)

	Frame gocv.Mat

	mu      sync.Mutex
	running bool
	index   int
	starts  []int
	configs []models.PipelineConfig
	stops   int
	reads   int
}

// NewFrameSource returns a source producing width x height frames of color.
func NewFrameSource(width, height int, color gocv.Scalar) *FrameSource {
	return &FrameSource{
		Frame: gocv.NewMatWithSizeFromScalar(color, height, width, gocv.MatTypeCV8UC3),
	}
}

// Start calls the injected Start or records the start.
func (s *FrameSource) Start(ctx context.Context, index int, cfg models.PipelineConfig) error {
	if s.StartFunc != nil {
		if err := s.StartFunc(ctx, index, cfg); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = index
	s.starts = append(s.starts, index)
	s.configs = append(s.configs, cfg)
	return nil
}

// Stop calls the injected Stop or records the stop.
func (s *FrameSource) Stop() {
	if s.StopFunc != nil {
		s.StopFunc()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.stops++
	}
	s.running = false
}

// ReadFrame calls the injected ReadFrame or returns a copy of Frame.
func (s *FrameSource) ReadFrame(ctx context.Context) (gocv.Mat, bool) {
	if s.ReadFrameFunc != nil {
		return s.ReadFrameFunc(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.Frame.Empty() {
		return gocv.NewMat(), false
	}
	s.reads++
	return s.Frame.Clone(), true
}

// IsRunning calls the injected IsRunning or the recorded state.
func (s *FrameSource) IsRunning() bool {
	if s.IsRunningFunc != nil {
		return s.IsRunningFunc()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// DeviceIndex calls the injected DeviceIndex or the recorded index.
func (s *FrameSource) DeviceIndex() (int, bool) {
	if s.DeviceIndexFunc != nil {
		return s.DeviceIndexFunc()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, s.running
}

// Starts returns every device index passed to a successful Start.
func (s *FrameSource) Starts() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.starts...)
}

// Configs returns the configuration of every successful Start.
func (s *FrameSource) Configs() []models.PipelineConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PipelineConfig(nil), s.configs...)
}

// Stops returns how many running sessions were stopped.
func (s *FrameSource) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// Reads returns the number of frames handed out.
func (s *FrameSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Release frees the backing frame.
func (s *FrameSource) Release() {
	s.Frame.Close()
}
