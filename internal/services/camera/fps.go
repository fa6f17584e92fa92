package camera

import (
	"sync"
	"time"
)

// FPSMeter computes output fps over a rolling window of emit timestamps
type FPSMeter struct {
	mu     sync.Mutex
	window int
	times  []time.Time
}

// NewFPSMeter keeps the last window timestamps
func NewFPSMeter(window int) *FPSMeter {
	if window < 2 {
		window = 30
	}
	return &FPSMeter{window: window, times: make([]time.Time, 0, window)}
}

// Tick records an emitted frame at now and returns the current rate
func (m *FPSMeter) Tick(now time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.times = append(m.times, now)
	if len(m.times) > m.window {
		m.times = m.times[1:]
	}
	return m.rateLocked()
}

// Rate returns the rate without recording a frame
func (m *FPSMeter) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rateLocked()
}

func (m *FPSMeter) rateLocked() float64 {
	// Need at least 2 timestamps to calculate FPS
	if len(m.times) < 2 {
		return 0
	}
	span := m.times[len(m.times)-1].Sub(m.times[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(m.times)-1) / span
}

// Reset forgets every timestamp
func (m *FPSMeter) Reset() {
	m.mu.Lock()
	m.times = m.times[:0]
	m.mu.Unlock()
}
