package inject

import (
	"sync"

	"gocv.io/x/gocv"

	"dualvision-worker-go/internal/services/streamcapture"
)

// Device is an injected capture device.
type Device struct {
	streamcapture.Device
	ReadFunc     func(m *gocv.Mat) bool
	SetFunc      func(prop gocv.VideoCaptureProperties, param float64)
	GetFunc      func(prop gocv.VideoCaptureProperties) float64
	IsOpenedFunc func() bool
	CloseFunc    func() error
}

// Read calls the injected Read or the real version.
func (d *Device) Read(m *gocv.Mat) bool {
	if d.ReadFunc == nil {
		return d.Device.Read(m)
	}
	return d.ReadFunc(m)
}

// Set calls the injected Set or the real version.
func (d *Device) Set(prop gocv.VideoCaptureProperties, param float64) {
	if d.SetFunc == nil {
		d.Device.Set(prop, param)
		return
	}
	d.SetFunc(prop, param)
}

// Get calls the injected Get or the real version.
func (d *Device) Get(prop gocv.VideoCaptureProperties) float64 {
	if d.GetFunc == nil {
		return d.Device.Get(prop)
	}
	return d.GetFunc(prop)
}

// IsOpened calls the injected IsOpened or the real version.
func (d *Device) IsOpened() bool {
	if d.IsOpenedFunc == nil {
		return d.Device.IsOpened()
	}
	return d.IsOpenedFunc()
}

// Close calls the injected Close or the real version.
func (d *Device) Close() error {
	if d.CloseFunc == nil {
		return d.Device.Close()
	}
	return d.CloseFunc()
}

// FakeCamera is an in-memory camera that yields copies of a solid frame.
// It records property writes and whether it is currently open.
type FakeCamera struct {
	*Device

	mu     sync.Mutex
	frame  gocv.Mat
	open   bool
	reads  int
	closes int
	props  map[gocv.VideoCaptureProperties]float64
}

// NewFakeCamera returns an open camera producing width x height frames of the given BGR color.
func NewFakeCamera(width, height int, color gocv.Scalar) *FakeCamera {
	c := &FakeCamera{
		frame: gocv.NewMatWithSizeFromScalar(color, height, width, gocv.MatTypeCV8UC3),
		open:  true,
		props: map[gocv.VideoCaptureProperties]float64{
			gocv.VideoCaptureFrameWidth:  float64(width),
			gocv.VideoCaptureFrameHeight: float64(height),
			gocv.VideoCaptureFPS:         30,
		},
	}
	c.Device = &Device{
		ReadFunc: func(m *gocv.Mat) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if !c.open {
				return false
			}
			c.reads++
			c.frame.CopyTo(m)
			return true
		},
		SetFunc: func(prop gocv.VideoCaptureProperties, param float64) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if prop == gocv.VideoCaptureFrameWidth || prop == gocv.VideoCaptureFrameHeight {
				return
			}
			c.props[prop] = param
		},
		GetFunc: func(prop gocv.VideoCaptureProperties) float64 {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.props[prop]
		},
		IsOpenedFunc: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.open
		},
		CloseFunc: func() error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.open = false
			c.closes++
			return nil
		},
	}
	return c
}

// Opened reports whether the camera has not been closed.
func (c *FakeCamera) Opened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads returns the number of successful reads.
func (c *FakeCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Closes returns the number of Close calls.
func (c *FakeCamera) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// Prop returns the last value written for prop.
func (c *FakeCamera) Prop(prop gocv.VideoCaptureProperties) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.props[prop]
}

// Release frees the backing frame.
func (c *FakeCamera) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Close()
}
