package streamcapture

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Device is the subset of gocv.VideoCapture the frame source needs
type Device interface {
	Read(m *gocv.Mat) bool
	Set(prop gocv.VideoCaptureProperties, param float64)
	Get(prop gocv.VideoCaptureProperties) float64
	IsOpened() bool
	Close() error
}

// Opener opens the camera at a device index
type Opener func(index int) (Device, error)

// OpenCamera opens a local camera through OpenCV
func OpenCamera(index int) (Device, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}
	return vc, nil
}

func configureDevice(dev Device, width, height, fps, buffer int) {
	if width > 0 && height > 0 {
		dev.Set(gocv.VideoCaptureFrameWidth, float64(width))
		dev.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	if fps > 0 {
		dev.Set(gocv.VideoCaptureFPS, float64(fps))
	}
	if buffer > 0 {
		dev.Set(gocv.VideoCaptureBufferSize, float64(buffer))
	}
}

// describeDevice reports the resolution and fps the driver actually applied
func describeDevice(dev Device) (width, height, fps int) {
	return int(dev.Get(gocv.VideoCaptureFrameWidth)),
		int(dev.Get(gocv.VideoCaptureFrameHeight)),
		int(dev.Get(gocv.VideoCaptureFPS))
}
