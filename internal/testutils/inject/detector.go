package inject

import (
	"context"

	"gocv.io/x/gocv"

	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/detection"
)

// Detector is an injected detector.
type Detector struct {
	detection.Detector
	KindFunc      func() models.DetectionSource
	AvailableFunc func() bool
	DetectFunc    func(ctx context.Context, frame gocv.Mat) ([]models.Detection, error)
	CloseFunc     func() error
}

// Kind calls the injected Kind or the real version.
func (d *Detector) Kind() models.DetectionSource {
	if d.KindFunc == nil {
		return d.Detector.Kind()
	}
	return d.KindFunc()
}

// Available calls the injected Available or the real version.
func (d *Detector) Available() bool {
	if d.AvailableFunc == nil {
		return d.Detector.Available()
	}
	return d.AvailableFunc()
}

// Detect calls the injected Detect or the real version.
func (d *Detector) Detect(ctx context.Context, frame gocv.Mat) ([]models.Detection, error) {
	if d.DetectFunc == nil {
		return d.Detector.Detect(ctx, frame)
	}
	return d.DetectFunc(ctx, frame)
}

// Close calls the injected Close or the real version.
func (d *Detector) Close() error {
	if d.CloseFunc == nil {
		if d.Detector == nil {
			return nil
		}
		return d.Detector.Close()
	}
	return d.CloseFunc()
}

// NewDetector returns an available detector of the given kind that returns dets on every call.
func NewDetector(kind models.DetectionSource, dets ...models.Detection) *Detector {
	return &Detector{
		KindFunc:      func() models.DetectionSource { return kind },
		AvailableFunc: func() bool { return true },
		DetectFunc: func(context.Context, gocv.Mat) ([]models.Detection, error) {
			out := make([]models.Detection, len(dets))
			copy(out, dets)
			return out, nil
		},
	}
}
