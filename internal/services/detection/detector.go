package detection

import (
	"context"
	"errors"

	"gocv.io/x/gocv"

	"dualvision-worker-go/internal/models"
)

var (
	// ErrUnavailable is returned by detectors whose model or resources failed to load
	ErrUnavailable = errors.New("detector unavailable")
	// ErrTimeout is returned when a detector call exceeds its time budget
	ErrTimeout = errors.New("detector call timed out")
	// ErrBusy is returned while a previous timed-out call is still running
	ErrBusy = errors.New("detector busy with a timed-out call")
	// ErrPanic wraps a recovered panic from inside a detector
	ErrPanic = errors.New("detector panicked")
)

// Detector turns a frame into detections of one kind.
// Detect must not retain or modify the frame after returning.
type Detector interface {
	Kind() models.DetectionSource
	Available() bool
	Detect(ctx context.Context, frame gocv.Mat) ([]models.Detection, error)
	Close() error
}

// Unavailable is a detector slot whose backend could not be initialized.
// It keeps the slot in the pipeline so enable toggles stay meaningful.
type Unavailable struct {
	Source models.DetectionSource
	Reason string
}

func (u *Unavailable) Kind() models.DetectionSource { return u.Source }

func (u *Unavailable) Available() bool { return false }

func (u *Unavailable) Detect(context.Context, gocv.Mat) ([]models.Detection, error) {
	return []models.Detection{}, ErrUnavailable
}

func (u *Unavailable) Close() error { return nil }
