package models

import (
	"fmt"
	"image"
	"time"
)

// DetectionSource identifies which detector produced a detection
type DetectionSource string

const (
	SourceLearned DetectionSource = "learned"
	SourceCascade DetectionSource = "cascade"
)

// Sources lists every detector kind in drawing order
var Sources = []DetectionSource{SourceLearned, SourceCascade}

// String returns the string representation of DetectionSource
func (s DetectionSource) String() string {
	return string(s)
}

// IsValid checks if the detection source is known
func (s DetectionSource) IsValid() bool {
	switch s {
	case SourceLearned, SourceCascade:
		return true
	default:
		return false
	}
}

// DisplayName is the prefix drawn in front of every label of this kind
func (s DetectionSource) DisplayName() string {
	switch s {
	case SourceLearned:
		return "YOLO"
	case SourceCascade:
		return "OpenCV"
	default:
		return string(s)
	}
}

// BBox is a box in pixel coordinates, (X1,Y1) top-left and (X2,Y2) bottom-right
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// BBoxFromRect converts an image.Rectangle to a BBox
func BBoxFromRect(r image.Rectangle) BBox {
	return BBox{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Rect converts the box to an image.Rectangle
func (b BBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Valid reports whether the box has a positive area
func (b BBox) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Width returns the horizontal extent of the box
func (b BBox) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent of the box
func (b BBox) Height() int { return b.Y2 - b.Y1 }

// Pad grows the box by p pixels on every side
func (b BBox) Pad(p int) BBox {
	return BBox{X1: b.X1 - p, Y1: b.Y1 - p, X2: b.X2 + p, Y2: b.Y2 + p}
}

// Scale multiplies every coordinate by f
func (b BBox) Scale(f float64) BBox {
	return BBox{
		X1: int(float64(b.X1) * f),
		Y1: int(float64(b.Y1) * f),
		X2: int(float64(b.X2) * f),
		Y2: int(float64(b.Y2) * f),
	}
}

// Clamp keeps the box inside a width x height frame while preserving x1<x2 and y1<y2.
// ok is false when the frame is too small to hold any box.
func (b BBox) Clamp(width, height int) (BBox, bool) {
	if width < 2 || height < 2 {
		return b, false
	}
	x1 := max(0, min(width-2, b.X1))
	y1 := max(0, min(height-2, b.Y1))
	x2 := max(x1+1, min(width-1, b.X2))
	y2 := max(y1+1, min(height-1, b.Y2))
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}, true
}

// Detection is one box produced by one detector for one frame
type Detection struct {
	BBox       BBox            `json:"bbox"`
	Confidence float64         `json:"confidence"`
	ClassLabel string          `json:"class_label"`
	Source     DetectionSource `json:"source"`
}

// Label renders "<kind>: <class> (<confidence>)"
func (d Detection) Label() string {
	return fmt.Sprintf("%s: %s (%.2f)", d.Source.DisplayName(), d.ClassLabel, d.Confidence)
}

// ClampDetections clamps every box to the frame and drops the ones that cannot be clamped
func ClampDetections(dets []Detection, width, height int) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		box, ok := d.BBox.Clamp(width, height)
		if !ok {
			continue
		}
		d.BBox = box
		out = append(out, d)
	}
	return out
}

// DetectionResultSet holds the latest output of one detector kind.
// It is replaced wholesale on every run and never updated in place.
type DetectionResultSet struct {
	Source     DetectionSource `json:"source"`
	Detections []Detection     `json:"detections"`
	ProducedAt time.Time       `json:"produced_at"`
}

// NewDetectionResultSet copies dets into a fresh set stamped with producedAt
func NewDetectionResultSet(source DetectionSource, dets []Detection, producedAt time.Time) *DetectionResultSet {
	cp := make([]Detection, len(dets))
	copy(cp, dets)
	return &DetectionResultSet{Source: source, Detections: cp, ProducedAt: producedAt}
}

// IsFresh reports whether the set is still eligible for drawing at now
func (s *DetectionResultSet) IsFresh(now time.Time, window time.Duration) bool {
	if s == nil || s.ProducedAt.IsZero() {
		return false
	}
	return now.Sub(s.ProducedAt) <= window
}

// Len returns the number of detections in the set, zero for a nil set
func (s *DetectionResultSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Detections)
}

// DetectionEvent is fanned out to subscribers after every detection run
type DetectionEvent struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Source      DetectionSource `json:"source"`
	DeviceIndex int             `json:"device_index"`
	FrameNumber uint64          `json:"frame_number"`
	Detections  []Detection     `json:"detections"`
	ProducedAt  time.Time       `json:"produced_at"`
}
