package detection

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"dualvision-worker-go/internal/models"
)

// LearnedOptions configures the ONNX learned detector
type LearnedOptions struct {
	ModelPath     string
	ClassesPath   string
	InputSize     int
	Confidence    float64
	NMSThreshold  float64
	PreferredCUDA bool
}

// LearnedDetector runs a YOLO-family ONNX model through the OpenCV DNN module
type LearnedDetector struct {
	mu        sync.Mutex
	net       gocv.Net
	loaded    atomic.Bool
	classes   ClassNames
	inputSize int
	conf      float32
	nms       float32
	logger    zerolog.Logger
}

// NewLearnedDetector loads the model. A missing or unreadable model does not
// fail construction; the detector reports itself unavailable instead.
func NewLearnedDetector(opts LearnedOptions) *LearnedDetector {
	if opts.InputSize <= 0 {
		opts.InputSize = 640
	}
	if opts.Confidence <= 0 {
		opts.Confidence = 0.25
	}
	if opts.NMSThreshold <= 0 {
		opts.NMSThreshold = 0.45
	}

	d := &LearnedDetector{
		inputSize: opts.InputSize,
		conf:      float32(opts.Confidence),
		nms:       float32(opts.NMSThreshold),
		logger:    log.With().Str("service", "detection").Str("kind", models.SourceLearned.String()).Logger(),
	}

	classes, err := LoadClassNames(opts.ClassesPath)
	if err != nil {
		d.logger.Warn().Err(err).Msg("Falling back to COCO class names")
		classes = DefaultClassNames()
	}
	d.classes = classes

	if _, err := os.Stat(opts.ModelPath); err != nil {
		d.logger.Warn().Err(err).Str("model", opts.ModelPath).Msg("Learned model not found, detector unavailable")
		return d
	}

	net := gocv.ReadNet(opts.ModelPath, "")
	if net.Empty() {
		d.logger.Warn().Str("model", opts.ModelPath).Msg("Failed to load learned model, detector unavailable")
		return d
	}
	if opts.PreferredCUDA {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	d.net = net
	d.loaded.Store(true)
	d.logger.Info().Str("model", opts.ModelPath).Int("classes", len(classes)).Msg("Learned model loaded")
	return d
}

func (d *LearnedDetector) Kind() models.DetectionSource { return models.SourceLearned }

// Available does not take the inference lock
func (d *LearnedDetector) Available() bool {
	return d.loaded.Load()
}

func (d *LearnedDetector) Detect(ctx context.Context, frame gocv.Mat) ([]models.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded.Load() {
		return []models.Detection{}, ErrUnavailable
	}
	if frame.Empty() {
		return []models.Detection{}, nil
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sizes := out.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read model output: %w", err)
	}

	sx := float32(frame.Cols()) / float32(d.inputSize)
	sy := float32(frame.Rows()) / float32(d.inputSize)
	cands := decodeYOLO(data, sizes[1], sizes[2], d.conf, sx, sy)
	if len(cands) == 0 {
		return []models.Detection{}, nil
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		boxes[i] = c.box
		scores[i] = c.score
	}
	keep := gocv.NMSBoxes(boxes, scores, d.conf, d.nms)

	dets := make([]models.Detection, 0, len(keep))
	for _, idx := range keep {
		c := cands[idx]
		dets = append(dets, models.Detection{
			BBox:       models.BBoxFromRect(c.box),
			Confidence: float64(c.score),
			ClassLabel: d.classes.Label(c.classID),
			Source:     models.SourceLearned,
		})
	}
	return dets, nil
}

func (d *LearnedDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded.Swap(false) {
		return nil
	}
	return d.net.Close()
}

type candidate struct {
	box     image.Rectangle
	score   float32
	classID int
}

// decodeYOLO reads a [attrs x anchors] row-major output where each anchor
// column is (cx, cy, w, h, class scores...) in model input pixels, and
// returns every anchor whose best class score reaches conf, scaled by sx, sy.
func decodeYOLO(data []float32, attrs, anchors int, conf, sx, sy float32) []candidate {
	if attrs < 5 || anchors <= 0 || len(data) < attrs*anchors {
		return nil
	}
	var out []candidate
	for a := 0; a < anchors; a++ {
		best, bestID := float32(0), -1
		for c := 4; c < attrs; c++ {
			if s := data[c*anchors+a]; s > best {
				best, bestID = s, c-4
			}
		}
		if bestID < 0 || best < conf {
			continue
		}
		cx := data[a]
		cy := data[anchors+a]
		w := data[2*anchors+a]
		h := data[3*anchors+a]
		x1 := int((cx - w/2) * sx)
		y1 := int((cy - h/2) * sy)
		x2 := int((cx + w/2) * sx)
		y2 := int((cy + h/2) * sy)
		if x2 <= x1 || y2 <= y1 {
			continue
		}
		out = append(out, candidate{box: image.Rect(x1, y1, x2, y2), score: best, classID: bestID})
	}
	return out
}
