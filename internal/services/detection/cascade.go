package detection

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"dualvision-worker-go/internal/models"
)

const (
	cascadeScaleFactor  = 1.1
	cascadeMinNeighbors = 5
	cascadeMinSize      = 30
	cascadeConfidence   = 0.95
	cascadeMaxWidth     = 640
	cascadeDownscale    = 0.5
)

// Known cascade names and their OpenCV data files
var cascadeFiles = map[string]string{
	"face":      "haarcascade_frontalface_default.xml",
	"eye":       "haarcascade_eye.xml",
	"fullbody":  "haarcascade_fullbody.xml",
	"upperbody": "haarcascade_upperbody.xml",
}

// CascadeFile returns the file name used for a cascade name
func CascadeFile(name string) string {
	if f, ok := cascadeFiles[name]; ok {
		return f
	}
	return "haarcascade_" + name + ".xml"
}

type namedCascade struct {
	name       string
	classifier gocv.CascadeClassifier
}

// CascadeDetector runs classical Haar cascades over a grayscale copy of the frame
type CascadeDetector struct {
	mu        sync.Mutex
	cascades  []namedCascade
	names     []string
	available atomic.Bool
	logger    zerolog.Logger
}

// NewCascadeDetector loads every cascade it can find in dir. Missing files are
// skipped; with none loaded the detector reports itself unavailable.
func NewCascadeDetector(dir string, names []string) *CascadeDetector {
	d := &CascadeDetector{
		logger: log.With().Str("service", "detection").Str("kind", models.SourceCascade.String()).Logger(),
	}

	for _, name := range names {
		path := filepath.Join(dir, CascadeFile(name))
		if _, err := os.Stat(path); err != nil {
			d.logger.Warn().Str("cascade", name).Str("path", path).Msg("Cascade file not found, skipping")
			continue
		}
		c := gocv.NewCascadeClassifier()
		if !c.Load(path) {
			c.Close()
			d.logger.Warn().Str("cascade", name).Str("path", path).Msg("Failed to load cascade, skipping")
			continue
		}
		d.cascades = append(d.cascades, namedCascade{name: name, classifier: c})
		d.names = append(d.names, name)
		d.logger.Info().Str("cascade", name).Msg("Cascade loaded")
	}

	if len(d.cascades) == 0 {
		d.logger.Warn().Str("dir", dir).Msg("No cascades loaded, detector unavailable")
	}
	d.available.Store(len(d.cascades) > 0)
	return d
}

func (d *CascadeDetector) Kind() models.DetectionSource { return models.SourceCascade }

// Available does not take the detection lock
func (d *CascadeDetector) Available() bool {
	return d.available.Load()
}

// Names returns the loaded cascade names. The list is fixed at construction.
func (d *CascadeDetector) Names() []string {
	return append([]string(nil), d.names...)
}

func (d *CascadeDetector) Detect(ctx context.Context, frame gocv.Mat) ([]models.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.cascades) == 0 {
		return []models.Detection{}, ErrUnavailable
	}
	if frame.Empty() {
		return []models.Detection{}, nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	scale := 1.0
	if gray.Cols() > cascadeMaxWidth {
		scale = cascadeDownscale
		gocv.Resize(gray, &gray, image.Pt(0, 0), scale, scale, gocv.InterpolationLinear)
	}
	gocv.EqualizeHist(gray, &gray)

	dets := []models.Detection{}
	for _, c := range d.cascades {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rects := c.classifier.DetectMultiScaleWithParams(gray, cascadeScaleFactor, cascadeMinNeighbors, 0,
			image.Pt(cascadeMinSize, cascadeMinSize), image.Pt(0, 0))
		for _, r := range rects {
			box := models.BBoxFromRect(r)
			if scale != 1.0 {
				box = box.Scale(1 / scale)
			}
			dets = append(dets, models.Detection{
				BBox:       box,
				Confidence: cascadeConfidence,
				ClassLabel: c.name,
				Source:     models.SourceCascade,
			})
		}
	}
	return dets, nil
}

func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	for _, c := range d.cascades {
		err = multierr.Append(err, c.classifier.Close())
	}
	d.available.Store(false)
	d.cascades = nil
	return err
}
