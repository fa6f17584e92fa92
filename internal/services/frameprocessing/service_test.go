package frameprocessing

import (
	"bytes"
	"image"
	"image/color"
	"testing"
	"time"

	"go.viam.com/test"
	"gocv.io/x/gocv"

	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/models"
)

func grayFrame(t *testing.T, cols, rows int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 0), rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func paint(m gocv.Mat, r image.Rectangle, s gocv.Scalar) {
	roi := m.Region(r)
	defer roi.Close()
	roi.SetTo(s)
}

func sameBytes(a, b gocv.Mat) bool {
	return bytes.Equal(a.ToBytes(), b.ToBytes())
}

func cascadeSet(at time.Time) *models.DetectionResultSet {
	return models.NewDetectionResultSet(models.SourceCascade, []models.Detection{
		{BBox: models.BBox{X1: 40, Y1: 40, X2: 80, Y2: 80}, Confidence: 0.95, ClassLabel: "face", Source: models.SourceCascade},
	}, at)
}

func learnedSet(at time.Time) *models.DetectionResultSet {
	return models.NewDetectionResultSet(models.SourceLearned, []models.Detection{
		{BBox: models.BBox{X1: 10, Y1: 10, X2: 60, Y2: 50}, Confidence: 0.81, ClassLabel: "person", Source: models.SourceLearned},
		{BBox: models.BBox{X1: 90, Y1: 20, X2: 150, Y2: 110}, Confidence: 0.42, ClassLabel: "dog", Source: models.SourceLearned},
	}, at)
}

func TestTransformFlipHorizontal(t *testing.T) {
	p := NewProcessor(nil)
	m := grayFrame(t, 20, 10)
	paint(m, image.Rect(0, 0, 1, 1), gocv.NewScalar(255, 0, 0, 0))

	cfg := models.DefaultPipelineConfig()
	cfg.FlipHorizontal = true
	p.Transform(&m, cfg)

	test.That(t, m.GetVecbAt(0, 19)[0], test.ShouldEqual, uint8(255))
	test.That(t, m.GetVecbAt(0, 0)[0], test.ShouldEqual, uint8(90))
}

func TestTransformFlipBoth(t *testing.T) {
	p := NewProcessor(nil)
	m := grayFrame(t, 20, 10)
	paint(m, image.Rect(0, 0, 1, 1), gocv.NewScalar(255, 0, 0, 0))

	cfg := models.DefaultPipelineConfig()
	cfg.FlipHorizontal = true
	cfg.FlipVertical = true
	p.Transform(&m, cfg)

	test.That(t, m.GetVecbAt(9, 19)[0], test.ShouldEqual, uint8(255))
}

func TestTransformRotate(t *testing.T) {
	p := NewProcessor(nil)
	for _, rotation := range []int{90, 270} {
		m := grayFrame(t, 20, 10)
		cfg := models.DefaultPipelineConfig()
		cfg.Rotation = rotation
		p.Transform(&m, cfg)
		test.That(t, m.Cols(), test.ShouldEqual, 10)
		test.That(t, m.Rows(), test.ShouldEqual, 20)
		m.Close()
	}

	m := grayFrame(t, 20, 10)
	cfg := models.DefaultPipelineConfig()
	cfg.Rotation = 180
	p.Transform(&m, cfg)
	test.That(t, m.Cols(), test.ShouldEqual, 20)
}

func TestTransformUnsupportedRotation(t *testing.T) {
	p := NewProcessor(nil)
	m := grayFrame(t, 20, 10)
	before := m.Clone()
	defer before.Close()

	cfg := models.DefaultPipelineConfig()
	cfg.Rotation = 45
	p.Transform(&m, cfg)
	test.That(t, m.Cols(), test.ShouldEqual, 20)
	test.That(t, sameBytes(m, before), test.ShouldBeTrue)
}

func TestAnnotateFreshSets(t *testing.T) {
	p := NewProcessor(nil)
	m := grayFrame(t, 160, 120)
	before := m.Clone()
	defer before.Close()

	now := time.Now()
	cfg := models.DefaultPipelineConfig()
	drawn := p.Annotate(&m, []*models.DetectionResultSet{learnedSet(now), cascadeSet(now.Add(-time.Second))}, cfg, now)

	test.That(t, drawn[models.SourceLearned], test.ShouldEqual, 2)
	test.That(t, drawn[models.SourceCascade], test.ShouldEqual, 1)
	test.That(t, sameBytes(m, before), test.ShouldBeFalse)

	// cascade boxes are padded by 15 and drawn red
	px := m.GetVecbAt(60, 25)
	test.That(t, px[2], test.ShouldEqual, uint8(255))
	test.That(t, px[0], test.ShouldEqual, uint8(0))
}

func TestAnnotateSkipsStaleSets(t *testing.T) {
	p := NewProcessor(nil)
	m := grayFrame(t, 160, 120)
	before := m.Clone()
	defer before.Close()

	now := time.Now()
	cfg := models.DefaultPipelineConfig()
	stale := now.Add(-(cfg.FreshnessWindow + time.Millisecond))
	drawn := p.Annotate(&m, []*models.DetectionResultSet{learnedSet(stale), cascadeSet(stale)}, cfg, now)

	test.That(t, drawn[models.SourceLearned], test.ShouldEqual, 0)
	test.That(t, drawn[models.SourceCascade], test.ShouldEqual, 0)
	test.That(t, sameBytes(m, before), test.ShouldBeTrue)
}

func TestAnnotateSkipsDisabledKinds(t *testing.T) {
	p := NewProcessor(nil)
	m := grayFrame(t, 160, 120)
	before := m.Clone()
	defer before.Close()

	now := time.Now()
	cfg := models.DefaultPipelineConfig()
	cfg.LearnedEnabled = false
	cfg.CascadeEnabled = false
	drawn := p.Annotate(&m, []*models.DetectionResultSet{learnedSet(now), cascadeSet(now), nil}, cfg, now)

	test.That(t, drawn, test.ShouldBeEmpty)
	test.That(t, sameBytes(m, before), test.ShouldBeTrue)
}

func TestAnnotateLabelAtTopEdge(t *testing.T) {
	p := NewProcessor(nil)
	m := grayFrame(t, 64, 48)
	now := time.Now()
	set := models.NewDetectionResultSet(models.SourceLearned, []models.Detection{
		{BBox: models.BBox{X1: -5, Y1: -5, X2: 500, Y2: 500}, Confidence: 0.5, ClassLabel: "person", Source: models.SourceLearned},
	}, now)
	drawn := p.Annotate(&m, []*models.DetectionResultSet{set}, models.DefaultPipelineConfig(), now)
	test.That(t, drawn[models.SourceLearned], test.ShouldEqual, 1)
	test.That(t, m.Cols(), test.ShouldEqual, 64)
}

func TestDrawCorners(t *testing.T) {
	test.That(t, DefaultStyles()[models.SourceCascade].Corners, test.ShouldBeTrue)
	test.That(t, DefaultStyles()[models.SourceLearned].Corners, test.ShouldBeFalse)

	m := grayFrame(t, 100, 100)
	drawCorners(&m, image.Rect(20, 20, 80, 80), red, 1)

	test.That(t, m.GetVecbAt(20, 30)[2], test.ShouldEqual, uint8(255))
	test.That(t, m.GetVecbAt(70, 80)[2], test.ShouldEqual, uint8(255))
	test.That(t, m.GetVecbAt(20, 50)[2], test.ShouldEqual, uint8(90))
	test.That(t, m.GetVecbAt(50, 20)[2], test.ShouldEqual, uint8(90))
}

type countingOverlay struct{ calls int }

func (c *countingOverlay) DrawDetections(_ *gocv.Mat, dets []models.Detection) int {
	c.calls++
	return len(dets)
}

func TestRegisterOverlay(t *testing.T) {
	p := NewProcessor(nil)
	custom := &countingOverlay{}
	p.RegisterOverlay(models.SourceCascade, custom)

	m := grayFrame(t, 160, 120)
	now := time.Now()
	p.Annotate(&m, []*models.DetectionResultSet{cascadeSet(now)}, models.DefaultPipelineConfig(), now)
	test.That(t, custom.calls, test.ShouldEqual, 1)
}

func TestDrawStats(t *testing.T) {
	p := NewProcessor(nil)
	stats := Stats{FPS: 14.6, Counts: map[models.DetectionSource]int{models.SourceLearned: 2}}

	t.Run("drawn when enabled", func(t *testing.T) {
		m := grayFrame(t, 320, 240)
		before := m.Clone()
		defer before.Close()
		p.DrawStats(&m, stats, models.DefaultPipelineConfig())
		test.That(t, sameBytes(m, before), test.ShouldBeFalse)
	})

	t.Run("hidden without show_fps", func(t *testing.T) {
		m := grayFrame(t, 320, 240)
		before := m.Clone()
		defer before.Close()
		cfg := models.DefaultPipelineConfig()
		cfg.ShowFPS = false
		p.DrawStats(&m, stats, cfg)
		test.That(t, sameBytes(m, before), test.ShouldBeTrue)
	})

	t.Run("hidden with both detectors off", func(t *testing.T) {
		m := grayFrame(t, 320, 240)
		before := m.Clone()
		defer before.Close()
		cfg := models.DefaultPipelineConfig()
		cfg.LearnedEnabled = false
		cfg.CascadeEnabled = false
		p.DrawStats(&m, stats, cfg)
		test.That(t, sameBytes(m, before), test.ShouldBeTrue)
	})

	t.Run("tiny frame", func(t *testing.T) {
		m := grayFrame(t, 8, 8)
		p.DrawStats(&m, stats, models.DefaultPipelineConfig())
		test.That(t, m.Rows(), test.ShouldEqual, 8)
	})
}

func TestFormatStatsLines(t *testing.T) {
	lines := formatStatsLines(Stats{FPS: 9.96, Counts: map[models.DetectionSource]int{
		models.SourceLearned: 3,
		models.SourceCascade: 1,
	}})
	test.That(t, lines, test.ShouldResemble, []string{"FPS: 10.0", "YOLO(Blue): 3 | OpenCV(Red): 1"})
}

func TestEncodeJPEG(t *testing.T) {
	m := grayFrame(t, 64, 48)
	b, err := EncodeJPEG(m, 85)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(b), test.ShouldBeGreaterThan, 2)
	test.That(t, b[0], test.ShouldEqual, byte(0xFF))
	test.That(t, b[1], test.ShouldEqual, byte(0xD8))

	again, err := NewProcessor(nil).Encode(m, 85)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bytes.Equal(b, again), test.ShouldBeTrue)

	_, err = EncodeJPEG(gocv.NewMat(), 85)
	test.That(t, err, test.ShouldEqual, ErrEmptyFrame)
}

func TestEncodeQualityChangesSize(t *testing.T) {
	m := grayFrame(t, 160, 120)
	now := time.Now()
	NewProcessor(nil).Annotate(&m, []*models.DetectionResultSet{learnedSet(now)}, models.DefaultPipelineConfig(), now)

	low, err := EncodeJPEG(m, 10)
	test.That(t, err, test.ShouldBeNil)
	high, err := EncodeJPEG(m, 95)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(low), test.ShouldBeLessThan, len(high))
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#00FF80")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldResemble, color.RGBA{R: 0, G: 255, B: 128, A: 255})

	_, err = parseHexColor("#FFF")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseHexColor("zz0000")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestIsDarkColor(t *testing.T) {
	test.That(t, isDarkColor(color.RGBA{A: 255}), test.ShouldBeTrue)
	test.That(t, isDarkColor(color.RGBA{R: 255, G: 255, B: 255, A: 255}), test.ShouldBeFalse)
	test.That(t, isDarkColor(color.RGBA{G: 255, A: 255}), test.ShouldBeFalse)
}

func TestNewProcessorTextColor(t *testing.T) {
	p := NewProcessor(&config.Config{OverlayColor: "#000010"})
	test.That(t, p.textColor, test.ShouldResemble, white)

	p = NewProcessor(&config.Config{OverlayColor: "#00FF00"})
	test.That(t, p.textColor, test.ShouldResemble, color.RGBA{G: 255, A: 255})
}
