package frameprocessing

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/models"
)

// ErrEmptyFrame is returned when there is nothing to encode
var ErrEmptyFrame = errors.New("empty frame")

var rotateCodes = map[int]gocv.RotateFlag{
	90:  gocv.Rotate90Clockwise,
	180: gocv.Rotate180Clockwise,
	270: gocv.Rotate90CounterClockwise,
}

// Stats is what the stats overlay shows
type Stats struct {
	FPS    float64
	Counts map[models.DetectionSource]int
}

// Processor transforms, annotates and encodes frames. It holds no per-frame
// state and is safe to share; every call works on the Mat it is given.
type Processor struct {
	overlays  map[models.DetectionSource]OverlayDrawer
	fontFace  gocv.HersheyFont
	textColor color.RGBA
}

// NewProcessor builds a processor with the default per-kind overlays
func NewProcessor(cfg *config.Config) *Processor {
	p := &Processor{
		overlays:  map[models.DetectionSource]OverlayDrawer{},
		fontFace:  gocv.FontHersheySimplex,
		textColor: white,
	}
	for source, style := range DefaultStyles() {
		p.overlays[source] = newBoxOverlay(style)
	}
	if cfg != nil {
		// OverlayFont directly maps to gocv font constants
		p.fontFace = gocv.HersheyFont(cfg.OverlayFont)
		if cfg.OverlayColor != "" {
			if c, err := parseHexColor(cfg.OverlayColor); err == nil && !isDarkColor(c) {
				p.textColor = c
			}
		}
	}
	return p
}

// RegisterOverlay replaces the drawer used for a detector kind
func (p *Processor) RegisterOverlay(source models.DetectionSource, drawer OverlayDrawer) {
	p.overlays[source] = drawer
}

// Transform flips and rotates mat in place according to cfg.
// Unsupported rotations leave the frame unrotated.
func (p *Processor) Transform(mat *gocv.Mat, cfg models.PipelineConfig) {
	if mat == nil || mat.Empty() || !cfg.HasTransform() {
		return
	}
	switch {
	case cfg.FlipHorizontal && cfg.FlipVertical:
		gocv.Flip(*mat, mat, -1)
	case cfg.FlipHorizontal:
		gocv.Flip(*mat, mat, 1)
	case cfg.FlipVertical:
		gocv.Flip(*mat, mat, 0)
	}
	code, ok := rotateCodes[cfg.Rotation]
	if !ok {
		return
	}
	rotated := gocv.NewMat()
	gocv.Rotate(*mat, &rotated, code)
	mat.Close()
	*mat = rotated
}

// Annotate draws every fresh result set whose kind is enabled in cfg, in
// fixed kind order. Sets older than the freshness window are skipped.
// It returns the number of boxes drawn per kind.
func (p *Processor) Annotate(mat *gocv.Mat, sets []*models.DetectionResultSet, cfg models.PipelineConfig, now time.Time) map[models.DetectionSource]int {
	drawn := map[models.DetectionSource]int{}
	if mat == nil || mat.Empty() {
		return drawn
	}
	bySource := map[models.DetectionSource]*models.DetectionResultSet{}
	for _, set := range sets {
		if set != nil {
			bySource[set.Source] = set
		}
	}
	for _, source := range models.Sources {
		set := bySource[source]
		if !cfg.Enabled(source) || !set.IsFresh(now, cfg.FreshnessWindow) {
			continue
		}
		drawer, ok := p.overlays[source]
		if !ok {
			continue
		}
		drawn[source] = drawer.DrawDetections(mat, set.Detections)
	}
	return drawn
}

// ShouldDrawStats reports whether the stats overlay applies to cfg
func ShouldDrawStats(cfg models.PipelineConfig) bool {
	return cfg.ShowFPS && cfg.AnyDetectorEnabled()
}

// DrawStats draws the FPS and per-kind counts on a shaded box
func (p *Processor) DrawStats(mat *gocv.Mat, stats Stats, cfg models.PipelineConfig) {
	if mat == nil || mat.Empty() || !ShouldDrawStats(cfg) {
		return
	}
	lines := formatStatsLines(stats)
	fontScale := 0.6
	thickness := 2
	lineHeight := 25
	padding := 10
	maxTextWidth := 0
	for _, line := range lines {
		size := gocv.GetTextSize(line, p.fontFace, fontScale, thickness)
		if size.X > maxTextWidth {
			maxTextWidth = size.X
		}
	}
	startY := padding * 2
	bg := image.Rect(5, startY-padding, maxTextWidth+padding*2+5, startY+len(lines)*lineHeight+padding).
		Intersect(image.Rect(0, 0, mat.Cols(), mat.Rows()))
	if !bg.Empty() {
		shadeRegion(mat, bg, 0.4)
	}
	for i, line := range lines {
		gocv.PutText(mat, line, image.Pt(padding+5, startY+(i*lineHeight)+15), p.fontFace, fontScale, p.textColor, thickness)
	}
}

// shadeRegion darkens r, keeping a fraction keep of its brightness
func shadeRegion(mat *gocv.Mat, r image.Rectangle, keep float64) {
	roi := mat.Region(r)
	defer roi.Close()
	shade := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), r.Dy(), r.Dx(), mat.Type())
	defer shade.Close()
	gocv.AddWeighted(roi, keep, shade, 1-keep, 0, &roi)
}

func formatStatsLines(stats Stats) []string {
	return []string{
		fmt.Sprintf("FPS: %.1f", stats.FPS),
		fmt.Sprintf("%s(Blue): %d | %s(Red): %d",
			models.SourceLearned.DisplayName(), stats.Counts[models.SourceLearned],
			models.SourceCascade.DisplayName(), stats.Counts[models.SourceCascade]),
	}
}

// Encode compresses mat to JPEG at quality (1-100). The returned slice is
// owned by the caller.
func (p *Processor) Encode(mat gocv.Mat, quality int) ([]byte, error) {
	return EncodeJPEG(mat, quality)
}

// EncodeJPEG compresses mat to JPEG at quality (1-100)
func EncodeJPEG(mat gocv.Mat, quality int) ([]byte, error) {
	if mat.Empty() {
		return nil, ErrEmptyFrame
	}
	if quality < 1 || quality > 100 {
		quality = models.DefaultQuality
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	if len(b) == 0 {
		return nil, fmt.Errorf("failed to encode JPEG: no bytes produced")
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// parseHexColor converts a color string like "#RRGGBB" to color.RGBA
func parseHexColor(s string) (color.RGBA, error) {
	var c color.RGBA
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return c, fmt.Errorf("invalid color length: %s", s)
	}
	r, err := strconv.ParseUint(s[0:2], 16, 8)
	if err != nil {
		return c, err
	}
	g, err := strconv.ParseUint(s[2:4], 16, 8)
	if err != nil {
		return c, err
	}
	b, err := strconv.ParseUint(s[4:6], 16, 8)
	if err != nil {
		return c, err
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}, nil
}

// isDarkColor determines if a color is considered dark using perceived luminance
func isDarkColor(c color.RGBA) bool {
	luminance := 0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)
	return luminance < 128
}
