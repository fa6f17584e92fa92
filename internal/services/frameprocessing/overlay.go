package frameprocessing

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"dualvision-worker-go/internal/models"
)

// Style is how one detector kind is drawn
type Style struct {
	Color     color.RGBA
	Thickness int
	Padding   int
	Corners   bool
}

var (
	blue  = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// DefaultStyles returns the fixed per-kind styles. The two kinds never share a color.
func DefaultStyles() map[models.DetectionSource]Style {
	return map[models.DetectionSource]Style{
		models.SourceLearned: {Color: blue, Thickness: 2},
		models.SourceCascade: {Color: red, Thickness: 3, Padding: 15, Corners: true},
	}
}

// OverlayDrawer draws the detections of one kind onto a frame
type OverlayDrawer interface {
	DrawDetections(mat *gocv.Mat, detections []models.Detection) int
}

type boxOverlay struct {
	style     Style
	fontFace  gocv.HersheyFont
	fontScale float64
}

func newBoxOverlay(style Style) boxOverlay {
	return boxOverlay{style: style, fontFace: gocv.FontHersheySimplex, fontScale: 0.5}
}

// DrawDetections returns the number of boxes drawn
func (o boxOverlay) DrawDetections(mat *gocv.Mat, detections []models.Detection) int {
	if mat == nil || mat.Empty() || len(detections) == 0 {
		return 0
	}
	width, height := mat.Cols(), mat.Rows()
	drawn := 0
	for _, det := range detections {
		box, ok := det.BBox.Pad(o.style.Padding).Clamp(width, height)
		if !ok {
			continue
		}
		rect := box.Rect()
		gocv.Rectangle(mat, rect, o.style.Color, o.style.Thickness)
		if o.style.Corners {
			drawCorners(mat, rect, o.style.Color, o.style.Thickness+1)
		}
		o.drawLabel(mat, det.Label(), rect.Min)
		drawn++
	}
	return drawn
}

// drawLabel puts white text on a filled box of the style color, above the
// top-left corner or just inside it when there is no room above.
func (o boxOverlay) drawLabel(mat *gocv.Mat, text string, at image.Point) {
	size := gocv.GetTextSize(text, o.fontFace, o.fontScale, 1)
	pad := 3
	top := at.Y - size.Y - 2*pad
	if top < 0 {
		top = at.Y
	}
	bg := image.Rect(at.X, top, at.X+size.X+2*pad, top+size.Y+2*pad)
	gocv.Rectangle(mat, bg, o.style.Color, -1)
	gocv.PutText(mat, text, image.Pt(at.X+pad, top+size.Y+pad), o.fontFace, o.fontScale, white, 1)
}

// drawCorners accents each corner of r with two short strokes
func drawCorners(mat *gocv.Mat, r image.Rectangle, c color.RGBA, thickness int) {
	cornerLength := min(15, r.Dx()/2, r.Dy()/2)
	if cornerLength <= 0 {
		return
	}
	x1, y1, x2, y2 := r.Min.X, r.Min.Y, r.Max.X, r.Max.Y
	gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1+cornerLength, y1), c, thickness)
	gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1, y1+cornerLength), c, thickness)
	gocv.Line(mat, image.Pt(x2, y1), image.Pt(x2-cornerLength, y1), c, thickness)
	gocv.Line(mat, image.Pt(x2, y1), image.Pt(x2, y1+cornerLength), c, thickness)
	gocv.Line(mat, image.Pt(x1, y2), image.Pt(x1+cornerLength, y2), c, thickness)
	gocv.Line(mat, image.Pt(x1, y2), image.Pt(x1, y2-cornerLength), c, thickness)
	gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2-cornerLength, y2), c, thickness)
	gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2, y2-cornerLength), c, thickness)
}
