package detections

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Tutortoise/fracture-detection-service/models"
)

var (
	// classColors is indexed by class ID.
	classColors = []color.NRGBA{
		{R: 255, G: 56, B: 56, A: 255},   // #FF3838
		{R: 255, G: 157, B: 151, A: 255}, // #FF9D97
		{R: 255, G: 112, B: 31, A: 255},  // #FF701F
		{R: 255, G: 178, B: 29, A: 255},  // #FFB21D
		{R: 207, G: 210, B: 49, A: 255},  // #CFD231
		{R: 72, G: 249, B: 10, A: 255},   // #48F90A
		{R: 146, G: 204, B: 23, A: 255},  // #92CC17
		{R: 61, G: 219, B: 134, A: 255},  // #3DDB86
		{R: 26, G: 147, B: 52, A: 255},   // #1A9334
		{R: 0, G: 212, B: 187, A: 255},   // #00D4BB
		{R: 44, G: 153, B: 168, A: 255},  // #2C99A8
		{R: 0, G: 194, B: 255, A: 255},   // #00C2FF
		{R: 52, G: 69, B: 147, A: 255},   // #344593
		{R: 100, G: 115, B: 255, A: 255}, // #6473FF
		{R: 0, G: 24, B: 236, A: 255},    // #0018EC
		{R: 132, G: 56, B: 255, A: 255},  // #8438FF
		{R: 82, G: 0, B: 133, A: 255},    // #520085
		{R: 203, G: 56, B: 255, A: 255},  // #CB38FF
		{R: 255, G: 149, B: 200, A: 255}, // #FF95C8
		{R: 255, G: 55, B: 199, A: 255},  // #FF37C7
	}

	labelTextColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	labelFace      = basicfont.Face7x13
)

const labelPad = 3

// Annotate draws a box and a "<name> <conf>" label for every detection on a
// copy of img. img itself is left untouched.
func Annotate(img image.Image, dets []models.Detection) image.Image {
	dst := imaging.Clone(img)
	if len(dets) == 0 {
		return dst
	}

	b := dst.Bounds()
	thickness := lineThickness(b.Dx(), b.Dy())

	type boxLabel struct {
		rect image.Rectangle
		clr  color.NRGBA
		text string
		dot  fixed.Point26_6
	}
	labels := make([]boxLabel, 0, len(dets))

	for _, det := range dets {
		clr := ColorFor(det.ClassID)
		rect := image.Rect(
			int(math.Round(float64(det.Box.XMin))),
			int(math.Round(float64(det.Box.YMin))),
			int(math.Round(float64(det.Box.XMax))),
			int(math.Round(float64(det.Box.YMax))),
		)
		drawRect(dst, rect, clr, thickness)

		text := fmt.Sprintf("%s %.2f", det.ClassName, det.Confidence)
		textWidth := font.MeasureString(labelFace, text).Ceil()
		textHeight := labelFace.Metrics().Height.Ceil()
		boxHeight := textHeight + 2*labelPad

		// above the box when there is room, otherwise inside its top edge
		top := rect.Min.Y - boxHeight
		if top < b.Min.Y {
			top = rect.Min.Y
		}
		labelRect := image.Rect(rect.Min.X, top, rect.Min.X+textWidth+2*labelPad, top+boxHeight)
		dot := fixed.P(labelRect.Min.X+labelPad, labelRect.Min.Y+labelPad+labelFace.Metrics().Ascent.Ceil())

		labels = append(labels, boxLabel{rect: labelRect, clr: clr, text: text, dot: dot})
	}

	// labels go on top of every box outline
	for _, l := range labels {
		draw.Draw(dst, l.rect.Intersect(b), image.NewUniform(l.clr), image.Point{}, draw.Src)
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(labelTextColor),
			Face: labelFace,
			Dot:  l.dot,
		}
		d.DrawString(l.text)
	}

	return dst
}

// ColorFor returns the drawing color of a class.
func ColorFor(classID int) color.NRGBA {
	if classID < 0 {
		classID = -classID
	}
	return classColors[classID%len(classColors)]
}

func lineThickness(width, height int) int {
	t := int(math.Round(float64(width+height) / 2 * 0.003))
	if t < 2 {
		t = 2
	}
	return t
}

func drawRect(img *image.NRGBA, rect image.Rectangle, clr color.NRGBA, thickness int) {
	bounds := img.Bounds()
	fill := image.NewUniform(clr)

	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+thickness),
		image.Rect(rect.Min.X, rect.Max.Y-thickness, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+thickness, rect.Max.Y),
		image.Rect(rect.Max.X-thickness, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(bounds), fill, image.Point{}, draw.Src)
	}
}
