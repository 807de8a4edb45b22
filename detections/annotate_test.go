package detections

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/Tutortoise/fracture-detection-service/models"
)

func TestAnnotate(t *testing.T) {
	black := color.NRGBA{A: 255}
	src := imaging.New(100, 100, black)
	dets := []models.Detection{{
		ClassID:    0,
		ClassName:  "fracture",
		Confidence: 0.81,
		Box:        models.Box{XMin: 10, YMin: 10, XMax: 50, YMax: 50},
	}}

	out := Annotate(src, dets)
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", out.Bounds(), src.Bounds())
	}

	want := ColorFor(0)
	for _, pt := range []image.Point{{10, 45}, {49, 45}, {30, 49}} {
		if got := color.NRGBAModel.Convert(out.At(pt.X, pt.Y)); got != want {
			t.Errorf("pixel %v = %v, want box color %v", pt, got, want)
		}
	}
	if got := color.NRGBAModel.Convert(out.At(30, 40)); got != black {
		t.Errorf("box interior pixel = %v, want untouched", got)
	}
	if got := src.NRGBAAt(10, 45); got != black {
		t.Errorf("source image modified: %v", got)
	}
}

func TestAnnotateNoDetections(t *testing.T) {
	src := imaging.New(20, 10, color.White)
	out := Annotate(src, nil)
	if out == image.Image(src) {
		t.Error("Annotate returned the input instead of a copy")
	}
	if out.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v", out.Bounds())
	}
}

func TestColorFor(t *testing.T) {
	if ColorFor(0) != ColorFor(len(classColors)) {
		t.Error("palette does not wrap")
	}
	if ColorFor(-1) != ColorFor(1) {
		t.Error("negative class IDs not handled")
	}
}

func TestLineThickness(t *testing.T) {
	tests := []struct {
		w, h, want int
	}{
		{100, 100, 2},
		{2000, 2000, 6},
	}
	for _, tt := range tests {
		if got := lineThickness(tt.w, tt.h); got != tt.want {
			t.Errorf("lineThickness(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}
