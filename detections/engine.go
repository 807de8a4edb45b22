package detections

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Tutortoise/fracture-detection-service/models"
)

// Engine runs a Model at a fixed confidence threshold and assembles the
// detection result. It keeps no state between calls.
type Engine struct {
	threshold float32
	timeout   time.Duration
}

// NewEngine returns an Engine using threshold for every call. A positive
// timeout bounds each Detect call.
func NewEngine(threshold float32, timeout time.Duration) (*Engine, error) {
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	return &Engine{
		threshold: threshold,
		timeout:   timeout,
	}, nil
}

func (e *Engine) Threshold() float32 {
	return e.threshold
}

// Detect runs model on the image staged at stagedPath. img describes the
// same raster and is used for bounds and for the annotated copy.
func (e *Engine) Detect(ctx context.Context, img *models.Image, stagedPath string, model Model) (*models.DetectionResult, error) {
	if err := validateThreshold(e.threshold); err != nil {
		return nil, err
	}
	if img == nil || img.Raster == nil {
		return nil, &InferenceError{Message: "no image to process"}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	predictions, err := model.Predict(ctx, stagedPath, e.threshold)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &InferenceError{
				Message: fmt.Sprintf("model inference exceeded %v", e.timeout),
				Cause:   ErrTimeout,
			}
		}
		return nil, &InferenceError{Message: "model inference", Cause: err}
	}

	dets := make([]models.Detection, 0, len(predictions))
	for _, p := range predictions {
		dets = append(dets, models.Detection{
			ClassID:    p.ClassID,
			ClassName:  model.ClassName(p.ClassID),
			Confidence: p.Confidence,
			Box:        clampBox(p.Box, img.Width, img.Height),
		})
	}

	return &models.DetectionResult{
		Detections: dets,
		Annotated:  model.Plot(img.Raster, dets),
	}, nil
}

// clampBox keeps b inside a width x height image with ordered corners.
func clampBox(b models.Box, width, height int) models.Box {
	w, h := float32(width), float32(height)
	b.XMin = clamp(b.XMin, 0, w)
	b.XMax = clamp(b.XMax, 0, w)
	b.YMin = clamp(b.YMin, 0, h)
	b.YMax = clamp(b.YMax, 0, h)
	if b.XMin > b.XMax {
		b.XMin, b.XMax = b.XMax, b.XMin
	}
	if b.YMin > b.YMax {
		b.YMin, b.YMax = b.YMax, b.YMin
	}
	return b
}

// clamp maps v into [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float32) float32 {
	if v < lo || math.IsNaN(float64(v)) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
