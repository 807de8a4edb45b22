package detections

import (
	"context"
	"image"

	"github.com/Tutortoise/fracture-detection-service/models"
)

// Prediction is a raw model output record before label resolution.
type Prediction struct {
	ClassID    int
	Confidence float32
	Box        models.Box
}

// Model is the capability contract of a pretrained detector.
type Model interface {
	// Predict runs inference on the image stored at path and returns the
	// predictions scoring at least threshold, in model output order.
	Predict(ctx context.Context, path string, threshold float32) ([]Prediction, error)
	// Plot draws dets onto a copy of img.
	Plot(img image.Image, dets []models.Detection) image.Image
	// ClassName resolves a class ID through the model's label table.
	ClassName(id int) string
}
