package models

import (
	"image"
	"time"
)

// Image is an uploaded X-ray decoded into a raster.
type Image struct {
	Raster   image.Image
	Format   string
	Filename string
	Width    int
	Height   int
}

// Box is an axis-aligned bounding box in pixel coordinates.
type Box struct {
	XMin float32
	YMin float32
	XMax float32
	YMax float32
}

// Coordinates returns the box as [x_min, y_min, x_max, y_max].
func (b Box) Coordinates() [4]float32 {
	return [4]float32{b.XMin, b.YMin, b.XMax, b.YMax}
}

type Detection struct {
	ClassID    int
	ClassName  string
	Confidence float32
	Box        Box
}

// DetectionResult holds the detections in model output order and the
// annotated copy of the input raster.
type DetectionResult struct {
	Detections []Detection
	Annotated  image.Image
}

type ProcessingTimings struct {
	RequestID   string
	ImageDecode time.Duration
	Stage       time.Duration
	Inference   time.Duration
	Summary     time.Duration
	Total       time.Duration
}
