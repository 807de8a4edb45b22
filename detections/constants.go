package detections

import "time"

const (
	DefaultInputSize           = 640
	DefaultConfidenceThreshold = 0.25
	DefaultIoUThreshold        = 0.7
	DefaultPoolSize            = 2
	MaxDetections              = 300
	LetterboxFill              = 114
	AcquireTimeout             = 5 * time.Second
)

// strides of the three YOLO detection heads.
var strides = []int{8, 16, 32}

// DefaultLabels is the label table used when no labels file is configured.
var DefaultLabels = []string{"fracture"}
