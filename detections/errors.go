package detections

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrTimeout          = errors.New("inference timeout")
	ErrInvalidThreshold = errors.New("confidence threshold must be within [0, 1]")
	ErrPoolClosed       = errors.New("session pool is closed")
	ErrAcquireTimeout   = errors.New("timeout waiting for available session")
)

// ModelLoadError reports a model artifact that could not be loaded.
// The application cannot serve requests without a model.
type ModelLoadError struct {
	Path  string
	Cause error
}

func (e *ModelLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load model %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("load model %s", e.Path)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Cause
}

// InferenceError reports a failed detection run for a single request.
type InferenceError struct {
	Message string
	Cause   error
}

func (e *InferenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InferenceError) Unwrap() error {
	return e.Cause
}

func validateThreshold(threshold float32) error {
	if threshold < 0 || threshold > 1 || math.IsNaN(float64(threshold)) {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return nil
}
