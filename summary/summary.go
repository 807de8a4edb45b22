// Package summary turns detection results into stable, printable records.
package summary

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Tutortoise/fracture-detection-service/models"
)

// Record is one formatted detection.
type Record struct {
	Label       string
	Confidence  string
	Coordinates [4]float32
}

// Summary is either empty or an ordered list of records.
type Summary struct {
	Records []Record
}

func (s Summary) Empty() bool {
	return len(s.Records) == 0
}

func (s Summary) Len() int {
	return len(s.Records)
}

// Summarize formats every detection of result in order. A nil result or a
// result without detections yields an empty Summary.
func Summarize(result *models.DetectionResult) Summary {
	if result == nil || len(result.Detections) == 0 {
		return Summary{}
	}

	records := make([]Record, len(result.Detections))
	for i, det := range result.Detections {
		records[i] = Record{
			Label:       det.ClassName,
			Confidence:  FormatConfidence(det.Confidence),
			Coordinates: det.Box.Coordinates(),
		}
	}
	return Summary{Records: records}
}

// FormatConfidence renders c with exactly two decimals.
func FormatConfidence(c float32) string {
	return strconv.FormatFloat(float64(c), 'f', 2, 32)
}

// DetectedLine returns "Detected: <label> | Confidence: <conf>".
func (r Record) DetectedLine() string {
	return fmt.Sprintf("Detected: %s | Confidence: %s", r.Label, r.Confidence)
}

// CoordinatesLine returns "Coordinates: [x_min, y_min, x_max, y_max]".
func (r Record) CoordinatesLine() string {
	parts := make([]string, len(r.Coordinates))
	for i, v := range r.Coordinates {
		parts[i] = formatCoordinate(v)
	}
	return "Coordinates: [" + strings.Join(parts, ", ") + "]"
}

// formatCoordinate prints v widened to float64 in its shortest decimal
// form, keeping a trailing ".0" on whole numbers.
func formatCoordinate(v float32) string {
	f := float64(v)
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !math.IsNaN(f) && !math.IsInf(f, 0) && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
