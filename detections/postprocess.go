package detections

import (
	"fmt"
	"sort"

	"github.com/Tutortoise/fracture-detection-service/models"
)

// outputLayout describes a (1, 4+classes, anchors) YOLO output tensor laid
// out as rows: cx, cy, w, h, then one score row per class.
type outputLayout struct {
	numClasses int
	numAnchors int
}

// decodeOutput turns raw output planes into predictions in source image
// coordinates, sorted by confidence and reduced with class-wise NMS.
func decodeOutput(output []float32, layout outputLayout, lb letterbox, threshold, iouThreshold float32) ([]Prediction, error) {
	n := layout.numAnchors
	expected := (4 + layout.numClasses) * n
	if len(output) != expected {
		return nil, fmt.Errorf("unexpected output length: got %d, want %d", len(output), expected)
	}

	candidates := make([]Prediction, 0, 64)
	for i := 0; i < n; i++ {
		classID, score := 0, float32(-1)
		for c := 0; c < layout.numClasses; c++ {
			if s := output[(4+c)*n+i]; s > score {
				classID, score = c, s
			}
		}
		if score < threshold {
			continue
		}

		cx, cy := output[i], output[n+i]
		w, h := output[2*n+i], output[3*n+i]

		x1, y1 := lb.toSource(cx-w/2, cy-h/2)
		x2, y2 := lb.toSource(cx+w/2, cy+h/2)

		candidates = append(candidates, Prediction{
			ClassID:    classID,
			Confidence: score,
			Box:        models.Box{XMin: x1, YMin: y1, XMax: x2, YMax: y2},
		})
	}

	sortByConfidence(candidates)
	return nonMaxSuppression(candidates, iouThreshold, MaxDetections), nil
}

func sortByConfidence(preds []Prediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Confidence > preds[j].Confidence
	})
}

// nonMaxSuppression keeps the highest scoring box of every overlapping
// group of the same class. preds must be sorted by confidence.
func nonMaxSuppression(preds []Prediction, iouThreshold float32, limit int) []Prediction {
	kept := make([]Prediction, 0, len(preds))
	suppressed := make([]bool, len(preds))

	for i := range preds {
		if suppressed[i] {
			continue
		}
		kept = append(kept, preds[i])
		if limit > 0 && len(kept) == limit {
			break
		}
		for j := i + 1; j < len(preds); j++ {
			if suppressed[j] || preds[j].ClassID != preds[i].ClassID {
				continue
			}
			if calculateIOU(preds[i].Box, preds[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}

	return kept
}

func calculateIOU(box1, box2 models.Box) float32 {
	x1 := max(box1.XMin, box2.XMin)
	y1 := max(box1.YMin, box2.YMin)
	x2 := min(box1.XMax, box2.XMax)
	y2 := min(box1.YMax, box2.YMax)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	area1 := (box1.XMax - box1.XMin) * (box1.YMax - box1.YMin)
	area2 := (box2.XMax - box2.XMin) * (box2.YMax - box2.YMin)
	union := area1 + area2 - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}
