// Package presenter renders the outcome of one upload: the prompt before
// any upload, the "no fractures" warning, the per-detection records, or a
// user-facing failure.
package presenter

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/disintegration/imaging"

	"github.com/Tutortoise/fracture-detection-service/detections"
	"github.com/Tutortoise/fracture-detection-service/ingress"
	"github.com/Tutortoise/fracture-detection-service/summary"
)

type State int

const (
	StateNoImage State = iota
	StateNoDetections
	StateDetections
	StateError
)

func (s State) String() string {
	switch s {
	case StateNoImage:
		return "no_image"
	case StateNoDetections:
		return "no_detections"
	case StateDetections:
		return "detections"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// View is everything needed to show one result.
type View struct {
	State   State
	Message string
	// Code is a machine-readable error code, set for StateError only.
	Code      string
	Records   []summary.Record
	Original  image.Image
	Annotated image.Image

	status int
}

// NoImage is the view shown before anything was uploaded.
func NoImage() *View {
	return &View{
		State:   StateNoImage,
		Message: MsgNoImage,
		status:  http.StatusOK,
	}
}

// Result is the view of a completed detection run.
func Result(original, annotated image.Image, s summary.Summary) *View {
	v := &View{
		Original:  original,
		Annotated: annotated,
		status:    http.StatusOK,
	}
	if s.Empty() {
		v.State = StateNoDetections
		v.Message = MsgNoFractures
		return v
	}
	v.State = StateDetections
	v.Message = MsgFracturesFound
	v.Records = s.Records
	return v
}

// Failure maps err to a user-facing message. Internal details stay out of
// the message and should be logged by the caller.
func Failure(err error) *View {
	v := &View{State: StateError}

	var (
		formatErr *ingress.UnsupportedFormatError
		loadErr   *detections.ModelLoadError
	)
	switch {
	case errors.Is(err, ingress.ErrTooManyPixels):
		v.Code, v.Message, v.status = "image_too_large", MsgImageTooLarge, http.StatusRequestEntityTooLarge
	case errors.Is(err, ingress.ErrTooLarge):
		v.Code, v.Message, v.status = "upload_too_large", MsgUploadTooLarge, http.StatusRequestEntityTooLarge
	case errors.Is(err, ingress.ErrInvalidUpload):
		v.Code, v.Message, v.status = "invalid_request", MsgInvalidUpload, http.StatusBadRequest
	case errors.As(err, &formatErr):
		v.Code, v.Message, v.status = "unsupported_format", MsgUnsupportedFormat, http.StatusBadRequest
	case errors.As(err, &loadErr):
		v.Code, v.Message, v.status = "model_unavailable", MsgModelUnavailable, http.StatusServiceUnavailable
	case errors.Is(err, detections.ErrTimeout):
		v.Code, v.Message, v.status = "inference_timeout", MsgDetectionTimeout, http.StatusGatewayTimeout
	default:
		// staging failures are reported like any other inference failure
		v.Code, v.Message, v.status = "inference_error", MsgDetectionFailed, http.StatusInternalServerError
	}
	return v
}

// WithOriginal attaches the uploaded image to a failure view so the page
// can still show it.
func (v *View) WithOriginal(img image.Image) *View {
	v.Original = img
	return v
}

// Status is the HTTP status code matching the view.
func (v *View) Status() int {
	if v.status == 0 {
		return http.StatusOK
	}
	return v.status
}

// Render writes the HTML page for v.
func (v *View) Render(w io.Writer) error {
	data := pageData{
		Title:   pageTitle,
		State:   v.State.String(),
		Message: v.Message,
		Records: v.Records,
	}

	var err error
	if v.Original != nil {
		if data.Original, err = dataURI(v.Original); err != nil {
			return fmt.Errorf("encode original image: %w", err)
		}
	}
	if v.Annotated != nil {
		if data.Annotated, err = dataURI(v.Annotated); err != nil {
			return fmt.Errorf("encode annotated image: %w", err)
		}
	}

	return pageTemplate.Execute(w, data)
}

type DetectionRecord struct {
	Label       string     `json:"label"`
	Confidence  string     `json:"confidence"`
	Coordinates [4]float32 `json:"coordinates"`
	Detected    string     `json:"detected"`
	Caption     string     `json:"caption"`
}

type Response struct {
	State          string            `json:"state"`
	Message        string            `json:"message"`
	DetectionCount int               `json:"detection_count"`
	Detections     []DetectionRecord `json:"detections"`
	AnnotatedImage string            `json:"annotated_image,omitempty"`
}

// Response builds the JSON payload for v. The annotated image is included
// as a base64 PNG when includeImage is set.
func (v *View) Response(includeImage bool) (Response, error) {
	resp := Response{
		State:          v.State.String(),
		Message:        v.Message,
		DetectionCount: len(v.Records),
		Detections:     make([]DetectionRecord, 0, len(v.Records)),
	}
	for _, r := range v.Records {
		resp.Detections = append(resp.Detections, DetectionRecord{
			Label:       r.Label,
			Confidence:  r.Confidence,
			Coordinates: r.Coordinates,
			Detected:    r.DetectedLine(),
			Caption:     r.CoordinatesLine(),
		})
	}
	if includeImage && v.Annotated != nil {
		encoded, err := encodePNG(v.Annotated)
		if err != nil {
			return resp, fmt.Errorf("encode annotated image: %w", err)
		}
		resp.AnnotatedImage = encoded
	}
	return resp, nil
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
