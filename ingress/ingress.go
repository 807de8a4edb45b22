// Package ingress accepts uploaded image bytes, validates them as JPEG or
// PNG and stages them on disk for path-based inference.
package ingress

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"github.com/Tutortoise/fracture-detection-service/models"
)

const (
	// DefaultMaxUploadBytes caps a single upload.
	DefaultMaxUploadBytes = 20 << 20
	// DefaultMaxPixels caps the decoded size of a single upload.
	DefaultMaxPixels = 40_000_000
)

var (
	ErrEmptyUpload   = errors.New("empty upload")
	ErrTooLarge      = errors.New("upload exceeds size limit")
	ErrInvalidUpload = errors.New("invalid upload request")
	// ErrTooManyPixels is an ErrTooLarge raised from the image header,
	// before any pixel is decoded.
	ErrTooManyPixels = fmt.Errorf("%w: image dimensions", ErrTooLarge)
)

var acceptedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
}

// UnsupportedFormatError reports bytes that do not decode as an accepted
// image format. The user has to upload a different file.
type UnsupportedFormatError struct {
	Filename string
	Format   string
	Cause    error
}

func (e *UnsupportedFormatError) Error() string {
	switch {
	case e.Format != "":
		return fmt.Sprintf("%s: unsupported image format %q", e.Filename, e.Format)
	case e.Cause != nil:
		return fmt.Sprintf("%s: not a JPEG or PNG image: %v", e.Filename, e.Cause)
	default:
		return fmt.Sprintf("%s: not a JPEG or PNG image", e.Filename)
	}
}

func (e *UnsupportedFormatError) Unwrap() error {
	return e.Cause
}

// Ingest decodes raw as a JPEG or PNG image of at most DefaultMaxPixels.
// The declared filename is informational only; the format is taken from
// the content.
func Ingest(raw []byte, filename string) (*models.Image, error) {
	return IngestLimit(raw, filename, DefaultMaxPixels)
}

// IngestLimit is Ingest with an explicit pixel budget. Images whose header
// declares more than maxPixels pixels fail with ErrTooManyPixels.
func IngestLimit(raw []byte, filename string, maxPixels int64) (*models.Image, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if len(raw) == 0 {
		return nil, &UnsupportedFormatError{Filename: filename, Cause: ErrEmptyUpload}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, &UnsupportedFormatError{Filename: filename, Cause: err}
	}
	if !acceptedFormats[format] {
		return nil, &UnsupportedFormatError{Filename: filename, Format: format}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, fmt.Errorf("%s: %dx%d exceeds %d pixels: %w", filename, cfg.Width, cfg.Height, maxPixels, ErrTooManyPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &UnsupportedFormatError{Filename: filename, Cause: err}
	}

	bounds := img.Bounds()
	return &models.Image{
		Raster:   img,
		Format:   format,
		Filename: filename,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}

// ReadUpload reads at most limit bytes from r. Larger bodies fail with
// ErrTooLarge.
func ReadUpload(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
