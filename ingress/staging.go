package ingress

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/Tutortoise/fracture-detection-service/models"
)

const stagingPattern = "xray-*.jpg"

// TempFileError reports a staging file that could not be written or removed.
type TempFileError struct {
	Op    string
	Path  string
	Cause error
}

func (e *TempFileError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("staging file %s %s: %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("staging file %s: %v", e.Op, e.Cause)
}

func (e *TempFileError) Unwrap() error {
	return e.Cause
}

// StagedFile is an image written to a temporary file owned by one request.
// Close removes it.
type StagedFile struct {
	path string

	once sync.Once
	err  error
}

// Stage writes img as a JPEG to a new uniquely named file in dir (the
// system temp directory when dir is empty). The caller must Close the
// returned file, typically with defer right after a successful call.
func Stage(img *models.Image, dir string) (*StagedFile, error) {
	if img == nil || img.Raster == nil {
		return nil, &TempFileError{Op: "write", Cause: errors.New("no image")}
	}

	f, err := os.CreateTemp(dir, stagingPattern)
	if err != nil {
		return nil, &TempFileError{Op: "create", Cause: err}
	}
	staged := &StagedFile{path: f.Name()}

	if err := imaging.Encode(f, img.Raster, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		f.Close()
		staged.Close()
		return nil, &TempFileError{Op: "write", Path: staged.path, Cause: err}
	}
	if err := f.Close(); err != nil {
		staged.Close()
		return nil, &TempFileError{Op: "close", Path: staged.path, Cause: err}
	}

	return staged, nil
}

func (s *StagedFile) Path() string {
	return s.path
}

// Close deletes the file. Calling it more than once is safe.
func (s *StagedFile) Close() error {
	s.once.Do(func() {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.err = &TempFileError{Op: "remove", Path: s.path, Cause: err}
		}
	})
	return s.err
}
