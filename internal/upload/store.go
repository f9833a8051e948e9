// Package upload stores collateral images on local disk.
package upload

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/config"
	"github.com/Dan9191/loan-tracker/internal/models"
)

const jpegQuality = 85

// Store decodes uploaded images, normalises them and writes them as JPEG.
type Store struct {
	dir      string
	baseURL  string
	maxBytes int64
	maxWidth int
}

// NewStore creates a store from the upload configuration
func NewStore(cfg config.UploadConfig) *Store {
	return &Store{
		dir:      cfg.Dir,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		maxBytes: cfg.MaxBytes,
		maxWidth: cfg.MaxWidth,
	}
}

// Dir is the directory files are written to
func (s *Store) Dir() string {
	return s.dir
}

// MaxBytes is the largest accepted upload
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save stores the image read from r. Anything that does not decode as an
// image is rejected. EXIF orientation is applied and wide images are scaled
// down to the configured width.
func (s *Store) Save(r io.Reader) (*models.Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "failed to read upload")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperr.Newf(apperr.Validation, "file exceeds %d bytes", s.maxBytes)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "file is not a supported image")
	}
	if img.Bounds().Dx() > s.maxWidth {
		img = imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.DependencyFailure, err, "upload storage unavailable")
	}
	name := uuid.NewString() + ".jpg"
	path := filepath.Join(s.dir, name)
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		_ = os.Remove(path)
		return nil, apperr.Wrap(apperr.DependencyFailure, err, "failed to store upload")
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyFailure, err, "failed to store upload")
	}
	return &models.Upload{
		URL:      fmt.Sprintf("%s/%s", s.baseURL, name),
		Filename: name,
		Size:     fi.Size(),
		Type:     "image/jpeg",
	}, nil
}
