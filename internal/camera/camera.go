// Package camera provides the frame sources the analysis pipeline polls.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/webp"
)

var (
	// ErrNoFrame is returned by a live source that has not decoded a frame yet.
	ErrNoFrame = errors.New("camera: no frame available")
	// ErrFrameTooLarge is returned when a frame header declares more pixels
	// than the decoder is allowed to allocate.
	ErrFrameTooLarge = errors.New("camera: frame too large")
)

// DefaultMaxPixels caps decoded frames at DCI 4K.
const DefaultMaxPixels = 4096 * 2160

// Source yields the most recent frame on each poll.
type Source interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// StillSource serves the same decoded image on every poll.
type StillSource struct {
	img image.Image
}

func NewStillSource(img image.Image) *StillSource {
	return &StillSource{img: img}
}

// LoadStill decodes a JPEG, PNG or WebP file into a StillSource.
func LoadStill(path string) (*StillSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := DecodeLimited(f, DefaultMaxPixels)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewStillSource(img), nil
}

// Decode reads one JPEG, PNG or WebP image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}

// DecodeLimited reads the image header first and refuses to decode frames
// whose declared dimensions exceed maxPixels. The header bytes are replayed
// so r is only read once.
func DecodeLimited(r io.Reader, maxPixels int) (image.Image, error) {
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrFrameTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	return Decode(io.MultiReader(&head, r))
}

func (s *StillSource) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.img == nil {
		return nil, ErrNoFrame
	}
	return s.img, nil
}

func (s *StillSource) Close() error { return nil }
