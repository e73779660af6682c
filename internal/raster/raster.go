// Package raster decodes request image bytes into single-channel rasters and
// provides the grayscale transforms the preprocessing strategies are built
// from. All transforms are pure: they allocate a new raster and never mutate
// their input.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"

	// Registered decoders for the formats invoice photos arrive in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MinDimension is the smallest edge length accepted for decoding. Anything
// below this cannot contain a resolvable QR module grid.
const MinDimension = 16

// DefaultMaxEdge bounds the longest edge after normalization. Larger photos
// are downscaled so the decode stages stay within their time budget.
const DefaultMaxEdge = 2048

// ProcessError represents errors that occur during raster processing.
type ProcessError struct {
	Operation string
	Err       error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("raster %s: %v", e.Operation, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Metadata captures lightweight information about a decoded image.
type Metadata struct {
	Format    string
	Width     int
	Height    int
	SizeBytes int
}

// Decode parses an image byte buffer. It accepts PNG, JPEG, GIF, BMP and
// WebP. The error wraps the underlying decode failure so callers can treat
// undecodable buffers as malformed input.
func Decode(data []byte) (image.Image, Metadata, error) {
	if len(data) == 0 {
		return nil, Metadata{}, &ProcessError{Operation: "decode", Err: errors.New("empty buffer")}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Metadata{}, &ProcessError{Operation: "decode", Err: err}
	}
	bounds := img.Bounds()
	meta := Metadata{
		Format:    format,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		SizeBytes: len(data),
	}
	if meta.Width < MinDimension || meta.Height < MinDimension {
		return nil, meta, &ProcessError{
			Operation: "decode",
			Err:       fmt.Errorf("image %dx%d below minimum %dpx", meta.Width, meta.Height, MinDimension),
		}
	}
	return img, meta, nil
}

// ToGray converts any image to a single-channel intensity raster anchored
// at the origin.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	bounds := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// Normalize converts an image to grayscale and applies a bounded downscale
// when the longest edge exceeds maxEdge. It never upscales. maxEdge <= 0
// selects DefaultMaxEdge.
func Normalize(img image.Image, maxEdge int) *image.Gray {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	bounds := img.Bounds()
	if bounds.Dx() > maxEdge || bounds.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}
	return ToGray(img)
}
