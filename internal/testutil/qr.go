// Package testutil renders QR fixtures in-process so tests do not depend on
// binary image assets.
package testutil

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"math/rand"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// RenderQR encodes content as a QR code raster of the given edge length.
func RenderQR(t *testing.T, content string, size int) *image.Gray {
	t.Helper()
	writer := qrcode.NewQRCodeWriter()
	matrix, err := writer.Encode(content, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		t.Fatalf("encode QR: %v", err)
	}
	gray := image.NewGray(matrix.Bounds())
	draw.Draw(gray, gray.Bounds(), matrix, matrix.Bounds().Min, draw.Src)
	return gray
}

// RenderQRPNG encodes content as a QR code and returns it as PNG bytes.
func RenderQRPNG(t *testing.T, content string, size int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, RenderQR(t, content, size)); err != nil {
		t.Fatalf("encode PNG: %v", err)
	}
	return buf.Bytes()
}

// Noise returns a raster of uniform random pixels. No decoder should find a
// code in it.
func Noise(width, height int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

// LowerContrast compresses the pixel range of img toward mid-gray. factor 0
// leaves the raster unchanged; factor 1 flattens it entirely.
func LowerContrast(img *image.Gray, factor float64) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		out.Pix[i] = uint8(128 + (float64(v)-128)*(1-factor))
	}
	return out
}
