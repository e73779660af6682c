package raster

import (
	"image"
	"image/color"
	"testing"
)

// bimodal builds a half dark, half bright raster.
func bimodal(w, h int, low, high uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := low
			if x >= w/2 {
				v = high
			}
			g.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return g
}

func TestOtsuLevelSeparatesBimodal(t *testing.T) {
	g := bimodal(64, 64, 40, 200)
	level := OtsuLevel(g)
	if level < 40 || level >= 200 {
		t.Fatalf("otsu level %d does not separate modes 40/200", level)
	}
}

func TestOtsuThresholdBinarizes(t *testing.T) {
	g := bimodal(64, 64, 40, 200)
	bin, level := OtsuThreshold(g)
	if level == 0 {
		t.Fatal("zero threshold for bimodal input")
	}
	for y := range 64 {
		for x := range 64 {
			v := bin.GrayAt(x, y).Y
			if v != 0 && v != 255 {
				t.Fatalf("pixel (%d,%d) = %d, want 0 or 255", x, y, v)
			}
		}
	}
	if bin.GrayAt(0, 0).Y != 0 {
		t.Fatal("dark half not mapped to black")
	}
	if bin.GrayAt(63, 0).Y != 255 {
		t.Fatal("bright half not mapped to white")
	}
}

func TestEqualizeHistogramStretchesRange(t *testing.T) {
	// Low contrast: values confined to [100, 140].
	g := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := range 32 {
		for x := range 32 {
			g.SetGray(x, y, color.Gray{Y: uint8(100 + (x+y)%40)})
		}
	}
	eq := EqualizeHistogram(g)
	minV, maxV := uint8(255), uint8(0)
	for y := range 32 {
		for x := range 32 {
			v := eq.GrayAt(x, y).Y
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}
	if maxV-minV <= 40 {
		t.Fatalf("range not stretched: [%d, %d]", minV, maxV)
	}
	if minV != 0 {
		t.Fatalf("lowest bin not mapped to 0, got %d", minV)
	}
}

func TestEqualizeHistogramFlatImage(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range g.Pix {
		g.Pix[i] = 77
	}
	eq := EqualizeHistogram(g)
	if eq.GrayAt(3, 3).Y != 77 {
		t.Fatalf("flat image changed: %d", eq.GrayAt(3, 3).Y)
	}
}

func TestEqualizeDoesNotMutateInput(t *testing.T) {
	g := bimodal(16, 16, 10, 240)
	before := make([]uint8, len(g.Pix))
	copy(before, g.Pix)
	_ = EqualizeHistogram(g)
	for i := range before {
		if g.Pix[i] != before[i] {
			t.Fatal("input raster mutated")
		}
	}
}

// asymmetric builds a raster with a single marked pixel for rotation checks.
func asymmetric(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	g.SetGray(0, 0, color.Gray{Y: 255})
	return g
}

func TestRotate90MovesCorner(t *testing.T) {
	g := asymmetric(10, 6)
	r := Rotate90(g)
	if r.Bounds().Dx() != 6 || r.Bounds().Dy() != 10 {
		t.Fatalf("unexpected dimensions %v", r.Bounds())
	}
	// Top-left goes to top-right under clockwise rotation.
	if r.GrayAt(5, 0).Y != 255 {
		t.Fatal("corner not at top-right after 90 degrees")
	}
}

func TestRotate180MovesCorner(t *testing.T) {
	g := asymmetric(10, 6)
	r := Rotate180(g)
	if r.GrayAt(9, 5).Y != 255 {
		t.Fatal("corner not at bottom-right after 180 degrees")
	}
}

func TestRotate270MovesCorner(t *testing.T) {
	g := asymmetric(10, 6)
	r := Rotate270(g)
	if r.Bounds().Dx() != 6 || r.Bounds().Dy() != 10 {
		t.Fatalf("unexpected dimensions %v", r.Bounds())
	}
	// Top-left goes to bottom-left under counter-clockwise rotation.
	if r.GrayAt(0, 9).Y != 255 {
		t.Fatal("corner not at bottom-left after 270 degrees")
	}
}

func TestRotateFullCircle(t *testing.T) {
	g := bimodal(12, 8, 30, 220)
	r := Rotate90(Rotate90(Rotate90(Rotate90(g))))
	if r.Bounds() != g.Bounds() {
		t.Fatalf("bounds changed after full circle: %v", r.Bounds())
	}
	for i := range g.Pix {
		if r.Pix[i] != g.Pix[i] {
			t.Fatal("pixels changed after four 90 degree rotations")
		}
	}
}

func TestCropRectClamps(t *testing.T) {
	g := bimodal(20, 20, 0, 255)
	c := CropRect(g, image.Rect(10, 10, 40, 40))
	if c.Bounds().Dx() != 10 || c.Bounds().Dy() != 10 {
		t.Fatalf("crop not clamped: %v", c.Bounds())
	}
}

func TestUpscale2x(t *testing.T) {
	g := bimodal(15, 9, 0, 255)
	u := Upscale2x(g)
	if u.Bounds().Dx() != 30 || u.Bounds().Dy() != 18 {
		t.Fatalf("unexpected dimensions %v", u.Bounds())
	}
}
