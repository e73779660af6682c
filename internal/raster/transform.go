package raster

import (
	"image"

	"github.com/disintegration/imaging"
)

// EqualizeHistogram spreads the intensity histogram across the full range.
// Helps low-contrast, evenly lit photos; can destroy fine module boundaries
// on images that are already high contrast, which is why the untouched
// raster is always tried as well.
func EqualizeHistogram(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	total := w * h
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if total == 0 {
		return dst
	}

	var hist [256]int
	for y := range h {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for _, v := range row {
			hist[v]++
		}
	}

	var cdf [256]int
	sum := 0
	for i, c := range hist {
		sum += c
		cdf[i] = sum
	}
	cdfMin := 0
	for _, c := range cdf {
		if c > 0 {
			cdfMin = c
			break
		}
	}

	var lut [256]uint8
	denom := total - cdfMin
	if denom <= 0 {
		// Flat image; identity mapping.
		for i := range lut {
			lut[i] = uint8(i)
		}
	} else {
		for i := range lut {
			lut[i] = uint8((cdf[i] - cdfMin) * 255 / denom)
		}
	}

	for y := range h {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+w]
		dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x, v := range srcRow {
			dstRow[x] = lut[v]
		}
	}
	return dst
}

// OtsuLevel computes the global binarization threshold that maximizes
// between-class variance of the intensity histogram.
func OtsuLevel(src *image.Gray) uint8 {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	total := w * h
	if total == 0 {
		return 128
	}

	var hist [256]int
	for y := range h {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for _, v := range row {
			hist[v]++
		}
	}

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i) * float64(c)
	}

	var sumBack, weightBack float64
	var maxVariance float64
	var threshold uint8
	for i := range 256 {
		weightBack += float64(hist[i])
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(i) * float64(hist[i])
		meanBack := sumBack / weightBack
		meanFore := (sumAll - sumBack) / weightFore
		diff := meanBack - meanFore
		variance := weightBack * weightFore * diff * diff
		if variance > maxVariance {
			maxVariance = variance
			threshold = uint8(i)
		}
	}
	return threshold
}

// Threshold binarizes the raster: pixels above level become white, the rest
// black.
func Threshold(src *image.Gray, level uint8) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+w]
		dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x, v := range srcRow {
			if v > level {
				dstRow[x] = 255
			} else {
				dstRow[x] = 0
			}
		}
	}
	return dst
}

// OtsuThreshold binarizes with the Otsu-derived global level and reports the
// level used.
func OtsuThreshold(src *image.Gray) (*image.Gray, uint8) {
	level := OtsuLevel(src)
	return Threshold(src, level), level
}

// Rotate90 rotates the raster 90 degrees clockwise.
func Rotate90(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewGray(image.Rect(0, 0, h, w))
	for yd := range w {
		for xd := range h {
			dst.Pix[yd*dst.Stride+xd] = src.Pix[yd+(h-1-xd)*src.Stride]
		}
	}
	return dst
}

// Rotate180 rotates the raster 180 degrees.
func Rotate180(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		srcRow := src.Pix[(h-1-y)*src.Stride : (h-1-y)*src.Stride+w]
		dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range w {
			dstRow[x] = srcRow[w-1-x]
		}
	}
	return dst
}

// Rotate270 rotates the raster 270 degrees clockwise.
func Rotate270(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewGray(image.Rect(0, 0, h, w))
	for yd := range w {
		for xd := range h {
			dst.Pix[yd*dst.Stride+xd] = src.Pix[(w-1-yd)+xd*src.Stride]
		}
	}
	return dst
}

// Rotate applies a clockwise rotation of 0, 90, 180 or 270 degrees.
func Rotate(src *image.Gray, degrees int) *image.Gray {
	switch degrees % 360 {
	case 90:
		return Rotate90(src)
	case 180:
		return Rotate180(src)
	case 270:
		return Rotate270(src)
	default:
		return src
	}
}

// CropRect extracts a sub-raster. The rectangle is clamped to the raster
// bounds; an empty intersection yields an empty raster.
func CropRect(src *image.Gray, r image.Rectangle) *image.Gray {
	return ToGray(imaging.Crop(src, r))
}

// Upscale2x doubles both raster dimensions with Lanczos resampling. Used for
// small detector crops where the module grid is near the resolution floor.
func Upscale2x(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	return ToGray(imaging.Resize(src, bounds.Dx()*2, bounds.Dy()*2, imaging.Lanczos))
}
