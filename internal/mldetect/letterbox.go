package mldetect

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/recibo-tech/qrscan/internal/mempool"
	"github.com/recibo-tech/qrscan/internal/raster"
)

// YOLO convention: letterbox padding is neutral gray 114.
const padValue = float32(114.0 / 255.0)

// letterbox records how an image was fitted into the square model input, so
// detections can be mapped back to original coordinates.
type letterbox struct {
	scale      float64
	padX, padY int
	size       int
}

// toOriginal maps a region from model input coordinates back to the source
// image, clamped to its bounds.
func (l letterbox) toOriginal(r Region, width, height int) Region {
	out := Region{
		X1:         (r.X1 - float64(l.padX)) / l.scale,
		Y1:         (r.Y1 - float64(l.padY)) / l.scale,
		X2:         (r.X2 - float64(l.padX)) / l.scale,
		Y2:         (r.Y2 - float64(l.padY)) / l.scale,
		Confidence: r.Confidence,
	}
	out.X1 = math.Max(0, math.Min(out.X1, float64(width)))
	out.Y1 = math.Max(0, math.Min(out.Y1, float64(height)))
	out.X2 = math.Max(0, math.Min(out.X2, float64(width)))
	out.Y2 = math.Max(0, math.Min(out.Y2, float64(height)))
	return out
}

// preprocess scales img to fit the square model input, pads the remainder
// with neutral gray and writes the result as a normalized NCHW tensor with
// the gray channel replicated three times. The returned buffer comes from
// the float32 pool; the caller returns it with mempool.PutFloat32.
func preprocess(img *image.Gray, size int) ([]float32, letterbox) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	scale := math.Min(float64(size)/float64(width), float64(size)/float64(height))
	newW := max(1, int(math.Round(float64(width)*scale)))
	newH := max(1, int(math.Round(float64(height)*scale)))

	resized := img
	if newW != width || newH != height {
		resized = raster.ToGray(imaging.Resize(img, newW, newH, imaging.Linear))
	}

	lb := letterbox{
		scale: scale,
		padX:  (size - newW) / 2,
		padY:  (size - newH) / 2,
		size:  size,
	}

	plane := size * size
	buf := mempool.GetFloat32(3 * plane)
	for i := range buf {
		buf[i] = padValue
	}
	for y := range newH {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+newW]
		base := (y+lb.padY)*size + lb.padX
		for x, v := range row {
			val := float32(v) / 255.0
			buf[base+x] = val
			buf[plane+base+x] = val
			buf[2*plane+base+x] = val
		}
	}
	return buf, lb
}
