package mldetect

import (
	"image"
	"math"
	"sort"
)

// Region is a candidate QR code location in original image coordinates.
type Region struct {
	X1, Y1     float64
	X2, Y2     float64
	Confidence float64
}

func (r Region) Width() float64  { return r.X2 - r.X1 }
func (r Region) Height() float64 { return r.Y2 - r.Y1 }

// Rect converts the region to an integer rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(int(math.Floor(r.X1)), int(math.Floor(r.Y1)),
		int(math.Ceil(r.X2)), int(math.Ceil(r.Y2)))
}

// IoU computes intersection over union for two regions.
func IoU(a, b Region) float64 {
	left := math.Max(a.X1, b.X1)
	top := math.Max(a.Y1, b.Y1)
	right := math.Min(a.X2, b.X2)
	bottom := math.Min(a.Y2, b.Y2)

	if left >= right || top >= bottom {
		return 0
	}

	intersection := (right - left) * (bottom - top)
	union := a.Width()*a.Height() + b.Width()*b.Height() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// NonMaxSuppression keeps the highest-confidence region of every overlapping
// cluster. Regions come back sorted by confidence descending.
func NonMaxSuppression(regions []Region, iouThreshold float64) []Region {
	if len(regions) <= 1 {
		return regions
	}

	sorted := make([]Region, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	suppressed := make([]bool, len(sorted))
	kept := make([]Region, 0, len(sorted))
	for a := range sorted {
		if suppressed[a] {
			continue
		}
		kept = append(kept, sorted[a])
		for b := a + 1; b < len(sorted); b++ {
			if suppressed[b] {
				continue
			}
			if IoU(sorted[a], sorted[b]) > iouThreshold {
				suppressed[b] = true
			}
		}
	}
	return kept
}
