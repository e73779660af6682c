// Package strategy produces preprocessed variants of a normalized raster in
// a fixed priority order. Different photographs need contradictory
// treatments, so the generator emits several variants and lets the caller
// stop at the first one that decodes.
package strategy

import (
	"image"

	"github.com/recibo-tech/qrscan/internal/raster"
)

// Variant identifies one preprocessing treatment.
type Variant int

const (
	// VariantEqualizedOtsu is histogram equalization followed by Otsu
	// binarization. Best first guess for low-contrast, evenly lit photos.
	VariantEqualizedOtsu Variant = iota
	// VariantRawGray is the untouched grayscale signal. Safety net for
	// images that enhancement damages.
	VariantRawGray
	// VariantOtsuOnly is global binarization without prior equalization.
	VariantOtsuOnly
	// VariantEqualizedOnly is contrast enhancement without binarization.
	VariantEqualizedOnly
)

func (v Variant) String() string {
	switch v {
	case VariantEqualizedOtsu:
		return "equalized+otsu"
	case VariantRawGray:
		return "raw"
	case VariantOtsuOnly:
		return "otsu-only"
	case VariantEqualizedOnly:
		return "equalized-only"
	default:
		return "unknown"
	}
}

// DefaultOrder is the empirically chosen variant priority. Recorded failure
// cases show the raw signal succeeding where the enhanced one fails and vice
// versa, so the list must not be collapsed to a single entry.
var DefaultOrder = []Variant{
	VariantEqualizedOtsu,
	VariantRawGray,
	VariantOtsuOnly,
	VariantEqualizedOnly,
}

// Generator lazily derives variants from a source raster. Each call to Next
// materializes exactly one variant; earlier variants are not retained and the
// source is never mutated.
type Generator struct {
	src       *image.Gray
	order     []Variant
	pos       int
	equalized *image.Gray // memoized: feeds both equalize-based variants
}

// NewGenerator returns a generator over DefaultOrder.
func NewGenerator(src *image.Gray) *Generator {
	return NewGeneratorWithOrder(src, DefaultOrder)
}

// NewGeneratorWithOrder returns a generator over an explicit variant order.
func NewGeneratorWithOrder(src *image.Gray, order []Variant) *Generator {
	return &Generator{src: src, order: order}
}

// Next materializes the next variant. ok is false when the order is
// exhausted.
func (g *Generator) Next() (v Variant, img *image.Gray, ok bool) {
	if g.pos >= len(g.order) {
		return 0, nil, false
	}
	v = g.order[g.pos]
	g.pos++
	return v, g.materialize(v), true
}

// First re-derives the highest-priority variant. Used by rotation recovery,
// which retries only the first treatment to bound added latency.
func (g *Generator) First() (Variant, *image.Gray) {
	v := g.order[0]
	return v, g.materialize(v)
}

func (g *Generator) materialize(v Variant) *image.Gray {
	switch v {
	case VariantRawGray:
		return g.src
	case VariantEqualizedOnly:
		return g.equalize()
	case VariantOtsuOnly:
		bin, _ := raster.OtsuThreshold(g.src)
		return bin
	default: // VariantEqualizedOtsu
		bin, _ := raster.OtsuThreshold(g.equalize())
		return bin
	}
}

func (g *Generator) equalize() *image.Gray {
	if g.equalized == nil {
		g.equalized = raster.EqualizeHistogram(g.src)
	}
	return g.equalized
}
