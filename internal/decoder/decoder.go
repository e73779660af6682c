// Package decoder holds the pool of independent QR decoding algorithms. Each
// decoder has a distinct robustness profile; running several cheap ones in a
// fixed order before escalating to the ML tier is what keeps average latency
// low.
package decoder

import (
	"context"
	"errors"
	"image"
)

// ErrNoMatch reports that a decoder found no readable QR code. It is an
// expected, common outcome, not a failure.
var ErrNoMatch = errors.New("decoder: no QR code found")

// Decoder is one independent algorithm able to locate and read a QR code
// from a grayscale raster.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, img *image.Gray) (string, error)
}

// Names of the built-in decoders.
const (
	NameGoQR        = "goqr"
	NameZXingHybrid = "zxing-hybrid"
	NameZXingGlobal = "zxing-global"
	NameZXingMulti  = "zxing-multi"
)

// DefaultNames is the standard three-decoder pool: quirc-style contour
// localization first (fastest), then the zxing reader under its two
// binarizers.
func DefaultNames() []string {
	return []string{NameGoQR, NameZXingHybrid, NameZXingGlobal}
}

// FullNames extends the default pool with the exhaustive tiling reader.
func FullNames() []string {
	return []string{NameGoQR, NameZXingHybrid, NameZXingGlobal, NameZXingMulti}
}
