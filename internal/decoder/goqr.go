package decoder

import (
	"context"
	"image"

	"github.com/liyue201/goqr"
)

// goqrDecoder wraps the quirc-style decoder, which localizes codes by finder
// pattern contours. It is the cheapest of the pool and tolerates perspective
// skew better than the zxing readers, so it runs first.
type goqrDecoder struct{}

// NewGoQR returns the contour-based QR decoder.
func NewGoQR() Decoder {
	return goqrDecoder{}
}

func (goqrDecoder) Name() string { return NameGoQR }

func (goqrDecoder) Decode(ctx context.Context, img *image.Gray) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	codes, err := goqr.Recognize(img)
	if err != nil || len(codes) == 0 {
		return "", ErrNoMatch
	}
	for _, code := range codes {
		if len(code.Payload) > 0 {
			return string(code.Payload), nil
		}
	}
	return "", ErrNoMatch
}
