package decoder

import (
	"context"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// binarizerFunc turns a luminance source into the thresholded bitmap a zxing
// reader consumes. The hybrid binarizer adapts the threshold per block and
// handles uneven lighting; the global histogram binarizer uses a single
// image-wide threshold and wins on clean scans with sharp contrast.
type binarizerFunc func(gozxing.LuminanceSource) gozxing.Binarizer

type zxingDecoder struct {
	name      string
	binarize  binarizerFunc
	tryHarder bool
}

// NewZXingHybrid reads QR codes through the locally adaptive binarizer.
func NewZXingHybrid() Decoder {
	return &zxingDecoder{
		name: NameZXingHybrid,
		binarize: func(src gozxing.LuminanceSource) gozxing.Binarizer {
			return gozxing.NewHybridBinarizer(src)
		},
	}
}

// NewZXingGlobal reads QR codes through the global histogram binarizer.
func NewZXingGlobal() Decoder {
	return &zxingDecoder{
		name: NameZXingGlobal,
		binarize: func(src gozxing.LuminanceSource) gozxing.Binarizer {
			return gozxing.NewGlobalHistgramBinarizer(src)
		},
	}
}

func (d *zxingDecoder) Name() string { return d.name }

func (d *zxingDecoder) Decode(ctx context.Context, img *image.Gray) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	bmp, err := d.bitmap(img)
	if err != nil {
		return "", fmt.Errorf("%s: %w", d.name, err)
	}
	reader := qrcode.NewQRCodeReader()
	result, err := reader.Decode(bmp, d.hints())
	if err != nil {
		return "", ErrNoMatch
	}
	return result.GetText(), nil
}

func (d *zxingDecoder) bitmap(img *image.Gray) (*gozxing.BinaryBitmap, error) {
	src := gozxing.NewLuminanceSourceFromImage(img)
	return gozxing.NewBinaryBitmap(d.binarize(src))
}

func (d *zxingDecoder) hints() map[gozxing.DecodeHintType]interface{} {
	if !d.tryHarder {
		return nil
	}
	return map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
}

// zxingMultiDecoder searches the raster for several QR codes at once.
// Slower than the single-code readers but finds codes the fast path misses,
// so it only belongs in the extended pool.
type zxingMultiDecoder struct {
	zxingDecoder
}

// NewZXingMulti reads QR codes with the exhaustive multi-barcode reader.
func NewZXingMulti() Decoder {
	return &zxingMultiDecoder{zxingDecoder{
		name: NameZXingMulti,
		binarize: func(src gozxing.LuminanceSource) gozxing.Binarizer {
			return gozxing.NewHybridBinarizer(src)
		},
		tryHarder: true,
	}}
}

func (d *zxingMultiDecoder) Decode(ctx context.Context, img *image.Gray) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	bmp, err := d.bitmap(img)
	if err != nil {
		return "", fmt.Errorf("%s: %w", d.name, err)
	}
	reader := multiqr.NewQRCodeMultiReader()
	results, err := reader.DecodeMultiple(bmp, d.hints())
	if err != nil || len(results) == 0 {
		return "", ErrNoMatch
	}
	return results[0].GetText(), nil
}
