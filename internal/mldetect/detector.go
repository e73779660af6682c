package mldetect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/yalue/onnxruntime_go"

	"github.com/recibo-tech/qrscan/internal/decoder"
	"github.com/recibo-tech/qrscan/internal/mempool"
	"github.com/recibo-tech/qrscan/internal/onnx"
	"github.com/recibo-tech/qrscan/internal/raster"
)

// ErrNoDecode reports that the detector ran but no detected region yielded a
// readable QR code.
var ErrNoDecode = errors.New("mldetect: no QR decoded from detected regions")

// Crop padding around a detected box, as a fraction of its larger edge. QR
// quiet zones matter to the decoders, and YOLO boxes tend to hug the code.
const (
	cropPadFraction = 0.20
	cropPadMin      = 20.0
	cropPadMax      = 50.0
)

// Crops smaller than this edge get one 2x upscale retry before being given
// up on.
const smallCropEdge = 200

// DecodePool reads QR codes out of a raster. *decoder.Pool satisfies it.
type DecodePool interface {
	DecodeFirst(ctx context.Context, img *image.Gray) (decoder.Result, bool)
}

// Detector finds QR regions with ONNX models and feeds the crops back
// through a decode pool.
type Detector struct {
	config Config
	logger *slog.Logger
	tiers  map[Tier]*tierSession
}

// New builds a detector. Models are not touched until the first detection.
func New(config Config, logger *slog.Logger) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{
		config: config,
		logger: logger,
		tiers:  make(map[Tier]*tierSession, 2),
	}
	for _, tier := range []Tier{TierSmall, TierLarge} {
		d.tiers[tier] = newTierSession(tier, config, logger)
	}
	return d, nil
}

// Close releases any loaded ONNX sessions.
func (d *Detector) Close() {
	for _, s := range d.tiers {
		s.close()
	}
}

// DetectRegions runs one tier's model over the raster and returns candidate
// regions in image coordinates, best first.
func (d *Detector) DetectRegions(ctx context.Context, img *image.Gray, tier Tier) ([]Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	session, ok := d.tiers[tier]
	if !ok {
		return nil, fmt.Errorf("mldetect: unknown tier %q", tier)
	}

	start := time.Now()
	buf, lb := preprocess(img, d.config.InputSize)
	defer mempool.PutFloat32(buf)

	prepared, err := onnx.NewImageTensor(buf, 3, d.config.InputSize, d.config.InputSize)
	if err != nil {
		return nil, fmt.Errorf("mldetect: prepare input tensor: %w", err)
	}

	input, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(prepared.Shape...), prepared.Data)
	if err != nil {
		return nil, fmt.Errorf("mldetect: create input tensor: %w", err)
	}
	defer func() {
		if err := input.Destroy(); err != nil {
			d.logger.Warn("failed to destroy input tensor", "error", err)
		}
	}()

	output, err := session.run(input)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := output.Destroy(); err != nil {
			d.logger.Warn("failed to destroy output tensor", "error", err)
		}
	}()

	floatTensor, ok := output.(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("mldetect: %s tier produced non-float32 output", tier)
	}

	raw, err := parseDetections(floatTensor.GetData(), floatTensor.GetShape(), d.config.ConfThreshold)
	if err != nil {
		return nil, err
	}

	kept := NonMaxSuppression(raw, d.config.IoUThreshold)
	if len(kept) > d.config.MaxRegions {
		kept = kept[:d.config.MaxRegions]
	}

	bounds := img.Bounds()
	regions := make([]Region, 0, len(kept))
	for _, r := range kept {
		mapped := lb.toOriginal(r, bounds.Dx(), bounds.Dy())
		if mapped.Width() < 1 || mapped.Height() < 1 {
			continue
		}
		regions = append(regions, mapped)
	}

	d.logger.Debug("detector pass complete",
		"tier", tier,
		"raw", len(raw),
		"regions", len(regions),
		"duration", time.Since(start))
	return regions, nil
}

// DetectAndDecode runs the configured tiers in escalation order, cropping
// each detected region and handing it to the pool. The first readable crop
// wins. ErrModelUnavailable comes back only when every configured tier
// failed to load.
func (d *Detector) DetectAndDecode(ctx context.Context, img *image.Gray, pool DecodePool) (decoder.Result, Tier, error) {
	tiers := d.config.tiersFor()
	unavailable := 0
	for _, tier := range tiers {
		regions, err := d.DetectRegions(ctx, img, tier)
		if err != nil {
			if errors.Is(err, ErrModelUnavailable) {
				d.logger.Debug("skipping unavailable tier", "tier", tier)
				unavailable++
				continue
			}
			return decoder.Result{}, "", err
		}

		for _, region := range regions {
			if err := ctx.Err(); err != nil {
				return decoder.Result{}, "", err
			}
			if res, ok := d.decodeRegion(ctx, img, region, pool); ok {
				return res, tier, nil
			}
		}
	}

	if unavailable == len(tiers) {
		return decoder.Result{}, "", ErrModelUnavailable
	}
	return decoder.Result{}, "", ErrNoDecode
}

// decodeRegion crops one detected box with quiet-zone padding and tries the
// pool, upscaling small crops once before giving up.
func (d *Detector) decodeRegion(ctx context.Context, img *image.Gray, region Region, pool DecodePool) (decoder.Result, bool) {
	pad := math.Max(cropPadMin, math.Min(cropPadMax,
		cropPadFraction*math.Max(region.Width(), region.Height())))

	rect := region.Rect().Inset(-int(pad))
	crop := raster.CropRect(img, rect)
	if crop.Bounds().Dx() < raster.MinDimension || crop.Bounds().Dy() < raster.MinDimension {
		return decoder.Result{}, false
	}

	if res, ok := pool.DecodeFirst(ctx, crop); ok {
		return res, true
	}

	if crop.Bounds().Dx() < smallCropEdge && crop.Bounds().Dy() < smallCropEdge {
		if res, ok := pool.DecodeFirst(ctx, raster.Upscale2x(crop)); ok {
			return res, true
		}
	}
	return decoder.Result{}, false
}
