// Package cascade orchestrates the QR scan escalation ladder. Cheap
// whole-image decoding runs first, rotations second, ONNX region detection
// third and the external fallback service last. The ladder stops at the
// first hit, so easy images stay fast and hard ones get every tool.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/recibo-tech/qrscan/internal/decoder"
	"github.com/recibo-tech/qrscan/internal/fallback"
	"github.com/recibo-tech/qrscan/internal/metrics"
	"github.com/recibo-tech/qrscan/internal/mldetect"
	"github.com/recibo-tech/qrscan/internal/raster"
	"github.com/recibo-tech/qrscan/internal/strategy"
)

var (
	// ErrMalformedInput reports bytes that could not be decoded as an image,
	// or an image too small to carry a QR code. Terminal: no cascade stage
	// can recover from it.
	ErrMalformedInput = errors.New("cascade: malformed image input")

	// ErrNoQRDetected reports that the full cascade ran and found nothing.
	// An expected outcome for photos without codes, not a failure.
	ErrNoQRDetected = errors.New("cascade: no QR code detected")
)

// Rotation angles tried at the second level, in degrees clockwise.
var rotationAngles = []int{90, 180, 270}

// DecodePool reads QR codes out of a grayscale raster. *decoder.Pool
// satisfies it.
type DecodePool interface {
	DecodeFirst(ctx context.Context, img *image.Gray) (decoder.Result, bool)
}

// RegionDetector locates QR regions and decodes their crops.
// *mldetect.Detector satisfies it.
type RegionDetector interface {
	DetectAndDecode(ctx context.Context, img *image.Gray, pool mldetect.DecodePool) (decoder.Result, mldetect.Tier, error)
}

// DetectionBackend is the external last-resort service. *fallback.Client
// satisfies it.
type DetectionBackend interface {
	Detect(ctx context.Context, imageData []byte) (string, error)
}

// Scanner runs the cascade. Build one with a Builder; a zero Scanner is not
// usable.
type Scanner struct {
	pool     DecodePool
	detector RegionDetector
	backend  DetectionBackend
	recorder metrics.Recorder
	logger   *slog.Logger
	maxEdge  int
}

// Scan decodes image bytes and walks the cascade until a QR code is read or
// every stage has missed. A miss returns ErrNoQRDetected with a Result that
// still carries timing.
func (s *Scanner) Scan(ctx context.Context, data []byte) (Result, error) {
	start := time.Now()

	img, meta, err := raster.Decode(data)
	if err != nil {
		s.recorder.ObserveScan("error", LevelNone.String(), time.Since(start), len(data))
		return Result{Elapsed: time.Since(start)}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	gray := raster.Normalize(img, s.maxEdge)
	s.logger.Debug("scan started",
		"format", meta.Format,
		"width", meta.Width,
		"height", meta.Height,
		"bytes", meta.SizeBytes)

	gen := strategy.NewGenerator(gray)

	if res, err := s.scanDirect(ctx, gen, start); res.Found || err != nil {
		return res, err
	}
	if res, err := s.scanRotations(ctx, gen, start); res.Found || err != nil {
		return res, err
	}
	if res, err := s.scanMLDetect(ctx, gray, start); res.Found || err != nil {
		return res, err
	}
	if res, err := s.scanFallback(ctx, data, start); res.Found || err != nil {
		return res, err
	}

	elapsed := time.Since(start)
	s.recorder.ObserveScan("miss", LevelNone.String(), elapsed, len(data))
	s.logger.Debug("scan exhausted all levels", "elapsed", elapsed)
	return Result{Elapsed: elapsed}, ErrNoQRDetected
}

// scanDirect runs every preprocessing variant through the decode pool.
func (s *Scanner) scanDirect(ctx context.Context, gen *strategy.Generator, start time.Time) (Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		variant, candidate, ok := gen.Next()
		if !ok {
			return Result{}, nil
		}
		if res, ok := s.pool.DecodeFirst(ctx, candidate); ok {
			return s.found(Result{
				Level:    LevelDirect,
				Strategy: variant.String(),
				Content:  res.Content,
				Decoder:  res.Decoder,
			}, start), nil
		}
	}
}

// scanRotations retries the first variant at the three remaining
// orientations. Only one variant is rotated; a code readable after rotation
// under some variant is almost always readable under the first.
func (s *Scanner) scanRotations(ctx context.Context, gen *strategy.Generator, start time.Time) (Result, error) {
	variant, first := gen.First()
	for _, deg := range rotationAngles {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		rotated := raster.Rotate(first, deg)
		if res, ok := s.pool.DecodeFirst(ctx, rotated); ok {
			return s.found(Result{
				Level:       LevelRotation,
				Strategy:    variant.String(),
				Content:     res.Content,
				Decoder:     res.Decoder,
				RotationDeg: deg,
			}, start), nil
		}
	}
	return Result{}, nil
}

// scanMLDetect escalates to the ONNX region detector. Unavailable models
// skip the stage rather than failing the scan.
func (s *Scanner) scanMLDetect(ctx context.Context, gray *image.Gray, start time.Time) (Result, error) {
	if s.detector == nil {
		return Result{}, nil
	}
	res, tier, err := s.detector.DetectAndDecode(ctx, gray, s.pool)
	switch {
	case err == nil:
		return s.found(Result{
			Level:     LevelMLDetect,
			Content:   res.Content,
			Decoder:   res.Decoder,
			ModelTier: string(tier),
		}, start), nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Result{}, err
	case errors.Is(err, mldetect.ErrModelUnavailable):
		s.logger.Debug("detector models unavailable, skipping level")
	case errors.Is(err, mldetect.ErrNoDecode):
	default:
		s.logger.Warn("detector level failed", "error", err)
	}
	return Result{}, nil
}

// scanFallback hands the original bytes to the external service. Any
// failure there is a miss, never an error.
func (s *Scanner) scanFallback(ctx context.Context, data []byte, start time.Time) (Result, error) {
	if s.backend == nil {
		return Result{}, nil
	}
	content, err := s.backend.Detect(ctx, data)
	switch {
	case err == nil:
		return s.found(Result{
			Level:   LevelFallback,
			Content: content,
		}, start), nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Result{}, err
	case errors.Is(err, fallback.ErrUnavailable):
		s.logger.Debug("fallback service unavailable", "error", err)
	default:
		s.logger.Debug("fallback found nothing", "error", err)
	}
	return Result{}, nil
}

func (s *Scanner) found(r Result, start time.Time) Result {
	r.Found = true
	r.Elapsed = time.Since(start)
	s.recorder.ObserveScan("found", r.Level.String(), r.Elapsed, 0)
	s.logger.Debug("scan succeeded",
		"level", r.Level.String(),
		"strategy", r.Strategy,
		"decoder", r.Decoder,
		"rotation", r.RotationDeg,
		"tier", r.ModelTier,
		"elapsed", r.Elapsed)
	return r
}
