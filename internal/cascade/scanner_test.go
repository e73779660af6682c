package cascade

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recibo-tech/qrscan/internal/decoder"
	"github.com/recibo-tech/qrscan/internal/metrics"
	"github.com/recibo-tech/qrscan/internal/mldetect"
	"github.com/recibo-tech/qrscan/internal/raster"
	"github.com/recibo-tech/qrscan/internal/testutil"
)

func newTestScanner(t *testing.T, pool DecodePool) *Scanner {
	t.Helper()
	if pool == nil {
		p, err := decoder.NewPool(nil, slog.Default())
		require.NoError(t, err)
		pool = p
	}
	return &Scanner{
		pool:     pool,
		recorder: metrics.Nop(),
		logger:   slog.Default(),
		maxEdge:  raster.DefaultMaxEdge,
	}
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// stubPool decides per raster whether to report a hit.
type stubPool struct {
	fn func(img *image.Gray) (decoder.Result, bool)
}

func (p stubPool) DecodeFirst(_ context.Context, img *image.Gray) (decoder.Result, bool) {
	return p.fn(img)
}

type stubDetector struct {
	res  decoder.Result
	tier mldetect.Tier
	err  error
}

func (d stubDetector) DetectAndDecode(context.Context, *image.Gray, mldetect.DecodePool) (decoder.Result, mldetect.Tier, error) {
	return d.res, d.tier, d.err
}

type stubBackend struct {
	content string
	err     error
}

func (b stubBackend) Detect(context.Context, []byte) (string, error) {
	return b.content, b.err
}

func TestScanCleanQRStopsAtDirectLevel(t *testing.T) {
	s := newTestScanner(t, nil)
	data := testutil.RenderQRPNG(t, "https://example.com/r/99", 320)

	res, err := s.Scan(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "https://example.com/r/99", res.Content)
	assert.Equal(t, LevelDirect, res.Level)
	assert.NotEmpty(t, res.Strategy)
	assert.NotEmpty(t, res.Decoder)
	assert.Zero(t, res.RotationDeg)
	assert.Positive(t, res.Elapsed)
}

func TestScanIsDeterministic(t *testing.T) {
	s := newTestScanner(t, nil)
	data := testutil.RenderQRPNG(t, "same-every-time", 256)

	first, err := s.Scan(context.Background(), data)
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), data)
	require.NoError(t, err)

	first.Elapsed, second.Elapsed = 0, 0
	assert.Equal(t, first, second)
}

func TestScanNoiseMissesEverywhere(t *testing.T) {
	s := newTestScanner(t, nil)
	data := pngBytes(t, testutil.Noise(240, 240, 11))

	res, err := s.Scan(context.Background(), data)
	assert.ErrorIs(t, err, ErrNoQRDetected)
	assert.False(t, res.Found)
	assert.Positive(t, res.Elapsed)
}

func TestScanMalformedBytes(t *testing.T) {
	s := newTestScanner(t, nil)

	_, err := s.Scan(context.Background(), []byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestScanTinyImageIsMalformed(t *testing.T) {
	s := newTestScanner(t, nil)
	data := pngBytes(t, image.NewGray(image.Rect(0, 0, 8, 8)))

	_, err := s.Scan(context.Background(), data)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestScanRotationProvenance(t *testing.T) {
	// The pool only reads portrait rasters. The landscape source fails every
	// direct variant; the 90 degree rotation is the first portrait candidate.
	pool := stubPool{fn: func(img *image.Gray) (decoder.Result, bool) {
		if img.Bounds().Dy() > img.Bounds().Dx() {
			return decoder.Result{Content: "rotated", Decoder: "stub"}, true
		}
		return decoder.Result{}, false
	}}
	s := newTestScanner(t, pool)
	data := pngBytes(t, image.NewGray(image.Rect(0, 0, 120, 60)))

	res, err := s.Scan(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, LevelRotation, res.Level)
	assert.Equal(t, 90, res.RotationDeg)
	assert.Equal(t, "equalized+otsu", res.Strategy)
	assert.Equal(t, "rotated", res.Content)
}

func TestScanLaterVariantSucceedsWhereFirstFails(t *testing.T) {
	// A uniform mid-gray raster survives only the untouched variant:
	// binarization collapses it to pure black or white, so a pool that needs
	// mid-gray pixels misses the first variant and hits the raw one.
	pool := stubPool{fn: func(img *image.Gray) (decoder.Result, bool) {
		if img.GrayAt(img.Bounds().Min.X, img.Bounds().Min.Y).Y == 128 {
			return decoder.Result{Content: "raw-only", Decoder: "stub"}, true
		}
		return decoder.Result{}, false
	}}
	s := newTestScanner(t, pool)

	src := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range src.Pix {
		src.Pix[i] = 128
	}

	res, err := s.Scan(context.Background(), pngBytes(t, src))
	require.NoError(t, err)
	assert.Equal(t, LevelDirect, res.Level)
	assert.Equal(t, "raw", res.Strategy)
	assert.Equal(t, "raw-only", res.Content)
}

func TestScanEscalatesToDetector(t *testing.T) {
	pool := stubPool{fn: func(*image.Gray) (decoder.Result, bool) {
		return decoder.Result{}, false
	}}
	s := newTestScanner(t, pool)
	s.detector = stubDetector{
		res:  decoder.Result{Content: "from-crop", Decoder: "goqr"},
		tier: mldetect.TierSmall,
	}
	data := pngBytes(t, image.NewGray(image.Rect(0, 0, 100, 100)))

	res, err := s.Scan(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, LevelMLDetect, res.Level)
	assert.Equal(t, "from-crop", res.Content)
	assert.Equal(t, "small", res.ModelTier)
}

func TestScanSkipsUnavailableDetector(t *testing.T) {
	pool := stubPool{fn: func(*image.Gray) (decoder.Result, bool) {
		return decoder.Result{}, false
	}}
	s := newTestScanner(t, pool)
	s.detector = stubDetector{err: mldetect.ErrModelUnavailable}
	s.backend = stubBackend{content: "from-service"}
	data := pngBytes(t, image.NewGray(image.Rect(0, 0, 100, 100)))

	res, err := s.Scan(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, LevelFallback, res.Level)
	assert.Equal(t, "from-service", res.Content)
}

func TestScanFallbackUnreachableIsMiss(t *testing.T) {
	pool := stubPool{fn: func(*image.Gray) (decoder.Result, bool) {
		return decoder.Result{}, false
	}}
	s := newTestScanner(t, pool)
	s.backend = stubBackend{err: assert.AnError}
	data := pngBytes(t, image.NewGray(image.Rect(0, 0, 100, 100)))

	_, err := s.Scan(context.Background(), data)
	assert.ErrorIs(t, err, ErrNoQRDetected)
}

func TestScanHonorsCancelledContext(t *testing.T) {
	s := newTestScanner(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx, testutil.RenderQRPNG(t, "cancelled", 160))
	assert.ErrorIs(t, err, context.Canceled)
}
