package decoder

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recibo-tech/qrscan/internal/testutil"
)

func TestEachDecoderReadsCleanCode(t *testing.T) {
	img := testutil.RenderQR(t, "https://example.com/receipt/42", 320)

	for _, name := range FullNames() {
		t.Run(name, func(t *testing.T) {
			d, err := byName(name)
			require.NoError(t, err)

			content, err := d.Decode(context.Background(), img)
			require.NoError(t, err)
			assert.Equal(t, "https://example.com/receipt/42", content)
		})
	}
}

func TestDecodersMissOnNoise(t *testing.T) {
	img := testutil.Noise(200, 200, 7)

	for _, name := range FullNames() {
		t.Run(name, func(t *testing.T) {
			d, err := byName(name)
			require.NoError(t, err)

			_, err = d.Decode(context.Background(), img)
			assert.Error(t, err)
		})
	}
}

func TestDecodeHonorsCancelledContext(t *testing.T) {
	img := testutil.RenderQR(t, "cancelled", 160)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, name := range FullNames() {
		d, err := byName(name)
		require.NoError(t, err)

		_, err = d.Decode(ctx, img)
		assert.ErrorIs(t, err, context.Canceled, name)
	}
}

func TestPoolDecodeFirst(t *testing.T) {
	pool, err := NewPool(nil, slog.Default())
	require.NoError(t, err)
	require.Equal(t, DefaultNames(), pool.Names())

	img := testutil.RenderQR(t, "pool-hit", 256)
	res, ok := pool.DecodeFirst(context.Background(), img)
	require.True(t, ok)
	assert.Equal(t, "pool-hit", res.Content)
	assert.Contains(t, pool.Names(), res.Decoder)
}

func TestPoolMissesOnNoise(t *testing.T) {
	pool, err := NewPool(FullNames(), nil)
	require.NoError(t, err)

	_, ok := pool.DecodeFirst(context.Background(), testutil.Noise(180, 180, 3))
	assert.False(t, ok)
}

func TestPoolRejectsUnknownName(t *testing.T) {
	_, err := NewPool([]string{"goqr", "zbar"}, nil)
	assert.Error(t, err)
}

func TestPoolRejectsDuplicateName(t *testing.T) {
	_, err := NewPool([]string{"goqr", "goqr"}, nil)
	assert.Error(t, err)
}
