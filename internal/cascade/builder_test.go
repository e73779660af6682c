package cascade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recibo-tech/qrscan/internal/testutil"
)

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEdge = 4
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Fallback.URL = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Fallback.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Detector.Mode = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestBuilderAssemblesWorkingScanner(t *testing.T) {
	s, err := NewBuilder().
		WithDetector(false).
		WithFallback(false, "", 0).
		WithMaxEdge(1024).
		Build()
	require.NoError(t, err)
	defer s.Close()

	res, err := s.Scan(context.Background(), testutil.RenderQRPNG(t, "built", 256))
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "built", res.Content)
}

func TestBuilderRejectsUnknownDecoder(t *testing.T) {
	_, err := NewBuilder().
		WithDecoders([]string{"nonexistent"}).
		WithDetector(false).
		WithFallback(false, "", 0).
		Build()
	assert.Error(t, err)
}

func TestBuilderFallbackSettings(t *testing.T) {
	s, err := NewBuilder().
		WithDetector(false).
		WithFallback(true, "http://127.0.0.1:9999/detect", 250*time.Millisecond).
		Build()
	require.NoError(t, err)
	defer s.Close()
	assert.NotNil(t, s.backend)
}
