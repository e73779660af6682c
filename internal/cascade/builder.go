package cascade

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/recibo-tech/qrscan/internal/decoder"
	"github.com/recibo-tech/qrscan/internal/fallback"
	"github.com/recibo-tech/qrscan/internal/metrics"
	"github.com/recibo-tech/qrscan/internal/mldetect"
	"github.com/recibo-tech/qrscan/internal/raster"
)

// Config holds settings for the whole cascade.
type Config struct {
	MaxEdge         int             `mapstructure:"max_edge" yaml:"max_edge" json:"max_edge"`
	Decoders        []string        `mapstructure:"decoders" yaml:"decoders" json:"decoders"`
	DetectorEnabled bool            `mapstructure:"detector_enabled" yaml:"detector_enabled" json:"detector_enabled"`
	Detector        mldetect.Config `mapstructure:"detector" yaml:"detector" json:"detector"`
	Fallback        FallbackConfig  `mapstructure:"fallback" yaml:"fallback" json:"fallback"`
	Metrics         bool            `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// FallbackConfig configures the external detection service stage.
type FallbackConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	URL     string        `mapstructure:"url" yaml:"url" json:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// DefaultConfig returns the standard cascade settings.
func DefaultConfig() Config {
	return Config{
		MaxEdge:         raster.DefaultMaxEdge,
		Decoders:        decoder.DefaultNames(),
		DetectorEnabled: true,
		Detector:        mldetect.DefaultConfig(),
		Fallback: FallbackConfig{
			Enabled: true,
			URL:     fallback.DefaultEndpoint,
			Timeout: fallback.DefaultTimeout,
		},
		Metrics: false,
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.MaxEdge < raster.MinDimension {
		return fmt.Errorf("cascade: max edge must be at least %d, got %d", raster.MinDimension, c.MaxEdge)
	}
	if c.DetectorEnabled {
		if err := c.Detector.Validate(); err != nil {
			return err
		}
	}
	if c.Fallback.Enabled {
		if c.Fallback.URL == "" {
			return fmt.Errorf("cascade: fallback enabled without a URL")
		}
		if c.Fallback.Timeout <= 0 {
			return fmt.Errorf("cascade: fallback timeout must be positive, got %s", c.Fallback.Timeout)
		}
	}
	return nil
}

// Builder constructs a Scanner with fluent configuration.
type Builder struct {
	cfg    Config
	logger *slog.Logger
}

// NewBuilder creates a scanner builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithMaxEdge caps the working raster's longer edge.
func (b *Builder) WithMaxEdge(edge int) *Builder {
	if edge > 0 {
		b.cfg.MaxEdge = edge
	}
	return b
}

// WithDecoders sets the decode pool by name, in run order.
func (b *Builder) WithDecoders(names []string) *Builder {
	if len(names) > 0 {
		b.cfg.Decoders = names
	}
	return b
}

// WithDetector enables or disables the ML detection level.
func (b *Builder) WithDetector(enabled bool) *Builder {
	b.cfg.DetectorEnabled = enabled
	return b
}

// WithDetectorConfig replaces the detector settings.
func (b *Builder) WithDetectorConfig(cfg mldetect.Config) *Builder {
	b.cfg.Detector = cfg
	return b
}

// WithModelsDir points the detector at a models directory.
func (b *Builder) WithModelsDir(dir string) *Builder {
	if dir != "" {
		b.cfg.Detector.ModelsDir = dir
	}
	return b
}

// WithFallback configures the external fallback stage. An empty url or
// non-positive timeout keeps the current value.
func (b *Builder) WithFallback(enabled bool, url string, timeout time.Duration) *Builder {
	b.cfg.Fallback.Enabled = enabled
	if url != "" {
		b.cfg.Fallback.URL = url
	}
	if timeout > 0 {
		b.cfg.Fallback.Timeout = timeout
	}
	return b
}

// WithMetrics enables Prometheus metrics.
func (b *Builder) WithMetrics(enabled bool) *Builder {
	b.cfg.Metrics = enabled
	return b
}

// WithLogger sets the scanner's logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and assembles the scanner.
func (b *Builder) Build() (*Scanner, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := decoder.NewPool(b.cfg.Decoders, logger)
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		pool:     pool,
		recorder: metrics.Nop(),
		logger:   logger,
		maxEdge:  b.cfg.MaxEdge,
	}
	if b.cfg.Metrics {
		s.recorder = metrics.NewPrometheus()
		pool.SetObserver(s.recorder)
	}

	if b.cfg.DetectorEnabled {
		det, err := mldetect.New(b.cfg.Detector, logger)
		if err != nil {
			return nil, err
		}
		s.detector = det
	}

	if b.cfg.Fallback.Enabled {
		s.backend = fallback.NewClient(
			fallback.WithEndpoint(b.cfg.Fallback.URL),
			fallback.WithTimeout(b.cfg.Fallback.Timeout),
			fallback.WithLogger(logger),
		)
	}

	return s, nil
}

// Close releases detector resources.
func (s *Scanner) Close() {
	if det, ok := s.detector.(*mldetect.Detector); ok {
		det.Close()
	}
}
