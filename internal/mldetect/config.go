// Package mldetect locates QR code regions with YOLO-style ONNX detector
// models. It is the escalation tier of the scan cascade: the decoders get a
// whole-image pass first, and only when they all miss does the detector run
// to find candidate regions worth cropping and re-decoding.
package mldetect

import (
	"errors"
	"fmt"

	"github.com/recibo-tech/qrscan/internal/models"
	"github.com/recibo-tech/qrscan/internal/onnx"
)

// ErrModelUnavailable reports that a detector model could not be loaded.
// The condition is latched: once a tier fails to load it stays unavailable
// for the life of the process.
var ErrModelUnavailable = errors.New("mldetect: detector model unavailable")

// Tier names one of the two detector models.
type Tier string

const (
	// TierSmall is the fast, lower-recall model.
	TierSmall Tier = "small"
	// TierLarge is the slower, higher-recall model.
	TierLarge Tier = "large"
)

// Mode selects which tiers a detection pass runs.
type Mode string

const (
	// ModeSmall runs only the small model. This is the default; the large
	// model stays resident once loaded, so it is opt-in.
	ModeSmall Mode = "small"
	// ModeLarge runs only the large model.
	ModeLarge Mode = "large"
	// ModeHybrid runs the small model first and escalates to the large one.
	ModeHybrid Mode = "hybrid"
)

// Config holds detector settings.
type Config struct {
	ModelsDir     string         `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	Mode          Mode           `mapstructure:"mode" yaml:"mode" json:"mode"`
	InputSize     int            `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	ConfThreshold float32        `mapstructure:"conf_threshold" yaml:"conf_threshold" json:"conf_threshold"`
	IoUThreshold  float64        `mapstructure:"iou_threshold" yaml:"iou_threshold" json:"iou_threshold"`
	MaxRegions    int            `mapstructure:"max_regions" yaml:"max_regions" json:"max_regions"`
	NumThreads    int            `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	GPU           onnx.GPUConfig `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// DefaultConfig returns the standard detector settings.
func DefaultConfig() Config {
	return Config{
		ModelsDir:     models.GetModelsDir(""),
		Mode:          ModeSmall,
		InputSize:     640,
		ConfThreshold: 0.5,
		IoUThreshold:  0.45,
		MaxRegions:    15,
		NumThreads:    0,
		GPU:           onnx.DefaultGPUConfig(),
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeSmall, ModeLarge, ModeHybrid:
	default:
		return fmt.Errorf("mldetect: invalid mode %q", c.Mode)
	}
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		return fmt.Errorf("mldetect: input size must be a positive multiple of 32, got %d", c.InputSize)
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		return fmt.Errorf("mldetect: confidence threshold must be in [0,1], got %g", c.ConfThreshold)
	}
	if c.IoUThreshold <= 0 || c.IoUThreshold >= 1 {
		return fmt.Errorf("mldetect: IoU threshold must be in (0,1), got %g", c.IoUThreshold)
	}
	if c.MaxRegions <= 0 {
		return fmt.Errorf("mldetect: max regions must be positive, got %d", c.MaxRegions)
	}
	return onnx.ValidateGPUConfig(c.GPU)
}

// tiersFor returns the tiers a mode runs, in escalation order.
func (c Config) tiersFor() []Tier {
	switch c.Mode {
	case ModeSmall:
		return []Tier{TierSmall}
	case ModeLarge:
		return []Tier{TierLarge}
	default:
		return []Tier{TierSmall, TierLarge}
	}
}

func modelFile(tier Tier) string {
	if tier == TierLarge {
		return models.DetectorLarge
	}
	return models.DetectorSmall
}
