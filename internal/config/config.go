// Package config holds the application configuration and its loading from
// files, environment variables and flags.
package config

import (
	"fmt"
	"strings"

	"github.com/recibo-tech/qrscan/internal/cascade"
)

// Config is the complete configuration for the qrscan application. It can be
// loaded from configuration files, environment variables and command-line
// flags, in ascending precedence.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Scan cascade configuration
	Scan cascade.Config `mapstructure:"scan" yaml:"scan" json:"scan"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// OutputConfig controls how scan results are printed.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"` // text or json
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Scan:     cascade.DefaultConfig(),
		Output:   OutputConfig{Format: "text"},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", c.LogLevel)
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid output format %q (expected text or json)", c.Output.Format)
	}
	return c.Scan.Validate()
}
