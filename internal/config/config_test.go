package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadOutputFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadScanConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.MaxEdge = 1
	assert.Error(t, cfg.Validate())
}

func freshLoader() *Loader {
	return &Loader{v: viper.New()}
}

func TestLoaderDefaults(t *testing.T) {
	cfg, err := freshLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, []string{"goqr", "zxing-hybrid", "zxing-global"}, cfg.Scan.Decoders)
	assert.True(t, cfg.Scan.DetectorEnabled)
	assert.Equal(t, 800*time.Millisecond, cfg.Scan.Fallback.Timeout)
}

func TestLoaderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qrscan.yaml")
	content := `
log_level: debug
output:
  format: json
scan:
  detector_enabled: false
  fallback:
    timeout: 1500ms
  decoders:
    - goqr
    - zxing-multi
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := freshLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.False(t, cfg.Scan.DetectorEnabled)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scan.Fallback.Timeout)
	assert.Equal(t, []string{"goqr", "zxing-multi"}, cfg.Scan.Decoders)
}

func TestLoaderRejectsMissingFile(t *testing.T) {
	_, err := freshLoader().LoadWithFile("/nonexistent/qrscan.yaml")
	assert.Error(t, err)
}

func TestLoaderRejectsInvalidFileContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qrscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: silent\n"), 0o600))

	_, err := freshLoader().LoadWithFile(path)
	assert.Error(t, err)
}

func TestLoaderEnvOverride(t *testing.T) {
	t.Setenv("QRSCAN_LOG_LEVEL", "warn")

	cfg, err := freshLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qrscan.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := freshLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}
