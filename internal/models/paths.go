package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model name constants to avoid typos and ensure consistency.
const (
	// QR region detection models (YOLO-style, ONNX).
	DetectorSmall = "qr_detector_small.onnx"
	DetectorLarge = "qr_detector_large.onnx"
)

// Default models directory.
const DefaultModelsDir = "models"

// Environment variable for models directory override.
const EnvModelsDir = "QRSCAN_MODELS_DIR"

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree looking for go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// GetModelsDir resolves the models directory using the override, the
// QRSCAN_MODELS_DIR environment variable, or the default, in that order.
// Relative defaults are anchored at the project root when one can be found.
func GetModelsDir(override string) string {
	if override != "" {
		return override
	}
	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}
	if root, err := findProjectRoot(); err == nil {
		return filepath.Join(root, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// DetectorModelPath returns the path of the named detector model inside dir.
func DetectorModelPath(dir, name string) string {
	return filepath.Join(GetModelsDir(dir), name)
}

// ValidateModelFile checks that a model file exists and is a regular file.
func ValidateModelFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("model file not accessible: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("model path is a directory: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("model file is empty: %s", path)
	}
	return nil
}
