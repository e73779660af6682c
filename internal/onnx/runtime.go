package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath overrides the ONNX Runtime shared library location.
const EnvLibraryPath = "QRSCAN_ONNX_LIB"

var initMu sync.Mutex

// libraryName returns the platform-specific ONNX Runtime library filename.
func libraryName() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// findProjectRoot walks up from the working directory looking for go.mod or
// a bundled onnxruntime directory.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "onnxruntime")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root containing onnxruntime")
		}
		dir = parent
	}
}

func trySetLibraryPath(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	onnxruntime_go.SetSharedLibraryPath(path)
	return true
}

// SetLibraryPath locates the ONNX Runtime shared library and registers it
// with the runtime bindings. The QRSCAN_ONNX_LIB environment variable wins;
// otherwise common system locations and the project-relative bundle are tried.
func SetLibraryPath(useGPU bool) error {
	if env := os.Getenv(EnvLibraryPath); env != "" {
		if trySetLibraryPath(env) {
			return nil
		}
		return fmt.Errorf("ONNX Runtime library not found at %s=%s", EnvLibraryPath, env)
	}

	libName, err := libraryName()
	if err != nil {
		return err
	}

	systemDirs := []string{"/usr/local/lib", "/usr/lib", "/opt/onnxruntime/lib"}
	for _, dir := range systemDirs {
		if trySetLibraryPath(filepath.Join(dir, libName)) {
			return nil
		}
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return err
	}
	if useGPU {
		if trySetLibraryPath(filepath.Join(projectRoot, "onnxruntime", "gpu", "lib", libName)) {
			return nil
		}
	}
	libPath := filepath.Join(projectRoot, "onnxruntime", "lib", libName)
	if !trySetLibraryPath(libPath) {
		return fmt.Errorf("ONNX Runtime library not found at %s", libPath)
	}
	return nil
}

// EnsureInitialized sets the library path and initializes the ONNX Runtime
// environment exactly once per process. Safe for concurrent callers.
func EnsureInitialized(useGPU bool) error {
	initMu.Lock()
	defer initMu.Unlock()

	if onnxruntime_go.IsInitialized() {
		return nil
	}
	if err := SetLibraryPath(useGPU); err != nil {
		return fmt.Errorf("failed to set ONNX Runtime library path: %w", err)
	}
	if err := onnxruntime_go.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	return nil
}
