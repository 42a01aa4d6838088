package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	onnxrt "github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath points at an explicit ONNX Runtime shared library.
const EnvLibraryPath = "FACESCAN_ONNXRUNTIME_LIB"

var runtimeMu sync.Mutex

// getLibraryName returns the shared library filename for goos.
func getLibraryName(goos string) (string, error) {
	switch goos {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// getSystemLibraryPaths returns system library paths to try, GPU builds first
// when useGPU is set.
func getSystemLibraryPaths(useGPU bool) []string {
	paths := []string{
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
	}
	if useGPU {
		return append([]string{"/opt/onnxruntime/gpu/lib/libonnxruntime.so"}, paths...)
	}
	return paths
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root")
		}
		dir = parent
	}
}

// candidateLibraryPaths lists every location checked for the shared library,
// in priority order.
func candidateLibraryPaths(useGPU bool) []string {
	var candidates []string
	if env := os.Getenv(EnvLibraryPath); env != "" {
		candidates = append(candidates, env)
	}
	candidates = append(candidates, getSystemLibraryPaths(useGPU)...)

	libName, err := getLibraryName(runtime.GOOS)
	if err != nil {
		return candidates
	}
	if root, err := findProjectRoot(); err == nil {
		if useGPU {
			candidates = append(candidates, filepath.Join(root, "onnxruntime", "gpu", "lib", libName))
		}
		candidates = append(candidates, filepath.Join(root, "onnxruntime", "lib", libName))
	}
	return candidates
}

// FindLibraryPath returns the first existing ONNX Runtime shared library.
func FindLibraryPath(useGPU bool) (string, error) {
	candidates := candidateLibraryPaths(useGPU)
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("ONNX Runtime library not found (tried %d locations)", len(candidates))
}

// InitializeRuntime locates the shared library and initialises the ONNX
// Runtime environment once per process.
func InitializeRuntime(useGPU bool) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if onnxrt.IsInitialized() {
		return nil
	}
	libPath, err := FindLibraryPath(useGPU)
	if err != nil {
		return fmt.Errorf("onnx lib path: %w", err)
	}
	slog.Debug("using ONNX Runtime library", "path", libPath)
	onnxrt.SetSharedLibraryPath(libPath)
	if err := onnxrt.InitializeEnvironment(); err != nil {
		return fmt.Errorf("init onnx: %w", err)
	}
	return nil
}

// DestroyRuntime tears down the ONNX Runtime environment if it was initialised.
func DestroyRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !onnxrt.IsInitialized() {
		return nil
	}
	return onnxrt.DestroyEnvironment()
}
