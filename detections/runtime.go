package detections

import (
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	runtimeMu    sync.Mutex
	runtimeUsers int
)

// DefaultRuntimeLibrary returns the onnxruntime shared library shipped in
// lib/ for the current platform.
func DefaultRuntimeLibrary() string {
	switch runtime.GOOS {
	case "darwin":
		return "lib/libonnxruntime.1.20.0.dylib"
	case "windows":
		return "lib/onnxruntime.dll"
	default:
		return "lib/libonnxruntime.so.1.20.0"
	}
}

// acquireRuntime initializes the process-wide onnxruntime environment on
// first use. Every successful call must be paired with releaseRuntime.
func acquireRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if runtimeUsers == 0 {
		if libPath == "" {
			libPath = DefaultRuntimeLibrary()
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return err
		}
	}
	runtimeUsers++
	return nil
}

func releaseRuntime() {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if runtimeUsers == 0 {
		return
	}
	runtimeUsers--
	if runtimeUsers == 0 {
		ort.DestroyEnvironment()
	}
}
