package detections

import (
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sys/cpu"
)

type Device string

const (
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// DefaultLibraryPath returns the bundled ONNX Runtime library for this platform.
func DefaultLibraryPath() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join("lib", "libonnxruntime.1.20.0.dylib")
	case "windows":
		return filepath.Join("lib", "onnxruntime.dll")
	default:
		return filepath.Join("lib", "libonnxruntime.so.1.20.0")
	}
}

func cudaProviderName() string {
	if runtime.GOOS == "windows" {
		return "onnxruntime_providers_cuda.dll"
	}
	return "libonnxruntime_providers_cuda.so"
}

// CUDAAvailable reports whether the CUDA execution provider ships next to
// the runtime library. It only looks at the filesystem.
func CUDAAvailable(libPath string) bool {
	if libPath == "" || runtime.GOOS == "darwin" {
		return false
	}
	_, err := os.Stat(filepath.Join(filepath.Dir(libPath), cudaProviderName()))
	return err == nil
}

// ResolveDevice picks the compute device once at startup.
func ResolveDevice(forceCPU bool, libPath string) (Device, bool) {
	cudaAvailable := CUDAAvailable(libPath)
	if forceCPU || !cudaAvailable {
		return DeviceCPU, cudaAvailable
	}
	return DeviceCUDA, cudaAvailable
}

// CPUFeatures lists the SIMD extensions of the host that the runtime can use.
func CPUFeatures() []string {
	features := make([]string, 0, 4)
	switch runtime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasSSE41 {
			features = append(features, "sse4.1")
		}
		if cpu.X86.HasAVX2 {
			features = append(features, "avx2")
		}
		if cpu.X86.HasAVX512 {
			features = append(features, "avx512")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			features = append(features, "neon")
		}
		if cpu.ARM64.HasSVE {
			features = append(features, "sve")
		}
	}
	return features
}
