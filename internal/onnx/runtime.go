package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/example/go-sentiprep/internal/config"
)

// RuntimeInfo describes the ONNX Runtime library a classifier would load.
// Source names where LibraryPath came from.
type RuntimeInfo struct {
	LibraryPath string
	Version     string
	Source      string
}

var errRuntimeNotFound = errors.New("onnx runtime library not found; set runtime.ort_library_path or SENTIPREP_ORT_LIB")

var libVersion = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

var systemLibraries = []string{
	"/usr/lib/libonnxruntime.so",
	"/usr/local/lib/libonnxruntime.so",
	"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	"/opt/homebrew/lib/libonnxruntime.dylib",
	"C:/onnxruntime/lib/onnxruntime.dll",
}

// DetectRuntime picks the first configured library path in order: config,
// SENTIPREP_ORT_LIB, ORT_LIBRARY_PATH, then the system locations. A
// configured path must exist; it is never skipped in favour of a later one.
func DetectRuntime(cfg config.RuntimeConfig) (RuntimeInfo, error) {
	info := RuntimeInfo{Version: "unknown"}

	for _, c := range []struct{ source, path string }{
		{"config", cfg.ORTLibraryPath},
		{"SENTIPREP_ORT_LIB", os.Getenv("SENTIPREP_ORT_LIB")},
		{"ORT_LIBRARY_PATH", os.Getenv("ORT_LIBRARY_PATH")},
	} {
		if c.path != "" {
			info.LibraryPath, info.Source = c.path, c.source
			break
		}
	}

	if info.LibraryPath == "" {
		for _, p := range systemLibraries {
			if _, err := os.Stat(p); err == nil {
				info.LibraryPath, info.Source = p, "system"
				break
			}
		}
	}
	if info.LibraryPath == "" {
		info.LibraryPath = "not found"
		return info, errRuntimeNotFound
	}

	if _, err := os.Stat(info.LibraryPath); err != nil {
		return info, fmt.Errorf("onnx runtime library from %s: %w", info.Source, err)
	}

	switch {
	case cfg.ORTVersion != "":
		info.Version = cfg.ORTVersion
	case os.Getenv("ORT_VERSION") != "":
		info.Version = os.Getenv("ORT_VERSION")
	default:
		if m := libVersion.FindStringSubmatch(filepath.Base(info.LibraryPath)); m != nil {
			info.Version = m[1]
		}
	}

	return info, nil
}
