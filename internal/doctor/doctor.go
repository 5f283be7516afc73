// Package doctor provides environment preflight checks for sentiprep.
package doctor

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/cpuid/v2"

	"github.com/example/go-sentiprep/internal/embedding"
	"github.com/example/go-sentiprep/internal/safetensors"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// RuntimeFunc locates the ONNX Runtime library and reports its version.
// An empty version means it could not be determined.
type RuntimeFunc func() (path, version string, err error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// InputFiles must exist and be readable.
	InputFiles []string
	// EmbeddingPath is probed for a parseable first vector.
	EmbeddingPath string
	// EmbeddingDim, when non-zero, must match the probed vector width.
	EmbeddingDim int
	// Runtime locates ONNX Runtime. Nil skips the check.
	Runtime RuntimeFunc
	// APIVersion is the ORT C API version the classifier requests.
	APIVersion uint32
	// ModelPath, when set, must exist.
	ModelPath string
	// BundlePath, when set and present, must hold the named tensors.
	BundlePath    string
	BundleTensors []string
	// DescribeBundle, when set, decodes the bundle and summarises it.
	DescribeBundle func(path string) (string, error)
	// CPU describes the host. Nil uses cpuid.
	CPU func() string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- input files -----------------------------------------------------
	for _, path := range cfg.InputFiles {
		if err := checkReadable(path); err != nil {
			res.fail(fmt.Sprintf("input file %q: %v", path, err))
			fmt.Fprintf(w, "%s input file %s: %v\n", FailMark, path, err)
		} else {
			fmt.Fprintf(w, "%s input file: %s\n", PassMark, path)
		}
	}

	// ---- embedding header ------------------------------------------------
	if cfg.EmbeddingPath != "" {
		dim, err := probeEmbedding(cfg.EmbeddingPath, cfg.EmbeddingDim)
		if err != nil {
			res.fail(fmt.Sprintf("embedding index: %v", err))
			fmt.Fprintf(w, "%s embedding index %s: %v\n", FailMark, cfg.EmbeddingPath, err)
		} else {
			fmt.Fprintf(w, "%s embedding index: %s (dim %d)\n", PassMark, cfg.EmbeddingPath, dim)
		}
	}

	// ---- ONNX Runtime ----------------------------------------------------
	if cfg.Runtime == nil {
		fmt.Fprintf(w, "%s onnx runtime: skipped\n", PassMark)
	} else {
		path, ver, err := cfg.Runtime()
		switch {
		case err != nil:
			res.fail(fmt.Sprintf("onnx runtime: %v", err))
			fmt.Fprintf(w, "%s onnx runtime: not found (%v)\n", FailMark, err)
		case ver == "":
			fmt.Fprintf(w, "%s onnx runtime: %s (version unknown)\n", PassMark, path)
		default:
			if vErr := checkRuntimeVersion(ver, cfg.APIVersion); vErr != nil {
				res.fail(fmt.Sprintf("onnx runtime version: %v", vErr))
				fmt.Fprintf(w, "%s onnx runtime %s: %v\n", FailMark, ver, vErr)
			} else {
				fmt.Fprintf(w, "%s onnx runtime: %s (%s)\n", PassMark, path, ver)
			}
		}
	}

	// ---- classifier model ------------------------------------------------
	if cfg.ModelPath != "" {
		if err := checkReadable(cfg.ModelPath); err != nil {
			res.fail(fmt.Sprintf("classifier model %q: %v", cfg.ModelPath, err))
			fmt.Fprintf(w, "%s classifier model %s: %v\n", FailMark, cfg.ModelPath, err)
		} else {
			fmt.Fprintf(w, "%s classifier model: %s\n", PassMark, cfg.ModelPath)
		}
	}

	// ---- tensor bundle ---------------------------------------------------
	if cfg.BundlePath != "" {
		if _, err := os.Stat(cfg.BundlePath); os.IsNotExist(err) {
			fmt.Fprintf(w, "%s tensor bundle: %s not written yet\n", PassMark, cfg.BundlePath)
		} else if summary, err := checkBundle(cfg.BundlePath, cfg.BundleTensors); err != nil {
			res.fail(fmt.Sprintf("tensor bundle: %v", err))
			fmt.Fprintf(w, "%s tensor bundle %s: %v\n", FailMark, cfg.BundlePath, err)
		} else {
			fmt.Fprintf(w, "%s tensor bundle: %s\n", PassMark, summary)
			if cfg.DescribeBundle != nil {
				if desc, err := cfg.DescribeBundle(cfg.BundlePath); err != nil {
					res.fail(fmt.Sprintf("tensor bundle contents: %v", err))
					fmt.Fprintf(w, "%s tensor bundle contents: %v\n", FailMark, err)
				} else {
					fmt.Fprintf(w, "%s tensor bundle contents: %s\n", PassMark, desc)
				}
			}
		}
	}

	// ---- CPU -------------------------------------------------------------
	describe := cfg.CPU
	if describe == nil {
		describe = DescribeCPU
	}
	fmt.Fprintf(w, "%s cpu: %s\n", PassMark, describe())

	return res
}

// DescribeCPU summarises the host CPU and the SIMD levels it supports.
func DescribeCPU() string {
	feats := []string{}
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.SSE4, "sse4.1"},
		{cpuid.AVX, "avx"},
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma"},
		{cpuid.AVX512F, "avx512f"},
		{cpuid.ASIMD, "neon"},
	} {
		if cpuid.CPU.Supports(f.id) {
			feats = append(feats, f.name)
		}
	}

	name := cpuid.CPU.BrandName
	if name == "" {
		name = "unknown cpu"
	}
	if len(feats) == 0 {
		return fmt.Sprintf("%s, %d logical cores", name, cpuid.CPU.LogicalCores)
	}
	return fmt.Sprintf("%s, %d logical cores [%s]", name, cpuid.CPU.LogicalCores, strings.Join(feats, " "))
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}
	return nil
}

func probeEmbedding(path string, dim int) (int, error) {
	idx, err := embedding.LoadIndex(path, embedding.WithDim(dim), embedding.WithLimit(1))
	if err != nil {
		return 0, err
	}
	if idx.Len() == 0 {
		return 0, fmt.Errorf("no vectors")
	}
	return idx.Dim(), nil
}

func checkBundle(path string, want []string) (string, error) {
	st, err := safetensors.OpenStore(path)
	if err != nil {
		return "", err
	}
	defer st.Close()

	names := st.Names()

	var missing []string
	for _, name := range want {
		if !slices.Contains(names, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing tensors %s", strings.Join(missing, ", "))
	}

	parts := make([]string, 0, len(names))
	for _, name := range names {
		info, err := st.Info(name)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s%v", name, info.Shape))
	}
	return fmt.Sprintf("%s [%s]", path, strings.Join(parts, " ")), nil
}

// checkRuntimeVersion returns an error unless ver is 1.x with x at least
// the requested C API version. ver is expected to be a string like "1.23.0".
func checkRuntimeVersion(ver string, api uint32) error {
	major, minor, err := parseMajorMinor(ver)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}
	if major != 1 {
		return fmt.Errorf("requires ONNX Runtime 1.x, got %d", major)
	}
	if api > 0 && minor < int(api) {
		return fmt.Errorf("C API version %d requires ONNX Runtime >=1.%d, got 1.%d", api, api, minor)
	}
	return nil
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	parts := strings.SplitN(ver, ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected version format %q", ver)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}
	return major, minor, nil
}
