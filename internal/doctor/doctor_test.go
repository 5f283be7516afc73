package doctor_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-sentiprep/internal/doctor"
	"github.com/example/go-sentiprep/internal/safetensors"
	"github.com/example/go-sentiprep/internal/testutil"
)

func fixedCPU() string { return "test cpu" }

func foundRuntime(ver string) doctor.RuntimeFunc {
	return func() (string, string, error) { return "/opt/ort/libonnxruntime.so", ver, nil }
}

// ---------------------------------------------------------------------------
// all-pass scenario
// ---------------------------------------------------------------------------

func TestRun_AllChecksPass(t *testing.T) {
	c := testutil.WriteCorpus(t,
		[]string{"good"}, []string{"bad"}, []string{"1,meh"},
		[]string{"good 1 2 3"},
	)

	cfg := doctor.Config{
		InputFiles:    []string{c.Positive, c.Negative, c.Test},
		EmbeddingPath: c.Embeddings,
		EmbeddingDim:  3,
		Runtime:       foundRuntime("1.23.1"),
		APIVersion:    23,
		CPU:           fixedCPU,
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if result.Failed() {
		t.Errorf("expected all checks to pass; failures: %v", result.Failures())
	}

	for _, want := range []string{"dim 3", "1.23.1", "test cpu"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output should mention %q:\n%s", want, out.String())
		}
	}
}

// ---------------------------------------------------------------------------
// input files
// ---------------------------------------------------------------------------

func TestRun_MissingInputFileFails(t *testing.T) {
	cfg := doctor.Config{
		InputFiles: []string{"/nonexistent/train_pos.txt"},
		CPU:        fixedCPU,
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !result.Failed() {
		t.Fatal("expected failure for missing input file")
	}

	if !hasFailureContaining(result.Failures(), "train_pos.txt") {
		t.Errorf("expected failure mentioning the file, got: %v", result.Failures())
	}
}

func TestRun_DirectoryInputFails(t *testing.T) {
	cfg := doctor.Config{InputFiles: []string{t.TempDir()}, CPU: fixedCPU}

	var out strings.Builder
	if result := doctor.Run(cfg, &out); !result.Failed() {
		t.Fatal("expected failure for a directory input")
	}
}

// ---------------------------------------------------------------------------
// embedding header
// ---------------------------------------------------------------------------

func TestRun_EmbeddingChecks(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		lines    []string
		dim      int
		wantFail bool
	}{
		{"matching dim", []string{"", "a 1 2"}, 2, false},
		{"any dim", []string{"a 1 2 3 4"}, 0, false},
		{"dim mismatch", []string{"a 1 2"}, 3, true},
		{"bad float", []string{"a 1 x"}, 0, true},
		{"empty file", []string{""}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteLines(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".txt", tt.lines...)

			var out strings.Builder
			result := doctor.Run(doctor.Config{EmbeddingPath: path, EmbeddingDim: tt.dim, CPU: fixedCPU}, &out)

			if result.Failed() != tt.wantFail {
				t.Fatalf("Failed() = %v; want %v (output: %s)", result.Failed(), tt.wantFail, out.String())
			}
			if tt.wantFail && !hasFailureContaining(result.Failures(), "embedding") {
				t.Errorf("expected failure mentioning embedding, got: %v", result.Failures())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ONNX Runtime
// ---------------------------------------------------------------------------

func TestRun_RuntimeMissingFails(t *testing.T) {
	cfg := doctor.Config{
		Runtime: func() (string, string, error) { return "", "", errLibraryNotFound },
		CPU:     fixedCPU,
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !result.Failed() {
		t.Fatal("expected failure when ONNX Runtime is not found")
	}

	if !hasFailureContaining(result.Failures(), "onnx runtime") {
		t.Errorf("expected failure mentioning onnx runtime, got: %v", result.Failures())
	}
}

func TestRun_RuntimeVersions(t *testing.T) {
	tests := []struct {
		ver      string
		wantFail bool
	}{
		{"1.23.0", false},
		{"1.24.2", false},
		{"", false},
		{"1.22.0", true},
		{"2.0.0", true},
		{"latest", true},
	}

	for _, tt := range tests {
		t.Run("v"+tt.ver, func(t *testing.T) {
			cfg := doctor.Config{Runtime: foundRuntime(tt.ver), APIVersion: 23, CPU: fixedCPU}

			var out strings.Builder
			result := doctor.Run(cfg, &out)

			if result.Failed() != tt.wantFail {
				t.Errorf("version %q: Failed() = %v; want %v (%v)", tt.ver, result.Failed(), tt.wantFail, result.Failures())
			}
		})
	}
}

func TestRun_SkipRuntime(t *testing.T) {
	var out strings.Builder
	result := doctor.Run(doctor.Config{CPU: fixedCPU}, &out)

	if result.Failed() {
		t.Fatalf("unexpected failures: %v", result.Failures())
	}

	if !strings.Contains(out.String(), "onnx runtime: skipped") {
		t.Errorf("output should report skipped runtime:\n%s", out.String())
	}
}

// ---------------------------------------------------------------------------
// model and bundle
// ---------------------------------------------------------------------------

func TestRun_ModelMissingFails(t *testing.T) {
	cfg := doctor.Config{ModelPath: filepath.Join(t.TempDir(), "lstm.onnx"), CPU: fixedCPU}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "classifier model") {
		t.Errorf("expected classifier model failure, got: %v", result.Failures())
	}
}

func TestRun_BundleNotWrittenYetPasses(t *testing.T) {
	cfg := doctor.Config{BundlePath: filepath.Join(t.TempDir(), "lstm.safetensors"), CPU: fixedCPU}

	var out strings.Builder
	if result := doctor.Run(cfg, &out); result.Failed() {
		t.Fatalf("unexpected failures: %v", result.Failures())
	}
}

func TestRun_BundleChecks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lstm.safetensors")
	err := safetensors.WriteFile(path, []safetensors.Tensor{
		safetensors.Float32("embedding_matrix", []int64{2, 2}, []float32{0, 0, 1, 1}),
	}, nil)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out strings.Builder
	result := doctor.Run(doctor.Config{
		BundlePath:    path,
		BundleTensors: []string{"embedding_matrix"},
		CPU:           fixedCPU,
	}, &out)
	if result.Failed() {
		t.Fatalf("unexpected failures: %v", result.Failures())
	}
	if !strings.Contains(out.String(), "embedding_matrix[2 2]") {
		t.Errorf("output should list tensor shapes:\n%s", out.String())
	}

	result = doctor.Run(doctor.Config{
		BundlePath:    path,
		BundleTensors: []string{"embedding_matrix", "x_train"},
		CPU:           fixedCPU,
	}, &out)
	if !hasFailureContaining(result.Failures(), "x_train") {
		t.Errorf("expected failure for missing x_train, got: %v", result.Failures())
	}
}

func TestRun_BundleListsEveryTensor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lstm.safetensors")
	err := safetensors.WriteFile(path, []safetensors.Tensor{
		safetensors.Float32("embedding_matrix", []int64{2, 2}, []float32{0, 0, 1, 1}),
		safetensors.Int32("x_train", []int64{1, 3}, []int32{0, 1, 1}),
	}, nil)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out strings.Builder
	result := doctor.Run(doctor.Config{
		BundlePath:    path,
		BundleTensors: []string{"embedding_matrix"},
		CPU:           fixedCPU,
	}, &out)
	if result.Failed() {
		t.Fatalf("unexpected failures: %v", result.Failures())
	}
	if !strings.Contains(out.String(), "embedding_matrix[2 2] x_train[1 3]") {
		t.Errorf("output should list every stored tensor in name order:\n%s", out.String())
	}
}

func TestRun_DescribeBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lstm.safetensors")
	err := safetensors.WriteFile(path, []safetensors.Tensor{
		safetensors.Float32("embedding_matrix", []int64{2, 2}, []float32{0, 0, 1, 1}),
	}, nil)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out strings.Builder
	result := doctor.Run(doctor.Config{
		BundlePath:     path,
		DescribeBundle: func(string) (string, error) { return "1 train row", nil },
		CPU:            fixedCPU,
	}, &out)
	if result.Failed() || !strings.Contains(out.String(), "tensor bundle contents: 1 train row") {
		t.Errorf("failures %v, output:\n%s", result.Failures(), out.String())
	}

	result = doctor.Run(doctor.Config{
		BundlePath:     path,
		DescribeBundle: func(string) (string, error) { return "", errLibraryNotFound },
		CPU:            fixedCPU,
	}, &out)
	if !hasFailureContaining(result.Failures(), "tensor bundle contents") {
		t.Errorf("expected contents failure, got: %v", result.Failures())
	}
}

// ---------------------------------------------------------------------------
// markers and CPU
// ---------------------------------------------------------------------------

func TestRun_OutputContainsPassAndFailMarkers(t *testing.T) {
	cfg := doctor.Config{
		InputFiles: []string{"/nonexistent/a.txt"},
		Runtime:    foundRuntime("1.23.0"),
		APIVersion: 23,
		CPU:        fixedCPU,
	}

	var out strings.Builder
	doctor.Run(cfg, &out)

	if !strings.Contains(out.String(), doctor.PassMark) {
		t.Error("output should contain a pass marker")
	}

	if !strings.Contains(out.String(), doctor.FailMark) {
		t.Error("output should contain a fail marker")
	}
}

func TestDescribeCPU(t *testing.T) {
	if got := doctor.DescribeCPU(); !strings.Contains(got, "logical cores") {
		t.Errorf("DescribeCPU() = %q", got)
	}
}

func TestResult_AddFailure(t *testing.T) {
	var r doctor.Result
	r.AddFailure("external")

	if !r.Failed() || r.Failures()[0] != "external" {
		t.Errorf("Failures() = %v", r.Failures())
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func hasFailureContaining(failures []string, substr string) bool {
	for _, f := range failures {
		if strings.Contains(strings.ToLower(f), strings.ToLower(substr)) {
			return true
		}
	}

	return false
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

var errLibraryNotFound = sentinelError("library not found")
