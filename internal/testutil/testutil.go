// Package testutil provides fixture writers and skip helpers shared by the
// package tests.
//
// Each Require helper calls t.Skip with a clear reason when the named
// prerequisite is absent, so integration tests stay runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestClassifierIntegration(t *testing.T) {
//	    lib := testutil.RequireONNXRuntime(t)
//	    model := testutil.RequireClassifierModel(t)
//	    ...
//	}
package testutil

import (
	"os"
	"testing"
)

// RequireONNXRuntime skips the test if no ONNX Runtime shared library can be
// located and returns the path otherwise. It checks (in order): the
// ORT_LIBRARY_PATH env var, then SENTIPREP_ORT_LIB, then common system
// library paths.
func RequireONNXRuntime(tb testing.TB) string {
	tb.Helper()

	for _, env := range []string{"ORT_LIBRARY_PATH", "SENTIPREP_ORT_LIB"} {
		if p := os.Getenv(env); p != "" {
			if _, err := os.Stat(p); err == nil {
				return p
			}

			tb.Skipf("ONNX Runtime library not found at %s=%q", env, p)
		}
	}

	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	tb.Skip("ONNX Runtime shared library not found; set ORT_LIBRARY_PATH or SENTIPREP_ORT_LIB")

	return ""
}

// RequireClassifierModel skips the test unless SENTIPREP_TEST_MODEL points at
// an exported sentiment classifier (.onnx) and returns its path.
func RequireClassifierModel(tb testing.TB) string {
	tb.Helper()

	p := os.Getenv("SENTIPREP_TEST_MODEL")
	if p == "" {
		tb.Skip("SENTIPREP_TEST_MODEL not set; skipping classifier integration test")
	}
	if _, err := os.Stat(p); err != nil {
		tb.Skipf("classifier model not found at SENTIPREP_TEST_MODEL=%q", p)
	}

	return p
}
