//go:build !windows

package onnx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/go-sentiprep/internal/testutil"
)

var _ GraphRunner = (*Session)(nil)

func TestOpenSession_MissingLibrary(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")

	if _, err := OpenSession(lib, 0, "model.onnx"); err == nil {
		t.Fatal("expected error for missing library")
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	lib := testutil.RequireONNXRuntime(t)
	model := testutil.RequireClassifierModel(t)

	s, err := OpenSession(lib, 0, model)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	s.Close()
	s.Close()
}

func TestClassifier_Integration(t *testing.T) {
	lib := testutil.RequireONNXRuntime(t)
	model := testutil.RequireClassifierModel(t)

	c, err := NewClassifier(ClassifierConfig{
		LibraryPath: lib,
		ModelPath:   model,
		InputName:   "input",
	})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	defer c.Close()

	rows := [][]int32{{0, 0, 1, 2}, {0, 3, 4, 5}}

	classes, err := c.Predict(context.Background(), rows)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(classes) != len(rows) {
		t.Fatalf("got %d classes for %d rows", len(classes), len(rows))
	}
	for i, cl := range classes {
		if cl != 0 && cl != 1 {
			t.Errorf("classes[%d] = %d; want 0 or 1", i, cl)
		}
	}
}
