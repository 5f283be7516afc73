package report

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/example/go-sentiprep/internal/pipeline"
	"github.com/example/go-sentiprep/internal/testutil"
)

func prepared(t *testing.T) (pipeline.Config, *pipeline.Prepared) {
	t.Helper()

	c := testutil.WriteCorpus(t,
		[]string{"good day", "so good"},
		[]string{"bad day", "so bad"},
		[]string{"1,good", "2,bad"},
		[]string{"good 1 0", "bad 0 1"},
	)
	cfg := pipeline.Config{
		PositivePath:      c.Positive,
		NegativePath:      c.Negative,
		TestPath:          c.Test,
		EmbeddingPath:     c.Embeddings,
		MaxWords:          50,
		MaxSequenceLength: 5,
		EmbeddingDim:      2,
		ValidationSplit:   0.5,
		Seed:              3,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prep, err := pipeline.New(cfg, pipeline.WithLogger(logger)).Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	return cfg, prep
}

func TestNew(t *testing.T) {
	cfg, prep := prepared(t)

	r := New("", "lstm", cfg, prep)

	if _, err := uuid.Parse(r.RunID); err != nil {
		t.Errorf("RunID %q is not a uuid: %v", r.RunID, err)
	}
	if r.Corpus != (Corpus{Positive: 2, Negative: 2, Test: 2}) {
		t.Errorf("Corpus = %+v", r.Corpus)
	}
	if r.Split.Train != 2 || r.Split.Val != 2 {
		t.Errorf("Split = %+v; want 2/2", r.Split)
	}
	if r.Embedding.Dim != 2 || r.Embedding.Found != 2 {
		t.Errorf("Embedding = %+v", r.Embedding)
	}
	if len(r.Stages) != len(prep.Stats.Stages) {
		t.Errorf("len(Stages) = %d; want %d", len(r.Stages), len(prep.Stats.Stages))
	}
}

func TestNew_KeepsGivenRunID(t *testing.T) {
	cfg, prep := prepared(t)

	if r := New("fixed", "lstm", cfg, prep); r.RunID != "fixed" {
		t.Errorf("RunID = %q; want fixed", r.RunID)
	}
}

func TestEncodeDecode(t *testing.T) {
	cfg, prep := prepared(t)
	r := New("run-1", "lstm", cfg, prep)

	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	for _, key := range []string{"run_id: run-1", "max_nb_words: 50", "zero_rows:", "validation_split: 0.5"} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("YAML missing %q:\n%s", key, buf.String())
		}
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.RunID != r.RunID || got.Config != r.Config || got.Embedding != r.Embedding {
		t.Errorf("decoded %+v; want %+v", got, r)
	}
	if !got.CreatedAt.Equal(r.CreatedAt) {
		t.Errorf("CreatedAt = %v; want %v", got.CreatedAt, r.CreatedAt)
	}
}

func TestWriteReadFile(t *testing.T) {
	cfg, prep := prepared(t)
	path := filepath.Join(t.TempDir(), "out", "lstm.run.yaml")

	if err := WriteFile(path, New("", "lstm", cfg, prep)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.ModelName != "lstm" {
		t.Errorf("ModelName = %q", got.ModelName)
	}
}

func TestWriteFile_FailureLeavesNoTempFile(t *testing.T) {
	cfg, prep := prepared(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "lstm.run.yaml")

	// A directory in the way makes the final rename fail.
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	if err := WriteFile(path, New("", "lstm", cfg, prep)); err == nil {
		t.Fatal("expected error when the report path is a directory")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "lstm.run.yaml" {
		t.Errorf("dir holds %v; want only the blocking directory", entries)
	}
}
