package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-sentiprep/internal/config"
	"github.com/example/go-sentiprep/internal/errdefs"
	"github.com/example/go-sentiprep/internal/learner"
	"github.com/example/go-sentiprep/internal/pipeline"
	"github.com/example/go-sentiprep/internal/report"
	"github.com/example/go-sentiprep/internal/store"
	"github.com/example/go-sentiprep/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// configFor mirrors fixtureArgs as a config value.
func configFor(c testutil.Corpus) config.Config {
	cfg := config.DefaultConfig()
	out := filepath.Join(c.Dir, "out")

	cfg.Data = config.DataConfig{
		TrainDataFilePos: c.Positive,
		TrainDataFileNeg: c.Negative,
		TestDataFile:     c.Test,
		EmbeddingDir:     c.Embeddings,
	}
	cfg.Preprocess.EmbeddingDim = 2
	cfg.Preprocess.MaxSequenceLength = 5
	cfg.Preprocess.MaxNbWords = 100
	cfg.Output = config.OutputConfig{
		Dir:             out,
		PredictionsPath: filepath.Join(out, "predictions.csv"),
		VocabDB:         filepath.Join(out, "vocab.db"),
	}

	return cfg
}

func TestPrepareCmd_WritesArtifacts(t *testing.T) {
	c, args := fixtureArgs(t)

	out, err := execute(t, append([]string{"prepare"}, args...)...)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	for _, want := range []string{"3 positive, 3 negative, 2 test", "5 train, 1 validation"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	dir := filepath.Join(c.Dir, "out")
	set, md, err := learner.ReadBundle(filepath.Join(dir, "lstm.safetensors"))
	if err != nil {
		t.Fatalf("ReadBundle: %v", err)
	}
	if len(set.XTrain) != 5 || len(set.XVal) != 1 || len(set.Test) != 2 {
		t.Errorf("bundle rows = %d/%d/%d; want 5/1/2", len(set.XTrain), len(set.XVal), len(set.Test))
	}
	if len(set.XTrain[0]) != 5 {
		t.Errorf("row width = %d; want 5", len(set.XTrain[0]))
	}

	rep, err := report.ReadFile(filepath.Join(dir, "lstm.run.yaml"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if rep.RunID != md["run_id"] {
		t.Errorf("report run %q != bundle run %q", rep.RunID, md["run_id"])
	}
	if len(rep.Stages) != 8 || rep.Stages[7].Name != "train" {
		t.Errorf("stages = %+v; want seven pipeline stages then train", rep.Stages)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(dir, "vocab.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	run, err := st.LatestRun(ctx, "lstm")
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run.RunID != rep.RunID {
		t.Errorf("stored run %q != report run %q", run.RunID, rep.RunID)
	}
}

func TestRunPrepare_NoStore(t *testing.T) {
	c := testutil.WriteCorpus(t, []string{"good"}, []string{"bad"}, []string{"1,ok"}, []string{"good 1 1"})
	cfg := configFor(c)

	_, err := runPrepare(context.Background(), cfg, prepareOptions{SkipStore: true, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("runPrepare: %v", err)
	}

	if _, err := os.Stat(cfg.Output.VocabDB); !os.IsNotExist(err) {
		t.Errorf("vocabulary store should not exist, stat err = %v", err)
	}
}

func TestRunPrepare_FailureWritesNothing(t *testing.T) {
	c := testutil.WriteCorpus(t, []string{"good"}, []string{"bad"}, []string{"no comma here"}, []string{"good 1 1"})
	cfg := configFor(c)

	_, err := runPrepare(context.Background(), cfg, prepareOptions{Logger: quietLogger()})
	if !errors.Is(err, errdefs.ErrMalformedRecord) {
		t.Fatalf("error = %v; want ErrMalformedRecord", err)
	}

	if _, err := os.Stat(cfg.Output.Dir); !os.IsNotExist(err) {
		t.Errorf("output dir should not exist after a failed run, stat err = %v", err)
	}
}

func TestRunPrepare_StoreFailureWritesNothing(t *testing.T) {
	c := testutil.WriteCorpus(t, []string{"good"}, []string{"bad"}, []string{"1,ok"}, []string{"good 1 1"})
	cfg := configFor(c)

	blocker := testutil.WriteLines(t, c.Dir, "blocker")
	cfg.Output.VocabDB = filepath.Join(blocker, "vocab.db")

	_, err := runPrepare(context.Background(), cfg, prepareOptions{Logger: quietLogger()})

	var se *pipeline.StageError
	if !errors.As(err, &se) || se.Stage != pipeline.StageStore {
		t.Fatalf("error = %v; want a store StageError", err)
	}
	if se.Path != cfg.Output.VocabDB {
		t.Errorf("StageError.Path = %q; want %q", se.Path, cfg.Output.VocabDB)
	}

	if _, err := os.Stat(cfg.Output.Dir); !os.IsNotExist(err) {
		t.Errorf("output dir should not exist after a failed run, stat err = %v", err)
	}
}

func TestRunPrepare_ReportFailureRemovesBundle(t *testing.T) {
	c := testutil.WriteCorpus(t, []string{"good"}, []string{"bad"}, []string{"1,ok"}, []string{"good 1 1"})
	cfg := configFor(c)

	reportPath := filepath.Join(cfg.Output.Dir, cfg.Model.ModelName+".run.yaml")
	if err := os.MkdirAll(reportPath, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	_, err := runPrepare(context.Background(), cfg, prepareOptions{Logger: quietLogger()})

	var se *pipeline.StageError
	if !errors.As(err, &se) || se.Stage != pipeline.StageReport {
		t.Fatalf("error = %v; want a report StageError", err)
	}

	entries, err := os.ReadDir(cfg.Output.Dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != filepath.Base(reportPath) {
			t.Errorf("left behind: %s", e.Name())
		}
	}
}

func TestPrepareCmd_InvalidConfig(t *testing.T) {
	_, args := fixtureArgs(t)

	_, err := execute(t, append([]string{"prepare", "--validation-split=0"}, args...)...)
	if !errors.Is(err, errdefs.ErrInvalidFraction) {
		t.Fatalf("error = %v; want ErrInvalidFraction", err)
	}
}
