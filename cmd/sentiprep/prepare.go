package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/example/go-sentiprep/internal/bench"
	"github.com/example/go-sentiprep/internal/config"
	"github.com/example/go-sentiprep/internal/learner"
	"github.com/example/go-sentiprep/internal/pipeline"
	"github.com/example/go-sentiprep/internal/report"
	"github.com/example/go-sentiprep/internal/store"
)

func newPrepareCmd() *cobra.Command {
	var skipStore bool

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Preprocess the corpora and write the tensor bundle for training",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireValidConfig()
			if err != nil {
				return err
			}

			res, err := runPrepare(cmd.Context(), cfg, prepareOptions{SkipStore: skipStore})
			if err != nil {
				return err
			}

			printPrepareSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipStore, "no-store", false, "Do not record the vocabulary in the SQLite store")

	return cmd
}

type prepareOptions struct {
	SkipStore bool
	Logger    *slog.Logger
}

type prepareResult struct {
	RunID      string
	BundlePath string
	ReportPath string
	Prepared   *pipeline.Prepared
}

// runPrepare runs the pipeline, trains the bundle learner, writes the run
// report and persists the vocabulary. On error every file it wrote is
// removed again.
func runPrepare(ctx context.Context, cfg config.Config, opts prepareOptions) (res prepareResult, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pcfg := cfg.PipelineConfig()
	rec := &bench.Recorder{}

	prep, err := pipeline.New(pcfg, pipeline.WithLogger(logger), pipeline.WithRecorder(rec)).Prepare(ctx)
	if err != nil {
		return prepareResult{}, err
	}

	var (
		written []string
		dirs    = missingDirs(cfg.Output.Dir, filepath.Dir(cfg.Output.VocabDB))
		st      *store.Store
	)
	defer func() {
		if st != nil {
			_ = st.Close()
		}
		if err == nil {
			return
		}
		for i := len(written) - 1; i >= 0; i-- {
			_ = os.Remove(written[i])
		}
		for _, d := range dirs {
			_ = os.Remove(d) // only succeeds when empty
		}
	}()

	if !opts.SkipStore {
		if !exists(cfg.Output.VocabDB) {
			written = append(written, cfg.Output.VocabDB)
		}
		if st, err = openStore(ctx, cfg.Output.VocabDB); err != nil {
			return prepareResult{}, &pipeline.StageError{Stage: pipeline.StageStore, Path: cfg.Output.VocabDB, Err: err}
		}
	}

	runID := report.NewRunID()
	bundle := learner.New(cfg.Output.Dir, cfg.Model.ModelName,
		learner.WithLogger(logger),
		learner.WithMetadata(map[string]string{"run_id": runID}),
	)
	defer bundle.Close()

	reportPath := filepath.Join(cfg.Output.Dir, cfg.Model.ModelName+".run.yaml")

	err = rec.Time(ctx, pipeline.StageTrain, func(ctx context.Context) error {
		return pipeline.Train(ctx, bundle, prep)
	})
	if err != nil {
		return prepareResult{}, err
	}
	written = append(written, bundle.Path())
	prep.Stats.Stages = rec.Stages()

	rep := report.New(runID, cfg.Model.ModelName, pcfg, prep)
	rep.Bundle = bundle.Path()
	if err = report.WriteFile(reportPath, rep); err != nil {
		return prepareResult{}, &pipeline.StageError{Stage: pipeline.StageReport, Path: reportPath, Err: err}
	}
	written = append(written, reportPath)

	if st != nil {
		err = st.SaveVocabulary(ctx, store.Run{
			RunID:      runID,
			ModelName:  cfg.Model.ModelName,
			MaxNbWords: cfg.Preprocess.MaxNbWords,
		}, prep.Vocabulary)
		if err != nil {
			return prepareResult{}, &pipeline.StageError{Stage: pipeline.StageStore, Path: cfg.Output.VocabDB, Err: err}
		}
	}

	logger.Info("prepare complete",
		"run_id", runID,
		"bundle", bundle.Path(),
		"report", reportPath,
		"elapsed", rec.Total())

	return prepareResult{
		RunID:      runID,
		BundlePath: bundle.Path(),
		ReportPath: reportPath,
		Prepared:   prep,
	}, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// missingDirs returns every directory in paths, or ancestor of one, that
// does not exist yet, deepest first.
func missingDirs(paths ...string) []string {
	var out []string
	for _, p := range paths {
		for d := filepath.Clean(p); d != "." && d != filepath.Dir(d) && !exists(d); d = filepath.Dir(d) {
			if !slices.Contains(out, d) {
				out = append(out, d)
			}
		}
	}
	slices.SortFunc(out, func(a, b string) int { return len(b) - len(a) })
	return out
}

func openStore(ctx context.Context, path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return store.Open(ctx, path)
}

func printPrepareSummary(w io.Writer, res prepareResult) {
	st := res.Prepared.Stats
	fmt.Fprintf(w, "run:        %s\n", res.RunID)
	fmt.Fprintf(w, "corpora:    %d positive, %d negative, %d test\n", st.Positive, st.Negative, st.Test)
	fmt.Fprintf(w, "vocabulary: %d unique tokens\n", st.Tokens)
	fmt.Fprintf(w, "embedding:  %d rows, %d null\n", st.Matrix.Rows, st.Matrix.ZeroRows)
	fmt.Fprintf(w, "split:      %d train, %d validation\n", st.TrainRows, st.ValRows)
	fmt.Fprintf(w, "bundle:     %s\n", res.BundlePath)
	fmt.Fprintf(w, "report:     %s\n", res.ReportPath)
}
