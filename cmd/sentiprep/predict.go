package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/example/go-sentiprep/internal/config"
	"github.com/example/go-sentiprep/internal/errdefs"
	"github.com/example/go-sentiprep/internal/learner"
	"github.com/example/go-sentiprep/internal/onnx"
	"github.com/example/go-sentiprep/internal/pipeline"
	"github.com/example/go-sentiprep/internal/predictions"
	"github.com/example/go-sentiprep/internal/store"
	"github.com/example/go-sentiprep/internal/tokenizer"
)

func newPredictCmd() *cobra.Command {
	var skipVocabCheck bool

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score the test set with the exported classifier and write predictions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireValidConfig()
			if err != nil {
				return err
			}

			dtype := onnx.DTypeInt64
			if cfg.Model.InputDType != "" {
				if dtype, err = onnx.ParseDType(cfg.Model.InputDType); err != nil {
					return err
				}
			}

			info, err := onnx.DetectRuntime(cfg.Runtime)
			if err != nil {
				return fmt.Errorf("%w: %w", errdefs.ErrResource, err)
			}
			slog.Debug("onnx runtime", "path", info.LibraryPath, "version", info.Version, "source", info.Source)

			bundle := learner.New(cfg.Output.Dir, cfg.Model.ModelName,
				learner.WithClassifier(onnx.ClassifierConfig{
					LibraryPath: info.LibraryPath,
					APIVersion:  cfg.Runtime.ORTAPIVersion,
					ModelPath:   cfg.Model.ModelPath,
					InputName:   cfg.Model.InputName,
					OutputName:  cfg.Model.OutputName,
					InputDType:  dtype,
					BatchSize:   cfg.Model.BatchSize,
				}),
			)
			defer bundle.Close()

			n, err := runPredict(cmd.Context(), cfg, bundle, predictOptions{SkipVocabCheck: skipVocabCheck})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d predictions to %s\n", n, cfg.Output.PredictionsPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipVocabCheck, "skip-vocab-check", false, "Do not compare against the stored vocabulary")

	return cmd
}

type predictOptions struct {
	SkipVocabCheck bool
	Logger         *slog.Logger
}

// errVocabularyDrift means the vocabulary fitted now differs from the one
// stored by the last prepare run, so ids would not match the trained model.
var errVocabularyDrift = errors.New("vocabulary differs from the stored run")

// runPredict prepares the test set, scores it with l and writes the CSV.
// It returns the number of predictions written.
func runPredict(ctx context.Context, cfg config.Config, l pipeline.Learner, opts predictOptions) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	prep, err := pipeline.New(cfg.PipelineConfig(), pipeline.WithLogger(logger)).Prepare(ctx)
	if err != nil {
		return 0, err
	}

	if !opts.SkipVocabCheck {
		if err := checkStoredVocabulary(ctx, cfg, prep.Vocabulary, logger); err != nil {
			return 0, err
		}
	}

	classes, err := pipeline.Predict(ctx, l, prep)
	if err != nil {
		return 0, err
	}

	if err := predictions.WriteFile(cfg.Output.PredictionsPath, prep.Test.IDs, classes); err != nil {
		return 0, &pipeline.StageError{Stage: pipeline.StagePredict, Path: cfg.Output.PredictionsPath, Err: err}
	}

	logger.Info("predictions written", "path", cfg.Output.PredictionsPath, "rows", len(classes))
	return len(classes), nil
}

// checkStoredVocabulary compares v with the latest stored run for the
// model. A missing store or run is logged and tolerated.
func checkStoredVocabulary(ctx context.Context, cfg config.Config, v *tokenizer.Vocabulary, logger *slog.Logger) error {
	if _, err := os.Stat(cfg.Output.VocabDB); err != nil {
		logger.Warn("no vocabulary store, skipping check", "path", cfg.Output.VocabDB)
		return nil
	}

	st, err := store.Open(ctx, cfg.Output.VocabDB)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.LatestRun(ctx, cfg.Model.ModelName)
	if errors.Is(err, store.ErrNotFound) {
		logger.Warn("no stored vocabulary for model, skipping check", "model", cfg.Model.ModelName)
		return nil
	}
	if err != nil {
		return err
	}

	stored, err := st.Vocabulary(ctx, run)
	if err != nil {
		return err
	}

	if stored.MaxWords() != v.MaxWords() || !slices.Equal(stored.Entries(), v.Entries()) {
		return fmt.Errorf("%w: %w (run %s has %d tokens, now %d)",
			errdefs.ErrConfiguration, errVocabularyDrift, run.RunID, stored.Len(), v.Len())
	}

	logger.Debug("vocabulary matches stored run", "run_id", run.RunID)
	return nil
}
