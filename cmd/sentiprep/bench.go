package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/go-sentiprep/internal/bench"
	"github.com/example/go-sentiprep/internal/pipeline"
)

func newBenchCmd() *cobra.Command {
	var (
		runs      int
		format    string
		threshold time.Duration
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark end-to-end preprocessing latency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireValidConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			results, err := runBench(cmd.Context(), cfg.PipelineConfig(), runs)
			if err != nil {
				return err
			}

			durations := make([]time.Duration, len(results))
			for i, r := range results {
				durations[i] = r.Duration
			}
			stats := bench.ComputeStats(durations)

			if err := writeBench(cmd.OutOrStdout(), format, results, stats); err != nil {
				return err
			}

			return bench.CheckThreshold(stats.Mean, threshold)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 5, "Number of pipeline runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().DurationVar(&threshold, "threshold", 0, "Exit non-zero if the mean run exceeds this duration (0 = disabled)")

	return cmd
}

func writeBench(w io.Writer, format string, results []bench.RunResult, stats bench.Stats) error {
	if format == "json" {
		return bench.FormatJSON(results, stats, w)
	}
	bench.FormatTable(results, stats, w)
	return nil
}

// runBench runs Prepare n times with logging silenced. Rows counts every
// padded row produced (training, validation and test).
func runBench(ctx context.Context, cfg pipeline.Config, n int) ([]bench.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	results := make([]bench.RunResult, 0, n)

	for i := range n {
		rec := &bench.Recorder{}
		start := time.Now()

		prep, err := pipeline.New(cfg, pipeline.WithLogger(quiet), pipeline.WithRecorder(rec)).Prepare(ctx)
		if err != nil {
			return nil, fmt.Errorf("run %d failed: %w", i+1, err)
		}

		results = append(results, bench.RunResult{
			Index:    i,
			Cold:     i == 0,
			Duration: time.Since(start),
			Rows:     len(prep.Training.XTrain) + len(prep.Training.XVal) + len(prep.Test.Data),
			Stages:   rec.Stages(),
		})
	}

	return results, nil
}
