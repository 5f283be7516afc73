// Package bench times pipeline stages and formats repeated-run reports for
// the sentiprep bench command.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/pprof"
	"strings"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Stage recorder
// ---------------------------------------------------------------------------

// StageTiming is the wall time spent in one named stage.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Recorder collects stage timings in call order.
type Recorder struct {
	mu     sync.Mutex
	stages []StageTiming
}

// Time runs fn under a pprof "stage" label and records how long it took.
// A nil Recorder runs fn without recording.
func (r *Recorder) Time(ctx context.Context, name string, fn func(context.Context) error) error {
	var err error
	start := time.Now()

	pprof.Do(ctx, pprof.Labels("stage", name), func(ctx context.Context) {
		err = fn(ctx)
	})

	if r != nil {
		r.mu.Lock()
		r.stages = append(r.stages, StageTiming{Name: name, Duration: time.Since(start)})
		r.mu.Unlock()
	}

	return err
}

// Stages returns a copy of the recorded timings.
func (r *Recorder) Stages() []StageTiming {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StageTiming, len(r.stages))
	copy(out, r.stages)
	return out
}

// Total is the sum of all recorded stages.
func (r *Recorder) Total() time.Duration {
	var sum time.Duration
	for _, s := range r.Stages() {
		sum += s.Duration
	}
	return sum
}

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing of a single pipeline run.
type RunResult struct {
	Index    int
	Cold     bool // true for the first run (cold-start)
	Duration time.Duration
	Rows     int
	Stages   []StageTiming
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// RowsPerSecond returns rows / d, or 0 when d is zero.
func RowsPerSecond(rows int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(rows) / d.Seconds()
}

// CheckThreshold returns an error if mean > threshold.
// A threshold of 0 disables the gate.
func CheckThreshold(mean, threshold time.Duration) error {
	if threshold <= 0 {
		return nil
	}
	if mean > threshold {
		return fmt.Errorf("mean run time %v exceeds threshold %v", mean, threshold)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %8s  %12s\n", "Run", "Cold", "MS", "Rows", "Rows/s")
	fmt.Fprintln(sb, strings.Repeat("-", 48))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.1f  %8d  %12.1f\n",
			r.Index+1,
			cold,
			float64(r.Duration.Microseconds())/1000,
			r.Rows,
			RowsPerSecond(r.Rows, r.Duration),
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 48))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (min)\n", "", "", float64(stats.Min.Microseconds())/1000)
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (mean)\n", "", "", float64(stats.Mean.Microseconds())/1000)
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (max)\n", "", "", float64(stats.Max.Microseconds())/1000)

	if len(runs) > 0 && len(runs[len(runs)-1].Stages) > 0 {
		fmt.Fprintln(sb, "\nstages (last run):")
		for _, s := range runs[len(runs)-1].Stages {
			fmt.Fprintf(sb, "  %-12s %10.1f ms\n", s.Name, float64(s.Duration.Microseconds())/1000)
		}
	}

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index      int                `json:"index"`
	Cold       bool               `json:"cold"`
	DurationMS float64            `json:"duration_ms"`
	Rows       int                `json:"rows"`
	RowsPerSec float64            `json:"rows_per_sec"`
	StagesMS   map[string]float64 `json:"stages_ms,omitempty"`
}

type jsonStats struct {
	MinMS  float64 `json:"min_ms"`
	MeanMS float64 `json:"mean_ms"`
	MaxMS  float64 `json:"max_ms"`
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) error {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:  millis(stats.Min),
			MeanMS: millis(stats.Mean),
			MaxMS:  millis(stats.Max),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:      r.Index,
			Cold:       r.Cold,
			DurationMS: millis(r.Duration),
			Rows:       r.Rows,
			RowsPerSec: RowsPerSecond(r.Rows, r.Duration),
		}
		if len(r.Stages) > 0 {
			jr.Runs[i].StagesMS = make(map[string]float64, len(r.Stages))
			for _, s := range r.Stages {
				jr.Runs[i].StagesMS[s.Name] += millis(s.Duration)
			}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jr)
}
