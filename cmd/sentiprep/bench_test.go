package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/example/go-sentiprep/internal/bench"
)

func TestRunBench(t *testing.T) {
	c, _ := fixtureArgs(t)
	cfg := configFor(c)

	results, err := runBench(context.Background(), cfg.PipelineConfig(), 3)
	if err != nil {
		t.Fatalf("runBench: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("len(results) = %d; want 3", len(results))
	}
	if !results[0].Cold || results[1].Cold {
		t.Error("only the first run should be cold")
	}
	for _, r := range results {
		if r.Rows != 8 {
			t.Errorf("run %d rows = %d; want 8", r.Index, r.Rows)
		}
		if len(r.Stages) != 7 {
			t.Errorf("run %d stages = %d; want 7", r.Index, len(r.Stages))
		}
	}
}

func TestBenchCmd_JSON(t *testing.T) {
	_, args := fixtureArgs(t)

	out, err := execute(t, append([]string{"bench", "--runs=2", "--format=json"}, args...)...)
	if err != nil {
		t.Fatalf("bench: %v", err)
	}

	var decoded struct {
		Runs []struct {
			Rows     int                `json:"rows"`
			StagesMS map[string]float64 `json:"stages_ms"`
		} `json:"runs"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(decoded.Runs) != 2 {
		t.Fatalf("runs = %d; want 2", len(decoded.Runs))
	}
	if _, ok := decoded.Runs[0].StagesMS["embedding-index"]; !ok {
		t.Errorf("stages_ms missing embedding-index: %v", decoded.Runs[0].StagesMS)
	}
}

func TestBenchCmd_FlagValidation(t *testing.T) {
	_, args := fixtureArgs(t)

	for _, extra := range [][]string{{"--runs=0"}, {"--format=xml"}} {
		if _, err := execute(t, append(append([]string{"bench"}, extra...), args...)...); err == nil {
			t.Errorf("bench %v: expected error", extra)
		}
	}
}

func TestWriteBench_Table(t *testing.T) {
	var sb strings.Builder
	results := []bench.RunResult{{Index: 0, Cold: true, Rows: 4}}

	if err := writeBench(&sb, "table", results, bench.Stats{}); err != nil {
		t.Fatalf("writeBench: %v", err)
	}
	if !strings.Contains(sb.String(), "Rows/s") {
		t.Errorf("table output = %q", sb.String())
	}
}
