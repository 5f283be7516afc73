// Package report writes a YAML summary of one preprocessing run.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/example/go-sentiprep/internal/pipeline"
)

// Report is the document written next to the tensor bundle.
type Report struct {
	RunID     string    `yaml:"run_id"`
	ModelName string    `yaml:"model_name"`
	CreatedAt time.Time `yaml:"created_at"`
	Bundle    string    `yaml:"bundle,omitempty"`

	Config pipeline.Config `yaml:"config"`

	Corpus     Corpus     `yaml:"corpus"`
	Vocabulary Vocabulary `yaml:"vocabulary"`
	Embedding  Embedding  `yaml:"embedding"`
	Split      Split      `yaml:"split"`

	Stages []Stage `yaml:"stages"`
	Total  string  `yaml:"total"`
}

type Corpus struct {
	Positive int `yaml:"positive"`
	Negative int `yaml:"negative"`
	Test     int `yaml:"test"`
}

type Vocabulary struct {
	Tokens   int `yaml:"tokens"`
	MaxWords int `yaml:"max_words"`
}

type Embedding struct {
	Vectors  int `yaml:"vectors"`
	Rows     int `yaml:"rows"`
	Dim      int `yaml:"dim"`
	Found    int `yaml:"found"`
	ZeroRows int `yaml:"zero_rows"`
}

type Split struct {
	Train    int     `yaml:"train"`
	Val      int     `yaml:"val"`
	Fraction float64 `yaml:"fraction"`
	Seed     uint64  `yaml:"seed"`
}

type Stage struct {
	Name     string `yaml:"name"`
	Duration string `yaml:"duration"`
}

// NewRunID returns a fresh random run id.
func NewRunID() string {
	return uuid.NewString()
}

// New builds a report from a prepared run. An empty runID gets a new one.
func New(runID, modelName string, cfg pipeline.Config, prep *pipeline.Prepared) Report {
	if runID == "" {
		runID = NewRunID()
	}

	st := prep.Stats
	r := Report{
		RunID:     runID,
		ModelName: modelName,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Config:    cfg,
		Corpus:    Corpus{Positive: st.Positive, Negative: st.Negative, Test: st.Test},
		Vocabulary: Vocabulary{
			Tokens:   st.Tokens,
			MaxWords: cfg.MaxWords,
		},
		Embedding: Embedding{
			Vectors:  st.Embeddings,
			Rows:     st.Matrix.Rows,
			Dim:      prep.Training.Embedding.Dim,
			Found:    st.Matrix.Found,
			ZeroRows: st.Matrix.ZeroRows,
		},
		Split: Split{
			Train:    st.TrainRows,
			Val:      st.ValRows,
			Fraction: cfg.ValidationSplit,
			Seed:     cfg.Seed,
		},
	}

	var total time.Duration
	for _, s := range st.Stages {
		r.Stages = append(r.Stages, Stage{Name: s.Name, Duration: s.Duration.String()})
		total += s.Duration
	}
	r.Total = total.String()

	return r
}

// Encode writes r as YAML.
func Encode(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// Decode reads a report written by Encode.
func Decode(rd io.Reader) (Report, error) {
	var r Report
	if err := yaml.NewDecoder(rd).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}

// WriteFile writes r to path through a temp file in the same directory.
// On error path is left as it was.
func WriteFile(path string, r Report) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = Encode(tmp, r); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

// ReadFile loads a report from path.
func ReadFile(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	return Decode(f)
}
