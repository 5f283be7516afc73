package onnx

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// DefaultAPIVersion is the ORT C API version requested when none is set.
const DefaultAPIVersion = 23

// DefaultBatchSize bounds how many rows go into one session run.
const DefaultBatchSize = 256

// ClassifierConfig describes a binary sentiment classifier graph. The
// graph takes a (batch, sequence) id tensor and returns either (batch, 2)
// class scores or a (batch, 1) positive-class probability.
type ClassifierConfig struct {
	LibraryPath string
	APIVersion  uint32
	ModelPath   string
	InputName   string
	OutputName  string // empty selects the only output
	InputDType  TensorDType
	BatchSize   int
}

// GraphRunner executes one ONNX graph.
type GraphRunner interface {
	Run(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error)
	Close()
}

// Classifier scores padded id rows with an ONNX graph.
type Classifier struct {
	cfg    ClassifierConfig
	runner GraphRunner
}

// NewClassifier loads the graph at cfg.ModelPath through ONNX Runtime.
func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("classifier model path is required")
	}

	s, err := OpenSession(cfg.LibraryPath, cfg.APIVersion, cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	return NewClassifierWithRunner(cfg, s), nil
}

// NewClassifierWithRunner wraps an existing runner.
func NewClassifierWithRunner(cfg ClassifierConfig, r GraphRunner) *Classifier {
	if cfg.InputName == "" {
		cfg.InputName = "input"
	}
	if cfg.InputDType == "" {
		cfg.InputDType = DTypeInt64
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Classifier{cfg: cfg, runner: r}
}

// Predict returns a class index (0 negative, 1 positive) per row.
func (c *Classifier) Predict(ctx context.Context, rows [][]int32) ([]int, error) {
	out := make([]int, 0, len(rows))

	for start := 0; start < len(rows); start += c.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+c.cfg.BatchSize, len(rows))

		input, err := NewIDTensor(rows[start:end], c.cfg.InputDType)
		if err != nil {
			return nil, fmt.Errorf("batch [%d:%d]: %w", start, end, err)
		}

		outputs, err := c.runner.Run(ctx, map[string]*Tensor{c.cfg.InputName: input})
		if err != nil {
			return nil, fmt.Errorf("batch [%d:%d]: %w", start, end, err)
		}

		scores, err := c.pickOutput(outputs)
		if err != nil {
			return nil, err
		}

		classes, err := Argmax(scores, end-start)
		if err != nil {
			return nil, fmt.Errorf("batch [%d:%d]: %w", start, end, err)
		}
		out = append(out, classes...)
	}

	return out, nil
}

// Close releases the runner.
func (c *Classifier) Close() {
	if c.runner != nil {
		c.runner.Close()
		c.runner = nil
	}
}

func (c *Classifier) pickOutput(outputs map[string]*Tensor) (*Tensor, error) {
	if c.cfg.OutputName != "" {
		t, ok := outputs[c.cfg.OutputName]
		if !ok {
			return nil, fmt.Errorf("output %q not produced (got %v)", c.cfg.OutputName, outputNames(outputs))
		}
		return t, nil
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("graph has %d outputs %v; set an output name", len(outputs), outputNames(outputs))
	}
	for _, t := range outputs {
		return t, nil
	}
	return nil, nil
}

// Argmax reduces a (rows, k) score tensor to class indices. A single
// float column is read as the positive-class probability, thresholded at
// 0.5. An int64 tensor with one value per row already holds the labels.
func Argmax(scores *Tensor, rows int) ([]int, error) {
	if labels, err := ExtractInt64(scores); err == nil {
		if len(labels) != rows {
			return nil, fmt.Errorf("label tensor shape %v does not fit %d rows", scores.Shape(), rows)
		}
		out := make([]int, rows)
		for i, l := range labels {
			out[i] = int(l)
		}
		return out, nil
	}

	data, err := ExtractFloat32(scores)
	if err != nil {
		return nil, err
	}
	if rows <= 0 || len(data)%rows != 0 || len(data) == 0 {
		return nil, fmt.Errorf("score tensor shape %v does not fit %d rows", scores.Shape(), rows)
	}

	k := len(data) / rows
	out := make([]int, rows)
	for i := range out {
		row := data[i*k : (i+1)*k]
		if k == 1 {
			if row[0] >= 0.5 {
				out[i] = 1
			}
			continue
		}
		best := 0
		for j := 1; j < k; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out, nil
}

func outputNames(outputs map[string]*Tensor) []string {
	names := make([]string, 0, len(outputs))
	for n := range outputs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
