package pipeline

import (
	"context"
	"fmt"

	"github.com/example/go-sentiprep/internal/bench"
	"github.com/example/go-sentiprep/internal/embedding"
	"github.com/example/go-sentiprep/internal/sequence"
	"github.com/example/go-sentiprep/internal/tokenizer"
)

// Stage names used in StageError, timings and logs.
const (
	StageRead      = "read"
	StageIndex     = "embedding-index"
	StageNormalize = "normalize"
	StageFit       = "fit"
	StageSequence  = "sequence"
	StageMatrix    = "embedding-matrix"
	StageSplit     = "split"
	StageTrain     = "train"
	StageStore     = "store"
	StageReport    = "report"
	StagePredict   = "predict"
)

// StageError names the stage, and the file when there is one, that
// aborted a run.
type StageError struct {
	Stage string
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s stage (%s): %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// TestSet mirrors the test file: IDs[i] belongs to Data[i].
type TestSet struct {
	IDs  []string
	Data [][]int32
}

// TrainingSet is everything a learner is trained on. Test carries the
// padded test rows so an offline learner can score them.
type TrainingSet struct {
	Embedding embedding.Matrix
	XTrain    [][]int32
	YTrain    []sequence.Label
	XVal      [][]int32
	YVal      []sequence.Label
	Test      [][]int32
}

// Learner trains a classifier and predicts a class index (0 negative,
// 1 positive) per padded row.
type Learner interface {
	Train(ctx context.Context, set TrainingSet) error
	Predict(ctx context.Context, rows [][]int32) ([]int, error)
}

// Stats summarises a run for logs and the run report.
type Stats struct {
	Positive   int
	Negative   int
	Test       int
	Tokens     int
	Embeddings int
	Matrix     embedding.Stats
	TrainRows  int
	ValRows    int
	Stages     []bench.StageTiming
}

// Prepared is the output of Prepare. Nothing in it is modified afterwards.
type Prepared struct {
	Vocabulary *tokenizer.Vocabulary
	Training   TrainingSet
	Test       TestSet

	// TrainRows and ValRows map split rows back to the concatenated
	// positive-then-negative input.
	TrainRows []int
	ValRows   []int

	Stats Stats
}
