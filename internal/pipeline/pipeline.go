// Package pipeline runs the preprocessing stages end to end: read the
// corpora, normalize, fit the shared vocabulary, pad sequences, build the
// embedding matrix and split off a validation set.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/go-sentiprep/internal/bench"
	"github.com/example/go-sentiprep/internal/corpus"
	"github.com/example/go-sentiprep/internal/dataset"
	"github.com/example/go-sentiprep/internal/embedding"
	"github.com/example/go-sentiprep/internal/errdefs"
	"github.com/example/go-sentiprep/internal/sequence"
	"github.com/example/go-sentiprep/internal/text"
	"github.com/example/go-sentiprep/internal/tokenizer"
)

// Config holds the inputs and knobs of one run.
type Config struct {
	PositivePath  string `yaml:"train_data_file_pos"`
	NegativePath  string `yaml:"train_data_file_neg"`
	TestPath      string `yaml:"test_data_file"`
	EmbeddingPath string `yaml:"embedding_dir"`

	MaxWords          int     `yaml:"max_nb_words"`
	MaxSequenceLength int     `yaml:"max_sequence_length"`
	EmbeddingDim      int     `yaml:"embedding_dim"`
	ValidationSplit   float64 `yaml:"validation_split"`
	Seed              uint64  `yaml:"seed"`

	RemoveStopwords bool `yaml:"remove_stopwords"`
	StemWords       bool `yaml:"stem_words"`
}

// Validate checks the numeric options. Paths are checked when read.
func (c Config) Validate() error {
	switch {
	case c.MaxWords < 1:
		return fmt.Errorf("%w: max_nb_words must be positive, got %d", errdefs.ErrConfiguration, c.MaxWords)
	case c.MaxSequenceLength < 1:
		return fmt.Errorf("%w: max_sequence_length must be positive, got %d", errdefs.ErrConfiguration, c.MaxSequenceLength)
	case c.EmbeddingDim < 1:
		return fmt.Errorf("%w: embedding_dim must be positive, got %d", errdefs.ErrConfiguration, c.EmbeddingDim)
	case !(c.ValidationSplit > 0 && c.ValidationSplit < 1):
		return fmt.Errorf("%w: validation_split %v", errdefs.ErrInvalidFraction, c.ValidationSplit)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	logger   *slog.Logger
	recorder *bench.Recorder
}

// Option configures a Pipeline.
type Option func(*options)

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder records stage timings into r.
func WithRecorder(r *bench.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// Pipeline prepares tensors for a Learner.
type Pipeline struct {
	cfg Config
	log *slog.Logger
	rec *bench.Recorder
}

// New returns a Pipeline for cfg.
func New(cfg Config, optFns ...Option) *Pipeline {
	opts := options{logger: slog.Default()}
	for _, fn := range optFns {
		fn(&opts)
	}
	rec := opts.recorder
	if rec == nil {
		rec = &bench.Recorder{}
	}
	return &Pipeline{cfg: cfg, log: opts.logger, rec: rec}
}

// Prepare runs every stage. On error nothing is returned and the error is
// a *StageError.
func (p *Pipeline) Prepare(ctx context.Context) (*Prepared, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, &StageError{Stage: "config", Err: err}
	}

	var (
		pos, neg, test []corpus.Message
		index          *embedding.Index
		normPos        []string
		normNeg        []string
		normTest       []string
		normTrain      []string
		vocab          *tokenizer.Vocabulary
		xTrain         [][]int32
		labels         []sequence.Label
		testData       [][]int32
		matrix         embedding.Matrix
		matrixStats    embedding.Stats
		part           dataset.Partition
	)

	stages := []struct {
		name string
		run  func() error
	}{
		{StageRead, func() error {
			var err error
			if pos, err = corpus.ReadTrainFile(p.cfg.PositivePath); err != nil {
				return &StageError{Stage: StageRead, Path: p.cfg.PositivePath, Err: err}
			}
			if neg, err = corpus.ReadTrainFile(p.cfg.NegativePath); err != nil {
				return &StageError{Stage: StageRead, Path: p.cfg.NegativePath, Err: err}
			}
			if test, err = corpus.ReadTestFile(p.cfg.TestPath); err != nil {
				return &StageError{Stage: StageRead, Path: p.cfg.TestPath, Err: err}
			}
			p.log.Info("corpora read", "positive", len(pos), "negative", len(neg), "test", len(test))
			return nil
		}},
		{StageIndex, func() error {
			var err error
			index, err = embedding.LoadIndex(p.cfg.EmbeddingPath, embedding.WithDim(p.cfg.EmbeddingDim))
			if err != nil {
				return &StageError{Stage: StageIndex, Path: p.cfg.EmbeddingPath, Err: err}
			}
			p.log.Info("embedding index loaded", "vectors", index.Len(), "dim", index.Dim())
			return nil
		}},
		{StageNormalize, func() error {
			opts := []text.Option{text.WithStopwords(p.cfg.RemoveStopwords), text.WithStemming(p.cfg.StemWords)}
			normPos = text.NormalizeAll(corpus.Texts(pos), opts...)
			normNeg = text.NormalizeAll(corpus.Texts(neg), opts...)
			normTest = text.NormalizeAll(corpus.Texts(test), opts...)
			return nil
		}},
		{StageFit, func() error {
			// Positive rows first; BuildLabels relies on this order.
			normTrain = make([]string, 0, len(normPos)+len(normNeg))
			normTrain = append(append(normTrain, normPos...), normNeg...)

			var err error
			vocab, err = tokenizer.Fit([][]string{normTrain, normTest}, p.cfg.MaxWords)
			if err != nil {
				return &StageError{Stage: StageFit, Err: err}
			}
			p.log.Info("vocabulary fitted", "unique_tokens", vocab.Len(), "max_nb_words", p.cfg.MaxWords)
			return nil
		}},
		{StageSequence, func() error {
			xTrain = sequence.Pad(vocab.Transform(normTrain), p.cfg.MaxSequenceLength)
			labels = sequence.BuildLabels(len(normPos), len(normNeg))
			testData = sequence.Pad(vocab.Transform(normTest), p.cfg.MaxSequenceLength)
			p.log.Info("sequences padded",
				"train_shape", shape2(len(xTrain), p.cfg.MaxSequenceLength),
				"label_shape", shape2(len(labels), 2),
				"test_shape", shape2(len(testData), p.cfg.MaxSequenceLength))
			return nil
		}},
		{StageMatrix, func() error {
			var err error
			matrix, matrixStats, err = embedding.BuildMatrix(vocab, index, p.cfg.MaxWords, p.cfg.EmbeddingDim)
			if err != nil {
				return &StageError{Stage: StageMatrix, Err: err}
			}
			p.log.Info("embedding matrix built",
				"shape", shape2(matrix.Rows, matrix.Dim),
				"null_embeddings", matrixStats.ZeroRows)
			return nil
		}},
		{StageSplit, func() error {
			var err error
			part, err = dataset.Split(xTrain, labels, p.cfg.ValidationSplit, p.cfg.Seed)
			if err != nil {
				return &StageError{Stage: StageSplit, Err: err}
			}
			p.log.Info("dataset split", "train", len(part.XTrain), "validation", len(part.XVal), "seed", p.cfg.Seed)
			return nil
		}},
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: st.name, Err: err}
		}
		err := p.rec.Time(ctx, st.name, func(context.Context) error { return st.run() })
		if err != nil {
			return nil, err
		}
	}

	return &Prepared{
		Vocabulary: vocab,
		Training: TrainingSet{
			Embedding: matrix,
			XTrain:    part.XTrain,
			YTrain:    part.YTrain,
			XVal:      part.XVal,
			YVal:      part.YVal,
			Test:      testData,
		},
		Test:      TestSet{IDs: corpus.IDs(test), Data: testData},
		TrainRows: part.TrainRows,
		ValRows:   part.ValRows,
		Stats: Stats{
			Positive:   len(pos),
			Negative:   len(neg),
			Test:       len(test),
			Tokens:     vocab.Len(),
			Embeddings: index.Len(),
			Matrix:     matrixStats,
			TrainRows:  len(part.XTrain),
			ValRows:    len(part.XVal),
			Stages:     p.rec.Stages(),
		},
	}, nil
}

// Train hands the prepared tensors to l.
func Train(ctx context.Context, l Learner, prep *Prepared) error {
	if err := l.Train(ctx, prep.Training); err != nil {
		return &StageError{Stage: StageTrain, Err: err}
	}
	return nil
}

// Predict scores the test set with l. The result is index-aligned with
// prep.Test.IDs.
func Predict(ctx context.Context, l Learner, prep *Prepared) ([]int, error) {
	classes, err := l.Predict(ctx, prep.Test.Data)
	if err != nil {
		return nil, &StageError{Stage: StagePredict, Err: err}
	}
	if len(classes) != len(prep.Test.Data) {
		return nil, &StageError{Stage: StagePredict, Err: fmt.Errorf("%w: learner returned %d predictions for %d rows",
			errdefs.ErrMalformedRecord, len(classes), len(prep.Test.Data))}
	}
	return classes, nil
}

func shape2(a, b int) string {
	return fmt.Sprintf("(%d, %d)", a, b)
}
