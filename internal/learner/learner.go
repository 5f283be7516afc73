// Package learner adapts the prepared tensors to an external model. Train
// writes a safetensors bundle for an offline trainer; Predict scores rows
// with the exported ONNX classifier.
package learner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/example/go-sentiprep/internal/onnx"
	"github.com/example/go-sentiprep/internal/pipeline"
	"github.com/example/go-sentiprep/internal/safetensors"
	"github.com/example/go-sentiprep/internal/sequence"
)

// Tensor names inside a bundle.
const (
	TensorEmbedding = "embedding_matrix"
	TensorXTrain    = "x_train"
	TensorYTrain    = "y_train"
	TensorXVal      = "x_val"
	TensorYVal      = "y_val"
	TensorTest      = "test_data"
)

// BundleTensors lists every tensor a complete bundle carries.
var BundleTensors = []string{TensorEmbedding, TensorTest, TensorXTrain, TensorXVal, TensorYTrain, TensorYVal}

// Predictor scores padded id rows.
type Predictor interface {
	Predict(ctx context.Context, rows [][]int32) ([]int, error)
	Close()
}

type options struct {
	logger     *slog.Logger
	metadata   map[string]string
	classifier onnx.ClassifierConfig
	open       func(onnx.ClassifierConfig) (Predictor, error)
}

// Option configures a Bundle.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetadata adds string metadata to the bundle header.
func WithMetadata(md map[string]string) Option {
	return func(o *options) { maps.Copy(o.metadata, md) }
}

// WithClassifier configures the ONNX graph used by Predict.
func WithClassifier(cfg onnx.ClassifierConfig) Option {
	return func(o *options) { o.classifier = cfg }
}

// WithPredictor replaces the ONNX classifier with p.
func WithPredictor(p Predictor) Option {
	return func(o *options) {
		o.open = func(onnx.ClassifierConfig) (Predictor, error) { return p, nil }
	}
}

// Bundle is a pipeline.Learner backed by files on disk.
type Bundle struct {
	dir  string
	name string
	opts options

	mu   sync.Mutex
	pred Predictor
}

var _ pipeline.Learner = (*Bundle)(nil)

// New returns a Bundle writing <dir>/<name>.safetensors.
func New(dir, name string, optFns ...Option) *Bundle {
	opts := options{
		logger:   slog.Default(),
		metadata: map[string]string{},
		open: func(cfg onnx.ClassifierConfig) (Predictor, error) {
			return onnx.NewClassifier(cfg)
		},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bundle{dir: dir, name: name, opts: opts}
}

// Path is the bundle file Train writes.
func (b *Bundle) Path() string {
	return filepath.Join(b.dir, b.name+".safetensors")
}

// Train writes every tensor of set into the bundle.
func (b *Bundle) Train(ctx context.Context, set pipeline.TrainingSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	width := rowWidth(set.XTrain, set.XVal, set.Test)
	md := maps.Clone(b.opts.metadata)
	md["model_name"] = b.name
	md["max_sequence_length"] = strconv.Itoa(width)
	md["embedding_dim"] = strconv.Itoa(set.Embedding.Dim)
	md["embedding_rows"] = strconv.Itoa(set.Embedding.Rows)

	// The matrix has min(max_nb_words, |V|) rows but ids run up to |V|, so
	// when the vocabulary is smaller than the cap the top id has no row.
	maxID := maxTokenID(set.XTrain, set.XVal, set.Test)
	md["max_token_id"] = strconv.Itoa(int(maxID))
	if int(maxID) >= set.Embedding.Rows {
		b.opts.logger.Warn("token ids without an embedding row",
			"max_token_id", maxID,
			"embedding_rows", set.Embedding.Rows)
	}

	tensors := []safetensors.Tensor{
		safetensors.Float32(TensorEmbedding, set.Embedding.Shape(), set.Embedding.Data),
		idTensor(TensorXTrain, set.XTrain, width),
		labelTensor(TensorYTrain, set.YTrain),
		idTensor(TensorXVal, set.XVal, width),
		labelTensor(TensorYVal, set.YVal),
		idTensor(TensorTest, set.Test, width),
	}

	if err := safetensors.WriteFile(b.Path(), tensors, md); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}

	b.opts.logger.Info("tensor bundle written",
		"path", b.Path(),
		"x_train", len(set.XTrain),
		"x_val", len(set.XVal),
		"test", len(set.Test),
	)
	return nil
}

// Predict scores rows with the classifier, opening it on first use.
func (b *Bundle) Predict(ctx context.Context, rows [][]int32) ([]int, error) {
	p, err := b.predictor()
	if err != nil {
		return nil, err
	}
	return p.Predict(ctx, rows)
}

func (b *Bundle) predictor() (Predictor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pred != nil {
		return b.pred, nil
	}
	p, err := b.opts.open(b.opts.classifier)
	if err != nil {
		return nil, fmt.Errorf("open classifier: %w", err)
	}
	b.pred = p
	return p, nil
}

// Close releases the classifier if one was opened.
func (b *Bundle) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pred != nil {
		b.pred.Close()
		b.pred = nil
	}
}

// ReadBundle loads a bundle back into a TrainingSet together with its
// header metadata.
func ReadBundle(path string) (pipeline.TrainingSet, map[string]string, error) {
	st, err := safetensors.OpenStore(path)
	if err != nil {
		return pipeline.TrainingSet{}, nil, err
	}
	defer st.Close()

	var missing []error
	for _, name := range BundleTensors {
		if !st.Has(name) {
			missing = append(missing, fmt.Errorf("tensor %q missing", name))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return pipeline.TrainingSet{}, nil, fmt.Errorf("bundle %s: %w", path, err)
	}

	var set pipeline.TrainingSet

	emb, err := st.Tensor(TensorEmbedding)
	if err != nil {
		return set, nil, err
	}
	if len(emb.Shape) != 2 {
		return set, nil, fmt.Errorf("bundle %s: %s has shape %v", path, TensorEmbedding, emb.Shape)
	}
	set.Embedding.Rows, set.Embedding.Dim, set.Embedding.Data = int(emb.Shape[0]), int(emb.Shape[1]), emb.F32

	for _, r := range []struct {
		name string
		dst  *[][]int32
	}{
		{TensorXTrain, &set.XTrain},
		{TensorXVal, &set.XVal},
		{TensorTest, &set.Test},
	} {
		t, err := st.Tensor(r.name)
		if err != nil {
			return set, nil, err
		}
		if *r.dst, err = unflattenIDs(t); err != nil {
			return set, nil, fmt.Errorf("bundle %s: %w", path, err)
		}
	}

	for _, r := range []struct {
		name string
		rows int
		dst  *[]sequence.Label
	}{
		{TensorYTrain, len(set.XTrain), &set.YTrain},
		{TensorYVal, len(set.XVal), &set.YVal},
	} {
		t, err := st.TensorWithShape(r.name, []int64{int64(r.rows), 2})
		if err != nil {
			return set, nil, fmt.Errorf("bundle %s: %w", path, err)
		}
		if *r.dst, err = unflattenLabels(t); err != nil {
			return set, nil, fmt.Errorf("bundle %s: %w", path, err)
		}
	}

	return set, maps.Clone(st.Metadata()), nil
}

// Describe reads the bundle at path and summarises its row counts and
// matrix shape. Token ids beyond the last matrix row are reported, not
// rejected.
func Describe(path string) (string, error) {
	set, _, err := ReadBundle(path)
	if err != nil {
		return "", err
	}

	s := fmt.Sprintf("%d train, %d validation, %d test rows; embedding %dx%d",
		len(set.XTrain), len(set.XVal), len(set.Test), set.Embedding.Rows, set.Embedding.Dim)
	if maxID := maxTokenID(set.XTrain, set.XVal, set.Test); int(maxID) >= set.Embedding.Rows {
		s += fmt.Sprintf("; token id %d has no embedding row", maxID)
	}
	return s, nil
}

func maxTokenID(groups ...[][]int32) int32 {
	var m int32
	for _, g := range groups {
		for _, row := range g {
			for _, id := range row {
				m = max(m, id)
			}
		}
	}
	return m
}

func rowWidth(groups ...[][]int32) int {
	for _, g := range groups {
		if len(g) > 0 {
			return len(g[0])
		}
	}
	return 0
}

func idTensor(name string, rows [][]int32, width int) safetensors.Tensor {
	data := sequence.Flatten(rows)
	if data == nil {
		data = []int32{}
	}
	return safetensors.Int32(name, []int64{int64(len(rows)), int64(width)}, data)
}

func labelTensor(name string, labels []sequence.Label) safetensors.Tensor {
	return safetensors.Float32(name, []int64{int64(len(labels)), 2}, sequence.FlattenLabels(labels))
}

func unflattenIDs(t *safetensors.Tensor) ([][]int32, error) {
	if t.DType != safetensors.I32 || len(t.Shape) != 2 {
		return nil, fmt.Errorf("%s: want I32 rank 2, got %s %v", t.Name, t.DType, t.Shape)
	}
	n, w := int(t.Shape[0]), int(t.Shape[1])
	rows := make([][]int32, n)
	for i := range rows {
		rows[i] = t.I32[i*w : (i+1)*w : (i+1)*w]
	}
	return rows, nil
}

func unflattenLabels(t *safetensors.Tensor) ([]sequence.Label, error) {
	if t.DType != safetensors.F32 || len(t.Shape) != 2 || t.Shape[1] != 2 {
		return nil, fmt.Errorf("%s: want F32 (n, 2), got %s %v", t.Name, t.DType, t.Shape)
	}
	out := make([]sequence.Label, t.Shape[0])
	for i := range out {
		out[i] = sequence.Label{t.F32[2*i], t.F32[2*i+1]}
	}
	return out, nil
}
