// Package embedding loads pretrained word vectors and lays them out as the
// row-per-vocabulary-id matrix the learner's embedding layer is seeded with.
package embedding

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/example/go-sentiprep/internal/errdefs"
)

const maxLineBytes = 4 << 20

// Index maps tokens to fixed-dimension vectors.
type Index struct {
	dim     int
	vectors map[string][]float32
}

// Dim is the vector width shared by every entry.
func (x *Index) Dim() int { return x.dim }

// Len is the number of tokens in the index.
func (x *Index) Len() int { return len(x.vectors) }

// Lookup returns the vector for tok. The slice must not be modified.
func (x *Index) Lookup(tok string) ([]float32, bool) {
	v, ok := x.vectors[tok]
	return v, ok
}

type loadOptions struct {
	dim   int
	limit int
}

// Option configures LoadIndex and ReadIndex.
type Option func(*loadOptions)

// WithDim requires every vector to have exactly dim components.
func WithDim(dim int) Option {
	return func(o *loadOptions) { o.dim = dim }
}

// WithLimit stops reading after n vectors. Zero means no limit.
func WithLimit(n int) Option {
	return func(o *loadOptions) { o.limit = n }
}

// LoadIndex reads a whitespace-delimited `token f1 ... fn` file.
func LoadIndex(path string, opts ...Option) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding index: %w", errdefs.ErrResource, err)
	}
	defer f.Close()

	idx, err := ReadIndex(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

// ReadIndex parses an embedding index from r. Blank lines are ignored. Any
// line with a bad float or a width different from the first vector fails
// the whole read.
func ReadIndex(r io.Reader, opts ...Option) (*Index, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	idx := &Index{dim: o.dim, vectors: make(map[string][]float32)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for sc.Scan() {
		lineNo++

		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		n := len(fields) - 1
		if n == 0 {
			return nil, fmt.Errorf("%w: line %d: token %q has no vector", errdefs.ErrMalformedRecord, lineNo, fields[0])
		}

		if idx.dim == 0 {
			idx.dim = n
		}
		if n != idx.dim {
			if o.dim != 0 && len(idx.vectors) == 0 {
				return nil, fmt.Errorf("%w: embedding_dim is %d but index vectors have %d components", errdefs.ErrConfiguration, o.dim, n)
			}
			return nil, fmt.Errorf("%w: line %d: got %d components, want %d", errdefs.ErrMalformedRecord, lineNo, n, idx.dim)
		}

		vec := make([]float32, n)
		for i, s := range fields[1:] {
			f, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: component %d: %w", errdefs.ErrMalformedRecord, lineNo, i+1, err)
			}
			vec[i] = float32(f)
		}
		idx.vectors[fields[0]] = vec

		if o.limit > 0 && len(idx.vectors) >= o.limit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read line %d: %w", errdefs.ErrResource, lineNo+1, err)
	}

	return idx, nil
}
