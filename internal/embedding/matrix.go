package embedding

import (
	"fmt"

	"github.com/example/go-sentiprep/internal/errdefs"
)

// Vocabulary is the token side of the id space.
type Vocabulary interface {
	Len() int
	Token(id int32) (string, bool)
}

// Vectors resolves tokens to pretrained vectors.
type Vectors interface {
	Lookup(tok string) ([]float32, bool)
}

// Matrix is a dense row-major (Rows, Dim) float32 matrix.
type Matrix struct {
	Rows int
	Dim  int
	Data []float32
}

// Row returns row i as a view into Data.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Dim : (i+1)*m.Dim : (i+1)*m.Dim]
}

// Shape returns the dimensions as int64, ready for a tensor header.
func (m Matrix) Shape() []int64 {
	return []int64{int64(m.Rows), int64(m.Dim)}
}

// Stats describes how much of the vocabulary was covered.
type Stats struct {
	Rows     int
	Found    int
	ZeroRows int
}

// BuildMatrix allocates min(maxWords, vocab.Len()) rows of width dim and
// fills row i with the vector of the token holding id i. Row 0 and tokens
// missing from vecs stay zero.
func BuildMatrix(vocab Vocabulary, vecs Vectors, maxWords, dim int) (Matrix, Stats, error) {
	if dim < 1 {
		return Matrix{}, Stats{}, fmt.Errorf("%w: embedding_dim must be positive, got %d", errdefs.ErrConfiguration, dim)
	}
	if maxWords < 1 {
		return Matrix{}, Stats{}, fmt.Errorf("%w: max_nb_words must be positive, got %d", errdefs.ErrConfiguration, maxWords)
	}

	rows := min(maxWords, vocab.Len())
	m := Matrix{Rows: rows, Dim: dim, Data: make([]float32, rows*dim)}
	st := Stats{Rows: rows}

	for i := 1; i < rows; i++ {
		tok, ok := vocab.Token(int32(i))
		if !ok {
			continue
		}
		vec, ok := vecs.Lookup(tok)
		if !ok {
			continue
		}
		if len(vec) != dim {
			return Matrix{}, Stats{}, fmt.Errorf("%w: vector for %q has %d components, embedding_dim is %d",
				errdefs.ErrConfiguration, tok, len(vec), dim)
		}
		copy(m.Row(i), vec)
		st.Found++
	}

	for i := 0; i < rows; i++ {
		if isZero(m.Row(i)) {
			st.ZeroRows++
		}
	}

	return m, st, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
