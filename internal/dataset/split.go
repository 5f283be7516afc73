// Package dataset partitions prepared rows into training and validation sets.
package dataset

import (
	"fmt"
	"math/rand/v2"

	"github.com/example/go-sentiprep/internal/errdefs"
	"github.com/example/go-sentiprep/internal/sequence"
)

// Partition is a paired train/validation split. TrainRows and ValRows hold
// the original row index of every output row.
type Partition struct {
	XTrain [][]int32
	YTrain []sequence.Label
	XVal   [][]int32
	YVal   []sequence.Label

	TrainRows []int
	ValRows   []int
}

// Split shuffles the rows with a PCG source seeded by seed and moves the
// last floor(fraction*n) shuffled rows into the validation set. x and y
// stay paired. The same seed always yields the same partition.
func Split(x [][]int32, y []sequence.Label, fraction float64, seed uint64) (Partition, error) {
	if !(fraction > 0 && fraction < 1) {
		return Partition{}, fmt.Errorf("%w: %v is outside (0, 1)", errdefs.ErrInvalidFraction, fraction)
	}
	if len(x) != len(y) {
		return Partition{}, fmt.Errorf("%w: %d rows but %d labels", errdefs.ErrMalformedRecord, len(x), len(y))
	}

	n := len(x)
	perm := Permutation(n, seed)
	nVal := int(fraction * float64(n))
	cut := n - nVal

	p := Partition{
		XTrain:    make([][]int32, 0, cut),
		YTrain:    make([]sequence.Label, 0, cut),
		XVal:      make([][]int32, 0, nVal),
		YVal:      make([]sequence.Label, 0, nVal),
		TrainRows: perm[:cut:cut],
		ValRows:   perm[cut:],
	}

	for _, row := range p.TrainRows {
		p.XTrain = append(p.XTrain, x[row])
		p.YTrain = append(p.YTrain, y[row])
	}
	for _, row := range p.ValRows {
		p.XVal = append(p.XVal, x[row])
		p.YVal = append(p.YVal, y[row])
	}

	return p, nil
}

// Permutation returns a seeded permutation of [0, n).
func Permutation(n int, seed uint64) []int {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return r.Perm(n)
}
