// Package tokenizer maps normalized messages to integer id sequences.
// Ids are assigned once by Fit over every corpus the pipeline will later
// transform, so train and test rows share one id space.
package tokenizer

// Tokenizer converts normalized text into id sequences.
type Tokenizer interface {
	// Transform returns one sequence per document, in input order.
	Transform(corpus []string) [][]int32
}

var _ Tokenizer = (*Vocabulary)(nil)
