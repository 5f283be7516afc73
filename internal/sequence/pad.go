// Package sequence turns variable-length id sequences into fixed-shape
// training rows and builds the matching one-hot labels.
package sequence

// Pad returns one row of exactly length ids per input sequence.
//
// Short sequences are left-padded with 0. Long sequences are truncated from
// the left, so the most recent tokens are kept. Inputs are not modified.
func Pad(seqs [][]int32, length int) [][]int32 {
	if length < 0 {
		length = 0
	}

	out := make([][]int32, len(seqs))
	backing := make([]int32, len(seqs)*length)

	for i, seq := range seqs {
		row := backing[i*length : (i+1)*length : (i+1)*length]
		if len(seq) >= length {
			copy(row, seq[len(seq)-length:])
		} else {
			copy(row[length-len(seq):], seq)
		}
		out[i] = row
	}

	return out
}

// Flatten returns rows as one row-major slice. All rows must share a length.
func Flatten(rows [][]int32) []int32 {
	if len(rows) == 0 {
		return nil
	}
	width := len(rows[0])
	out := make([]int32, 0, len(rows)*width)
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
