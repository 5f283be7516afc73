package sequence

// Label is a one-hot class pair. Index 1 is positive, index 0 negative.
type Label [2]float32

var (
	Positive = Label{0, 1}
	Negative = Label{1, 0}
)

// Class returns the index of the hot entry.
func (l Label) Class() int {
	if l[1] > l[0] {
		return 1
	}
	return 0
}

// BuildLabels returns nPos positive labels followed by nNeg negative ones.
// The training rows must be concatenated in the same order.
func BuildLabels(nPos, nNeg int) []Label {
	nPos, nNeg = max(nPos, 0), max(nNeg, 0)

	out := make([]Label, 0, nPos+nNeg)
	for range nPos {
		out = append(out, Positive)
	}
	for range nNeg {
		out = append(out, Negative)
	}
	return out
}

// FlattenLabels returns labels as a row-major (n, 2) slice.
func FlattenLabels(labels []Label) []float32 {
	out := make([]float32, 0, 2*len(labels))
	for _, l := range labels {
		out = append(out, l[0], l[1])
	}
	return out
}
