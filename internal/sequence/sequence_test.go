package sequence

import (
	"slices"
	"testing"
)

// --- Pad ---

func TestPad(t *testing.T) {
	tests := []struct {
		name   string
		seq    []int32
		length int
		want   []int32
	}{
		{"shorter", []int32{5, 6}, 4, []int32{0, 0, 5, 6}},
		{"exact", []int32{1, 2, 3}, 3, []int32{1, 2, 3}},
		{"longer keeps most recent", []int32{1, 2, 3, 4, 5}, 3, []int32{3, 4, 5}},
		{"empty", []int32{}, 3, []int32{0, 0, 0}},
		{"nil", nil, 2, []int32{0, 0}},
		{"zero length", []int32{1}, 0, []int32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pad([][]int32{tt.seq}, tt.length)
			if len(got) != 1 {
				t.Fatalf("rows = %d; want 1", len(got))
			}
			if !slices.Equal(got[0], tt.want) {
				t.Errorf("Pad(%v, %d) = %v; want %v", tt.seq, tt.length, got[0], tt.want)
			}
		})
	}
}

func TestPad_LeadingZerosRoundTrip(t *testing.T) {
	const length = 10
	for n := 0; n < length; n++ {
		seq := make([]int32, n)
		for i := range seq {
			seq[i] = int32(i + 1)
		}

		row := Pad([][]int32{seq}, length)[0]
		zeros := length - n
		for i := 0; i < zeros; i++ {
			if row[i] != 0 {
				t.Fatalf("n=%d: row[%d] = %d; want 0", n, i, row[i])
			}
		}
		if !slices.Equal(row[zeros:], seq) {
			t.Fatalf("n=%d: tail %v; want %v", n, row[zeros:], seq)
		}
	}
}

func TestPad_DoesNotAliasInput(t *testing.T) {
	seq := []int32{1, 2, 3}
	rows := Pad([][]int32{seq}, 3)
	rows[0][0] = 99
	if seq[0] != 1 {
		t.Error("Pad output aliases its input")
	}
}

func TestPad_RowsIndependent(t *testing.T) {
	rows := Pad([][]int32{{1}, {2}}, 2)
	rows[0] = append(rows[0], 7)
	if rows[1][0] != 0 || rows[1][1] != 2 {
		t.Errorf("appending to row 0 changed row 1: %v", rows[1])
	}
}

func TestFlatten(t *testing.T) {
	got := Flatten([][]int32{{0, 1}, {2, 3}})
	if !slices.Equal(got, []int32{0, 1, 2, 3}) {
		t.Errorf("Flatten = %v", got)
	}
	if Flatten(nil) != nil {
		t.Error("Flatten(nil) should be nil")
	}
}

// --- BuildLabels ---

func TestBuildLabels_Ordering(t *testing.T) {
	got := BuildLabels(3, 3)
	want := []Label{{0, 1}, {0, 1}, {0, 1}, {1, 0}, {1, 0}, {1, 0}}

	if !slices.Equal(got, want) {
		t.Errorf("BuildLabels(3, 3) = %v; want %v", got, want)
	}
}

func TestBuildLabels_Uneven(t *testing.T) {
	got := BuildLabels(1, 2)
	if len(got) != 3 || got[0].Class() != 1 || got[1].Class() != 0 || got[2].Class() != 0 {
		t.Errorf("BuildLabels(1, 2) = %v", got)
	}
	if n := len(BuildLabels(0, 0)); n != 0 {
		t.Errorf("BuildLabels(0, 0) len = %d", n)
	}
	if n := len(BuildLabels(-1, 2)); n != 2 {
		t.Errorf("BuildLabels(-1, 2) len = %d; want 2", n)
	}
}

func TestFlattenLabels(t *testing.T) {
	got := FlattenLabels([]Label{Positive, Negative})
	if !slices.Equal(got, []float32{0, 1, 1, 0}) {
		t.Errorf("FlattenLabels = %v", got)
	}
}
