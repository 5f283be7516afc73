package tokenizer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/example/go-sentiprep/internal/errdefs"
)

// Entry is one vocabulary row.
type Entry struct {
	Token string
	ID    int32
	Count int
}

// Vocabulary is an immutable token to id mapping. Id 0 is reserved for
// padding; real tokens start at 1.
type Vocabulary struct {
	maxWords int
	ids      map[string]int32
	entries  []Entry // entries[i].ID == i+1
}

// Fit counts whitespace tokens across all corpora and assigns ids 1..N by
// descending frequency. Ties keep first-seen order. maxWords caps what
// Transform emits, not what Fit records.
func Fit(corpora [][]string, maxWords int) (*Vocabulary, error) {
	if maxWords < 1 {
		return nil, fmt.Errorf("%w: max_nb_words must be positive, got %d", errdefs.ErrConfiguration, maxWords)
	}

	docs := 0
	counts := make(map[string]int)
	var order []string

	for _, corpus := range corpora {
		for _, doc := range corpus {
			docs++
			for _, tok := range strings.Fields(doc) {
				if _, seen := counts[tok]; !seen {
					order = append(order, tok)
				}
				counts[tok]++
			}
		}
	}

	if docs == 0 {
		return nil, fmt.Errorf("%w: no documents to fit", errdefs.ErrEmptyCorpus)
	}

	// Stable sort keeps first-seen order among equal counts.
	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})

	entries := make([]Entry, len(order))
	for i, tok := range order {
		entries[i] = Entry{Token: tok, ID: int32(i + 1), Count: counts[tok]}
	}

	return newVocabulary(entries, maxWords), nil
}

// Restore rebuilds a vocabulary from persisted entries. Entries must carry
// dense ids 1..N in order.
func Restore(entries []Entry, maxWords int) (*Vocabulary, error) {
	if maxWords < 1 {
		return nil, fmt.Errorf("%w: max_nb_words must be positive, got %d", errdefs.ErrConfiguration, maxWords)
	}

	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.ID != int32(i+1) {
			return nil, fmt.Errorf("%w: vocabulary entry %d has id %d", errdefs.ErrMalformedRecord, i, e.ID)
		}
		if _, dup := seen[e.Token]; dup || e.Token == "" {
			return nil, fmt.Errorf("%w: vocabulary token %q repeated or empty", errdefs.ErrMalformedRecord, e.Token)
		}
		seen[e.Token] = struct{}{}
	}

	return newVocabulary(slices.Clone(entries), maxWords), nil
}

func newVocabulary(entries []Entry, maxWords int) *Vocabulary {
	ids := make(map[string]int32, len(entries))
	for _, e := range entries {
		ids[e.Token] = e.ID
	}
	return &Vocabulary{maxWords: maxWords, ids: ids, entries: entries}
}

// Transform maps each document to ids. Unknown tokens and tokens whose id
// is at or above MaxWords are dropped.
func (v *Vocabulary) Transform(corpus []string) [][]int32 {
	out := make([][]int32, len(corpus))
	for i, doc := range corpus {
		seq := []int32{}
		for _, tok := range strings.Fields(doc) {
			id, ok := v.ids[tok]
			if !ok || int(id) >= v.maxWords {
				continue
			}
			seq = append(seq, id)
		}
		out[i] = seq
	}
	return out
}

// Len is the number of distinct tokens seen by Fit.
func (v *Vocabulary) Len() int { return len(v.entries) }

// MaxWords is the transform cap.
func (v *Vocabulary) MaxWords() int { return v.maxWords }

// ID returns the id of tok regardless of the cap.
func (v *Vocabulary) ID(tok string) (int32, bool) {
	id, ok := v.ids[tok]
	return id, ok
}

// Token returns the token for id.
func (v *Vocabulary) Token(id int32) (string, bool) {
	if id < 1 || int(id) > len(v.entries) {
		return "", false
	}
	return v.entries[id-1].Token, true
}

// Count returns the fitted frequency of tok.
func (v *Vocabulary) Count(tok string) int {
	id, ok := v.ids[tok]
	if !ok {
		return 0
	}
	return v.entries[id-1].Count
}

// Entries returns a copy of all entries ordered by id.
func (v *Vocabulary) Entries() []Entry {
	return slices.Clone(v.entries)
}
