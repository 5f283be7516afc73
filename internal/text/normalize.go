// Package text turns raw tweets into the normalized token strings the
// vocabulary is fitted on.
package text

import (
	"strings"
	"unicode"
)

type options struct {
	removeStopwords bool
	stem            bool
}

// Option configures Normalize.
type Option func(*options)

// WithStopwords drops English stopwords before cleaning.
func WithStopwords(enabled bool) Option {
	return func(o *options) { o.removeStopwords = enabled }
}

// WithStemming reduces every cleaned token to its Snowball English stem.
func WithStemming(enabled bool) Option {
	return func(o *options) { o.stem = enabled }
}

// Normalize lowercases s, optionally drops stopwords, runs the cleaning
// chain and optionally stems the result. It never fails; an input with no
// surviving characters yields "" or a single space.
//
// The output is not trimmed: a leading placeholder such as "<user> hi"
// leaves " hi". Consumers split on whitespace.
func Normalize(s string, opts ...Option) string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	words := fields(lower(s))
	if o.removeStopwords {
		kept := words[:0]
		for _, w := range words {
			if !IsStopword(w) {
				kept = append(kept, w)
			}
		}
		words = kept
	}

	out := Clean(strings.Join(words, " "))

	if o.stem {
		out = stemAll(out)
	}

	return out
}

// NormalizeAll normalizes every line, preserving order and cardinality.
func NormalizeAll(lines []string, opts ...Option) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Normalize(l, opts...)
	}
	return out
}

// lower is strings.ToLower except that U+0130 becomes "i" plus a combining
// dot above, the full Unicode lowercase mapping, instead of a bare "i".
func lower(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "\u0130", "i\u0307"))
}

// fields splits on Unicode whitespace plus the ASCII information separators
// (0x1c-0x1f), which str.split-style tokenizers also treat as blanks.
func fields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
	})
}
