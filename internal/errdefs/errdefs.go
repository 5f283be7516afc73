// Package errdefs holds the sentinel errors shared by every preprocessing
// stage. Callers wrap them with context and match with errors.Is.
package errdefs

import "errors"

var (
	// ErrResource indicates an input file is missing or unreadable.
	ErrResource = errors.New("resource unavailable")

	// ErrMalformedRecord indicates an embedding line or test row could not be parsed.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrEmptyCorpus indicates a vocabulary was fitted on zero documents.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrInvalidFraction indicates a validation fraction outside (0, 1).
	ErrInvalidFraction = errors.New("invalid validation fraction")

	// ErrConfiguration indicates a missing or out-of-range option.
	ErrConfiguration = errors.New("invalid configuration")
)
