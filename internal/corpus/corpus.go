// Package corpus reads the newline-delimited tweet files the pipeline
// consumes.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/go-sentiprep/internal/errdefs"
)

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// Message is one raw input line. ID is set only for test rows.
type Message struct {
	ID    string
	HasID bool
	Text  string
}

// Texts returns the message texts in input order.
func Texts(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

// IDs returns the source ids in input order.
func IDs(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

// ReadTrainFile reads one labelled training file. Every line, including an
// empty one, becomes a Message so row counts match the file.
func ReadTrainFile(path string) ([]Message, error) {
	var msgs []Message
	err := scanFile(path, func(_ int, line string) error {
		msgs = append(msgs, Message{Text: line})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// ReadTestFile reads `id,text` rows. Only the first comma separates the id;
// the rest of the line is kept verbatim as text.
func ReadTestFile(path string) ([]Message, error) {
	var msgs []Message
	err := scanFile(path, func(lineNo int, line string) error {
		m, err := ParseTestLine(line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		msgs = append(msgs, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// ParseTestLine splits a test row on its first comma.
func ParseTestLine(line string) (Message, error) {
	id, text, ok := strings.Cut(line, ",")
	if !ok {
		return Message{}, fmt.Errorf("%w: test row has no id separator: %q", errdefs.ErrMalformedRecord, truncate(line, 40))
	}
	return Message{ID: id, HasID: true, Text: text}, nil
}

// ReadLines reads every line of r. Used for stdin input.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	err := scanLines(r, func(_ int, line string) error {
		lines = append(lines, line)
		return nil
	})
	return lines, err
}

func scanFile(path string, fn func(lineNo int, line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrResource, err)
	}
	defer f.Close()

	if err := scanLines(f, fn); err != nil {
		return err
	}
	return nil
}

func scanLines(r io.Reader, fn func(lineNo int, line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := fn(lineNo, sc.Text()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: read line %d: %w", errdefs.ErrResource, lineNo+1, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
