package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteLines writes lines joined by "\n" (with a trailing newline) to
// dir/name and returns the full path.
func WriteLines(tb testing.TB, dir, name string, lines ...string) string {
	tb.Helper()

	path := filepath.Join(dir, name)

	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		tb.Fatalf("write fixture %s: %v", path, err)
	}

	return path
}

// Corpus is a complete set of pipeline input files in one directory.
type Corpus struct {
	Dir        string
	Positive   string
	Negative   string
	Test       string
	Embeddings string
}

// WriteCorpus writes the four pipeline inputs into a fresh temp dir.
// embeddings holds raw "token f1 f2 ..." lines.
func WriteCorpus(tb testing.TB, pos, neg, test, embeddings []string) Corpus {
	tb.Helper()

	dir := tb.TempDir()

	return Corpus{
		Dir:        dir,
		Positive:   WriteLines(tb, dir, "train_pos.txt", pos...),
		Negative:   WriteLines(tb, dir, "train_neg.txt", neg...),
		Test:       WriteLines(tb, dir, "test_data.txt", test...),
		Embeddings: WriteLines(tb, dir, "embeddings.txt", embeddings...),
	}
}
