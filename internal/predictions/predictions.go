// Package predictions writes the Id,Prediction submission file.
package predictions

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/example/go-sentiprep/internal/errdefs"
)

// Header is the first CSV row.
var Header = []string{"Id", "Prediction"}

// Label maps a class index to the submission value: 0 is -1, anything else 1.
func Label(class int) int {
	if class == 0 {
		return -1
	}
	return 1
}

// Labels applies Label to every class.
func Labels(classes []int) []int {
	out := make([]int, len(classes))
	for i, c := range classes {
		out[i] = Label(c)
	}
	return out
}

// Write emits the header then one row per id. ids and classes must be the
// same length.
func Write(w io.Writer, ids []string, classes []int) error {
	if len(ids) != len(classes) {
		return fmt.Errorf("%w: %d ids but %d predictions", errdefs.ErrMalformedRecord, len(ids), len(classes))
	}

	labels := Labels(classes)

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for i, id := range ids {
		if err := cw.Write([]string{id, strconv.Itoa(labels[i])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the CSV to path through a temp file in the same
// directory, so a failed run leaves any previous file untouched.
func WriteFile(path string, ids []string, classes []int) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", errdefs.ErrResource, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrResource, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = Write(tmp, ids, classes); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
