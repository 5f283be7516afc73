package corpus

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-sentiprep/internal/errdefs"
	"github.com/example/go-sentiprep/internal/testutil"
)

// --- ParseTestLine ---

func TestParseTestLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantID   string
		wantText string
		wantErr  bool
	}{
		{"simple", "42,this is <user> great", "42", "this is <user> great", false},
		{"text keeps later commas", "7,a,b,,c", "7", "a,b,,c", false},
		{"empty text", "9,", "9", "", false},
		{"empty id", ",hello", "", "hello", false},
		{"no comma", "just text", "", "", true},
		{"blank", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTestLine(tt.line)
			if tt.wantErr {
				if !errors.Is(err, errdefs.ErrMalformedRecord) {
					t.Fatalf("ParseTestLine(%q) error = %v; want ErrMalformedRecord", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTestLine(%q) unexpected error: %v", tt.line, err)
			}
			if got.ID != tt.wantID || got.Text != tt.wantText || !got.HasID {
				t.Errorf("ParseTestLine(%q) = %+v; want id %q text %q", tt.line, got, tt.wantID, tt.wantText)
			}
		})
	}
}

// --- ReadTrainFile ---

func TestReadTrainFile_KeepsEveryLine(t *testing.T) {
	path := testutil.WriteLines(t, t.TempDir(), "pos.txt", "i love this", "", "great day\r")

	msgs, err := ReadTrainFile(path)
	if err != nil {
		t.Fatalf("ReadTrainFile: %v", err)
	}

	want := []string{"i love this", "", "great day"}
	if got := Texts(msgs); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("texts = %q; want %q", got, want)
	}
	for _, m := range msgs {
		if m.HasID {
			t.Errorf("train message %+v has an id", m)
		}
	}
}

func TestReadTrainFile_Missing(t *testing.T) {
	_, err := ReadTrainFile(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, errdefs.ErrResource) {
		t.Fatalf("error = %v; want ErrResource", err)
	}
}

// --- ReadTestFile ---

func TestReadTestFile_PreservesOrder(t *testing.T) {
	path := testutil.WriteLines(t, t.TempDir(), "test.txt", "3,c", "1,a", "2,b, too")

	msgs, err := ReadTestFile(path)
	if err != nil {
		t.Fatalf("ReadTestFile: %v", err)
	}

	if got := strings.Join(IDs(msgs), ","); got != "3,1,2" {
		t.Errorf("ids = %q; want %q", got, "3,1,2")
	}
	if msgs[2].Text != "b, too" {
		t.Errorf("text = %q; want %q", msgs[2].Text, "b, too")
	}
}

func TestReadTestFile_MalformedRowNamesLine(t *testing.T) {
	path := testutil.WriteLines(t, t.TempDir(), "test.txt", "1,ok", "broken")

	_, err := ReadTestFile(path)
	if !errors.Is(err, errdefs.ErrMalformedRecord) {
		t.Fatalf("error = %v; want ErrMalformedRecord", err)
	}
	if !strings.Contains(err.Error(), "test.txt:2") {
		t.Errorf("error %q does not name the failing line", err)
	}
}

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("a\nb\n\nc"))
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if len(lines) != 4 || lines[2] != "" || lines[3] != "c" {
		t.Errorf("lines = %q", lines)
	}
}
