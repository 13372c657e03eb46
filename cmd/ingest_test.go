package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/parser"
	"github.com/bimmerbailey/chatsift/internal/redact"
)

func TestIngestJSON(t *testing.T) {
	resetConfig(t, "json")

	dir := t.TempDir()
	file := writeTempFile(t, dir, "chat.txt", sampleExport)

	var out bytes.Buffer
	if err := runIngest(newTestCmd(&out, nil), []string{file}); err != nil {
		t.Fatalf("runIngest() error = %v", err)
	}

	var got map[string][]string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v\noutput: %s", err, out.String())
	}

	want := map[string][]string{
		"i": {"Ankara'ya gidiyorum", "IBAN " + redact.IBANPlaceholder},
		"ç": {"selam"},
	}
	for k, msgs := range want {
		if !slices.Equal(got[k], msgs) {
			t.Errorf("bucket %q = %q, want %q", k, got[k], msgs)
		}
	}
	if len(got) != len(want) {
		t.Errorf("got %d buckets, want %d: %v", len(got), len(want), got)
	}
}

func TestIngestText(t *testing.T) {
	resetConfig(t, "text")

	dir := t.TempDir()
	file := writeTempFile(t, dir, "chat.txt", sampleExport)

	var out bytes.Buffer
	if err := runIngest(newTestCmd(&out, nil), []string{file}); err != nil {
		t.Fatalf("runIngest() error = %v", err)
	}

	want := "== i == (2)\n  Ankara'ya gidiyorum\n  IBAN " + redact.IBANPlaceholder + "\n== ç == (1)\n  selam\n"
	if out.String() != want {
		t.Errorf("output =\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestIngestMissingFile(t *testing.T) {
	resetConfig(t, "text")

	var out bytes.Buffer
	err := runIngest(newTestCmd(&out, nil), []string{filepath.Join(t.TempDir(), "nope.txt")})
	if !errors.Is(err, parser.ErrSourceNotFound) {
		t.Errorf("runIngest() error = %v, want ErrSourceNotFound", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

func TestIngestMultipleInputs(t *testing.T) {
	resetConfig(t, "json")

	dir := t.TempDir()
	writeTempFile(t, dir, "a.txt", []string{"12/05/24, 14:03 - Çağın: bir"})
	writeTempFile(t, dir, "b.txt", []string{"12/05/24, 14:03 - Çağın: iki"})

	var out bytes.Buffer
	if err := runIngest(newTestCmd(&out, nil), []string{filepath.Join(dir, "*.txt")}); err != nil {
		t.Fatalf("runIngest() error = %v", err)
	}

	var got map[string][]string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
	if !slices.Equal(got["ç"], []string{"bir", "iki"}) {
		t.Errorf("bucket ç = %q, want [bir iki]", got["ç"])
	}
}

func TestCheckTextInput(t *testing.T) {
	dir := t.TempDir()
	text := writeTempFile(t, dir, "chat.txt", sampleExport)
	empty := writeTempFile(t, dir, "empty.txt", nil)

	png := filepath.Join(dir, "photo.txt")
	if err := os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"text", text, nil},
		{"empty", empty, nil},
		{"binary", png, ErrNotText},
		{"missing", filepath.Join(dir, "nope.txt"), parser.ErrSourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTextInput(tt.path)
			if tt.want == nil && err != nil {
				t.Errorf("checkTextInput() error = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("checkTextInput() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCombined(t *testing.T) {
	a := chat.NewStore("i", "ç")
	a.Append("i", "bir")
	b := chat.NewStore("x", "i")
	b.Append("x", "iki")
	b.Append("i", "üç")

	got := combined([]ingested{{Sanitized: a}, {Sanitized: b}})

	if want := []chat.AuthorKey{"i", "ç", "x"}; !slices.Equal(got.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", got.Keys(), want)
	}
	if want := []string{"bir", "üç"}; !slices.Equal(got.Messages("i"), want) {
		t.Errorf("Messages(i) = %v, want %v", got.Messages("i"), want)
	}
	if got.Len("ç") != 0 || got.Len("x") != 1 {
		t.Errorf("Len(ç) = %d, Len(x) = %d", got.Len("ç"), got.Len("x"))
	}
}

func TestRedactionTotals(t *testing.T) {
	r, err := redact.New(redact.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	s := chat.NewStore("i")
	s.Append("i", "IBAN TR330006100519786457841326")
	s.Append("i", redact.DefaultMediaMarker)
	s.Append("i", "TR330006100519786457841326 ve DE89370400440532013000")

	totals := redactionTotals(r, s)
	if totals[redact.StepIBAN] != 3 {
		t.Errorf("iban total = %d, want 3", totals[redact.StepIBAN])
	}
	if totals[redact.StepMedia] != 1 {
		t.Errorf("media total = %d, want 1", totals[redact.StepMedia])
	}
}
