package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bimmerbailey/chatsift/internal/analyzer"
	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/nlp"
	"github.com/bimmerbailey/chatsift/internal/pii"
	"github.com/bimmerbailey/chatsift/internal/store"
	"github.com/bimmerbailey/chatsift/internal/tail"
)

func testStore() *chat.Store {
	s := chat.NewStore("i", "g")
	s.Append("i", "merhaba")
	s.Append("i", "nasılsın")
	s.Append("unknown", "kim")
	return s
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":  FormatJSON,
		"TABLE": FormatTable,
		"text":  FormatText,
		"":      FormatText,
		"xml":   FormatText,
	}
	for in, want := range tests {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteStore(t *testing.T) {
	tests := []struct {
		format Format
		want   []string
	}{
		{FormatText, []string{"== i == (2)", "  merhaba", "== g == (0)", "== unknown == (1)", "  kim"}},
		{FormatTable, []string{"merhaba", "nasılsın", "unknown"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := New(buf, tt.format).WriteStore(testStore()); err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestWriteStoreJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := New(buf, FormatJSON).WriteStore(testStore()); err != nil {
		t.Fatal(err)
	}

	var got map[string][]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(got["i"]) != 2 || len(got["g"]) != 0 || got["unknown"][0] != "kim" {
		t.Errorf("decoded = %v", got)
	}
}

func TestWriteReport(t *testing.T) {
	report := analyzer.New().Report(testStore(), 5)

	for _, format := range []Format{FormatText, FormatTable} {
		t.Run(string(format), func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := New(buf, format).WriteReport(report); err != nil {
				t.Fatal(err)
			}
			out := buf.String()
			for _, want := range []string{"i", "66.7%", "merhaba"} {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestWritePII(t *testing.T) {
	s := chat.NewStore("i")
	s.Append("i", "mail me at a@b.com")
	results := pii.ExtractStore(s)

	buf := &bytes.Buffer{}
	if err := New(buf, FormatText).WritePII(s.Keys(), results); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "a@b.com") {
		t.Errorf("output missing email:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), string(pii.CreditCardNumbers)) {
		t.Errorf("empty categories should be omitted:\n%s", buf.String())
	}
}

func TestWriteEntitiesAndStats(t *testing.T) {
	msgs := []nlp.TaggedMessage{
		{Key: "i", Message: "Ahmet Ankara'da", Entities: []nlp.Entity{
			{Text: "Ahmet", Label: "PER", Score: 0.91},
			{Text: "Ankara", Label: "LOC", Score: 0.8},
		}},
	}

	buf := &bytes.Buffer{}
	w := New(buf, FormatTable)
	if err := w.WriteEntities(msgs); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteEntityStats(analyzer.New().EntityStats(msgs)); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Ahmet", "0.91", "LOC", "Ankara"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestWriteSentimentStats(t *testing.T) {
	stats := analyzer.SentimentStats{TotalMessages: 4, PositiveCount: 1, PositivePercentage: 25, AvgPositiveScore: 0.9}

	buf := &bytes.Buffer{}
	if err := New(buf, FormatText).WriteSentimentStats(stats); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Positive: 1 (25.0%, avg score 0.90)") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteRuns(t *testing.T) {
	runs := []store.Run{{ID: "01ABC", Source: "chat.txt", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Lines: 5, Parsed: 4, Messages: 4}}

	buf := &bytes.Buffer{}
	if err := New(buf, FormatText).WriteRuns(runs); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "01ABC  2024-01-02 03:04:05  chat.txt  (4/5 lines, 4 messages)") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	buf.Reset()
	if err := New(buf, FormatJSON).WriteRuns(nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty runs JSON = %q", buf.String())
	}
}

func TestWriteEvent(t *testing.T) {
	ev := tail.Event{Key: "g", Record: chat.Record{Author: "Gül", Message: "a"}, Sanitized: "a"}

	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "[g] Gül: a\n"},
		{FormatTable, "g\tGül\ta\n"},
		{FormatJSON, `{"key":"g","author":"Gül","sanitized":"a"}` + "\n"},
	}
	for _, tt := range tests {
		buf := &bytes.Buffer{}
		if err := New(buf, tt.format).WriteEvent(ev); err != nil {
			t.Fatal(err)
		}
		if buf.String() != tt.want {
			t.Errorf("%s: got %q, want %q", tt.format, buf.String(), tt.want)
		}
	}
}

func TestWriteEvent_NeverEmitsRawMessage(t *testing.T) {
	raw := "IBAN TR33 0006 1005 1978 6457 8413 26"
	ev := tail.Event{
		Key:       "g",
		Record:    chat.Record{Author: "Gül", Message: raw},
		Sanitized: "IBAN **** **** **** ****",
	}

	for _, format := range []Format{FormatText, FormatTable, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := New(buf, format).WriteEvent(ev); err != nil {
				t.Fatal(err)
			}
			if strings.Contains(buf.String(), "TR33") {
				t.Errorf("output contains the raw message: %q", buf.String())
			}
			if !strings.Contains(buf.String(), ev.Sanitized) {
				t.Errorf("output missing sanitized message: %q", buf.String())
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("kısa", 10); got != "kısa" {
		t.Errorf("short = %q", got)
	}
	if got := truncate("çok uzun bir mesaj", 10); got != "çok uzu..." {
		t.Errorf("long = %q", got)
	}
	if got := truncate("iki\nsatır", 20); got != "iki satır" {
		t.Errorf("newline = %q", got)
	}
}
