package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/chatsift/internal/analyzer"
	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/llm"
	"github.com/bimmerbailey/chatsift/internal/nlp"
)

func entitiesFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("label", "l", "", "only keep entities with this label")
	cmd.Flags().StringP("query", "q", "", "only keep entities containing this text")
	cmd.Flags().Float64("min-score", 0, "minimum entity score between 0 and 1 (default ner.min_score)")
	cmd.Flags().Bool("no-stats", false, "omit the entity summary")
}

func sentimentFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("key", "k", nil, "only classify these author buckets")
	cmd.Flags().Bool("no-stats", false, "omit the sentiment summary")
}

type entitiesOutput struct {
	Messages []nlp.TaggedMessage  `json:"messages"`
	Stats    analyzer.EntityStats `json:"stats"`
}

const ankaraReply = `{"entities":[{"text":"Ankara","label":"LOC","score":0.9}]}`

func TestEntitiesJSON(t *testing.T) {
	resetConfig(t, "json")
	srv := newFakeOllama(t, ankaraReply)
	viper.Set("llm.ollama.host", srv.URL)

	file := writeTempFile(t, t.TempDir(), "chat.txt", sampleExport)

	var out bytes.Buffer
	if err := runEntities(newTestCmd(&out, entitiesFlags), []string{file}); err != nil {
		t.Fatalf("runEntities() error = %v", err)
	}

	var got entitiesOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v\noutput: %s", err, out.String())
	}

	if len(got.Messages) != 1 {
		t.Fatalf("got %d messages, want 1: %+v", len(got.Messages), got.Messages)
	}
	m := got.Messages[0]
	if m.Key != chat.AuthorKey("i") || m.Message != "Ankara'ya gidiyorum" {
		t.Errorf("message = %+v", m)
	}
	if len(m.Entities) != 1 || m.Entities[0].Start != 0 || m.Entities[0].End != 6 {
		t.Errorf("entities = %+v", m.Entities)
	}
	if got.Stats.TotalEntities != 1 || got.Stats.EntityCounts["LOC"] != 1 {
		t.Errorf("stats = %+v", got.Stats)
	}
}

func TestEntitiesFilters(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
		want  int
	}{
		{"label match", map[string]string{"label": "LOC"}, 1},
		{"label miss", map[string]string{"label": "PER"}, 0},
		{"query case-insensitive", map[string]string{"query": "ANKARA"}, 1},
		{"score too low", map[string]string{"min-score": "0.95"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetConfig(t, "json")
			srv := newFakeOllama(t, ankaraReply)
			viper.Set("llm.ollama.host", srv.URL)

			file := writeTempFile(t, t.TempDir(), "chat.txt", sampleExport)

			var out bytes.Buffer
			cmd := newTestCmd(&out, entitiesFlags)
			for name, value := range tt.flags {
				if err := cmd.Flags().Set(name, value); err != nil {
					t.Fatal(err)
				}
			}
			cmd.Flags().Set("no-stats", "true")

			if err := runEntities(cmd, []string{file}); err != nil {
				t.Fatalf("runEntities() error = %v", err)
			}

			var got []nlp.TaggedMessage
			if err := json.Unmarshal(out.Bytes(), &got); err != nil {
				t.Fatalf("failed to unmarshal JSON: %v\noutput: %s", err, out.String())
			}
			if len(got) != tt.want {
				t.Errorf("got %d messages, want %d", len(got), tt.want)
			}
		})
	}
}

func TestEntitiesProviderDown(t *testing.T) {
	resetConfig(t, "json")
	srv := httptest.NewServer(nil)
	srv.Close()
	viper.Set("llm.ollama.host", srv.URL)

	file := writeTempFile(t, t.TempDir(), "chat.txt", sampleExport)

	var out bytes.Buffer
	err := runEntities(newTestCmd(&out, entitiesFlags), []string{file})
	if !errors.Is(err, llm.ErrProviderUnavailable) {
		t.Errorf("runEntities() error = %v, want ErrProviderUnavailable", err)
	}
	if !strings.Contains(err.Error(), "ollama serve") {
		t.Errorf("error should suggest starting ollama: %v", err)
	}
}

type sentimentOutput struct {
	Messages []nlp.ClassifiedMessage `json:"messages"`
	Stats    analyzer.SentimentStats `json:"stats"`
}

func TestSentimentJSON(t *testing.T) {
	resetConfig(t, "json")
	srv := newFakeOllama(t, `{"label":"positive","score":0.8}`)
	viper.Set("llm.ollama.host", srv.URL)
	viper.Set("sentiment.batch_size", 1)

	file := writeTempFile(t, t.TempDir(), "chat.txt", sampleExport)

	var out bytes.Buffer
	if err := runSentiment(newTestCmd(&out, sentimentFlags), []string{file}); err != nil {
		t.Fatalf("runSentiment() error = %v", err)
	}

	var got sentimentOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v\noutput: %s", err, out.String())
	}

	if len(got.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(got.Messages))
	}
	for _, m := range got.Messages {
		if m.Sentiment.Label != nlp.LabelPositive {
			t.Errorf("label = %q, want %q", m.Sentiment.Label, nlp.LabelPositive)
		}
	}
	if got.Stats.TotalMessages != 3 || got.Stats.PositiveCount != 3 || got.Stats.PositivePercentage != 100 {
		t.Errorf("stats = %+v", got.Stats)
	}
}

func TestSentimentKeyFilter(t *testing.T) {
	resetConfig(t, "json")
	srv := newFakeOllama(t, `{"label":"NEGATIVE","score":0.7}`)
	viper.Set("llm.ollama.host", srv.URL)
	viper.Set("sentiment.batch_size", 1)

	file := writeTempFile(t, t.TempDir(), "chat.txt", sampleExport)

	var out bytes.Buffer
	cmd := newTestCmd(&out, sentimentFlags)
	cmd.Flags().Set("key", "ç")
	cmd.Flags().Set("no-stats", "true")
	if err := runSentiment(cmd, []string{file}); err != nil {
		t.Fatalf("runSentiment() error = %v", err)
	}

	var got []nlp.ClassifiedMessage
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v\noutput: %s", err, out.String())
	}
	if len(got) != 1 || got[0].Key != chat.AuthorKey("ç") || got[0].Message != "selam" {
		t.Errorf("got %+v, want the single ç message", got)
	}
}

func TestSelectKeys(t *testing.T) {
	s := chat.NewStore("i", "ç")
	s.Append("i", "bir")
	s.Append("ç", "iki")

	if got := selectKeys(s, nil); got != s {
		t.Error("selectKeys(nil) should return the store unchanged")
	}

	got := selectKeys(s, []string{"ç", "x"})
	if keys := got.Keys(); len(keys) != 2 || keys[0] != "ç" || keys[1] != "x" {
		t.Errorf("Keys() = %v, want [ç x]", keys)
	}
	if got.Len("ç") != 1 || got.Len("x") != 0 || got.Has("i") {
		t.Errorf("selected store = %v", got.Map())
	}
}
