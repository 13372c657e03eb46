// Package nlp runs entity tagging and sentiment classification over chat
// messages through an llm.Provider.
//
// Taggers and classifiers are explicit handles: build one with its
// constructor, then share it. They hold no mutable state.
package nlp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bimmerbailey/chatsift/internal/llm"
	"github.com/bimmerbailey/chatsift/internal/prompt"
)

// Entity is a labelled span of a message. Start and End are rune offsets,
// End exclusive.
type Entity struct {
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// Tagger finds named entities in text.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]Entity, error)
}

// LLMTagger is a Tagger backed by a chat model.
type LLMTagger struct {
	provider llm.Provider
	opts     llm.ChatOptions
	labels   []string
	logger   *slog.Logger
}

// NewLLMTagger creates a tagger. opts.JSON is always set. An empty labels
// list asks for prompt.DefaultEntityLabels.
func NewLLMTagger(provider llm.Provider, opts llm.ChatOptions, labels []string, logger *slog.Logger) *LLMTagger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.JSON = true
	return &LLMTagger{provider: provider, opts: opts, labels: labels, logger: logger}
}

type entityReply struct {
	Entities []struct {
		Text  string  `json:"text"`
		Label string  `json:"label"`
		Score float64 `json:"score"`
		Start *int    `json:"start"`
		End   *int    `json:"end"`
	} `json:"entities"`
}

// Tag asks the model for the entities in text. Blank text yields no
// entities without a model call. Entries whose text does not occur in the
// message, or that have no label, are dropped.
func (t *LLMTagger) Tag(ctx context.Context, text string) ([]Entity, error) {
	if strings.TrimSpace(text) == "" {
		return []Entity{}, nil
	}

	msgs, err := prompt.Build(prompt.TypeEntities, prompt.BuildOptions{Text: text, Labels: t.labels})
	if err != nil {
		return nil, err
	}

	opts := t.opts
	resp, err := t.provider.Chat(ctx, msgs, &opts)
	if err != nil {
		return nil, err
	}

	var reply entityReply
	if err := decodeReply(resp.Content, &reply); err != nil {
		return nil, fmt.Errorf("%w: entities: %v", llm.ErrInvalidResponse, err)
	}

	runes := []rune(text)
	entities := make([]Entity, 0, len(reply.Entities))
	for _, e := range reply.Entities {
		label := strings.TrimSpace(e.Label)
		if label == "" || strings.TrimSpace(e.Text) == "" {
			continue
		}

		start, end, ok := locate(runes, text, e.Text, e.Start, e.End)
		if !ok {
			t.logger.Debug("dropping entity not found in message", "entity", e.Text, "label", label)
			continue
		}

		entities = append(entities, Entity{
			Text:  string(runes[start:end]),
			Label: label,
			Score: clamp01(e.Score),
			Start: start,
			End:   end,
		})
	}
	return entities, nil
}

// locate returns the rune span of span in text. Model offsets are used when
// they address exactly span; otherwise the first occurrence is used.
func locate(runes []rune, text, span string, start, end *int) (int, int, bool) {
	if start != nil && end != nil {
		s, e := *start, *end
		if s >= 0 && e > s && e <= len(runes) && string(runes[s:e]) == span {
			return s, e, true
		}
	}

	idx := strings.Index(text, span)
	if idx < 0 {
		return 0, 0, false
	}
	s := len([]rune(text[:idx]))
	return s, s + len([]rune(span)), true
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
