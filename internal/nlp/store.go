package nlp

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bimmerbailey/chatsift/internal/chat"
)

// TaggedMessage is a message with the entities found in it.
type TaggedMessage struct {
	Key      chat.AuthorKey `json:"key"`
	Message  string         `json:"message"`
	Entities []Entity       `json:"entities"`
}

// ClassifiedMessage is a message with its sentiment.
type ClassifiedMessage struct {
	Key       chat.AuthorKey `json:"key"`
	Message   string         `json:"message"`
	Sentiment Sentiment      `json:"sentiment"`
}

// FilterByEntity returns the messages with at least one entity that scores
// at least minConfidence, carries exactly label (when label is set) and
// contains query ignoring case (when query is set). Case is folded both
// with Turkish rules and without, so dotted and dotless I match either way.
// Entities with an empty label never match. Input order is kept.
func FilterByEntity(msgs []TaggedMessage, label, query string, minConfidence float64) []TaggedMessage {
	folds := []cases.Caser{cases.Lower(language.Turkish), cases.Lower(language.Und)}
	queries := make([]string, len(folds))
	for i, c := range folds {
		queries[i] = c.String(query)
	}
	contains := func(text string) bool {
		for i, c := range folds {
			if strings.Contains(c.String(text), queries[i]) {
				return true
			}
		}
		return false
	}

	out := make([]TaggedMessage, 0)
	for _, m := range msgs {
		for _, e := range m.Entities {
			if e.Label == "" || e.Score < minConfidence {
				continue
			}
			if label != "" && e.Label != label {
				continue
			}
			if query != "" && !contains(e.Text) {
				continue
			}
			out = append(out, m)
			break
		}
	}
	return out
}

// TagStore tags every message of store in key order. A message whose
// tagging fails is logged and left out; blank messages are kept with no
// entities.
func TagStore(ctx context.Context, tagger Tagger, store *chat.Store, logger *slog.Logger) ([]TaggedMessage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	out := make([]TaggedMessage, 0, store.Total())
	for _, key := range store.Keys() {
		for i, msg := range store.Messages(key) {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			entities, err := tagger.Tag(ctx, msg)
			if err != nil {
				logger.Warn("entity tagging failed", "key", key, "index", i, "error", err)
				continue
			}
			out = append(out, TaggedMessage{Key: key, Message: msg, Entities: entities})
		}
	}
	return out, nil
}

// ClassifyStore classifies every message of store in key order, one batch
// call per chunk. When a whole bucket fails, messages are retried one at a
// time and failures are logged and left out.
func ClassifyStore(ctx context.Context, classifier Classifier, store *chat.Store, logger *slog.Logger) ([]ClassifiedMessage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	out := make([]ClassifiedMessage, 0, store.Total())
	for _, key := range store.Keys() {
		msgs := store.Messages(key)
		if len(msgs) == 0 {
			continue
		}

		results, err := classifier.ClassifyBatch(ctx, msgs)
		if err == nil && len(results) == len(msgs) {
			for i, msg := range msgs {
				out = append(out, ClassifiedMessage{Key: key, Message: msg, Sentiment: results[i]})
			}
			continue
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		logger.Warn("bucket classification failed, retrying per message", "key", key, "error", err)

		for i, msg := range msgs {
			s, err := classifier.Classify(ctx, msg)
			if err != nil {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}
				logger.Warn("sentiment classification failed", "key", key, "index", i, "error", err)
				continue
			}
			out = append(out, ClassifiedMessage{Key: key, Message: msg, Sentiment: s})
		}
	}
	return out, nil
}
