package export

import (
	"github.com/bimmerbailey/chatsift/internal/analyzer"
	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/nlp"
)

// StoreRows flattens a store to one row per message in key order.
func StoreRows(store *chat.Store) []Row {
	rows := make([]Row, 0, store.Total())
	for _, k := range store.Keys() {
		for i, msg := range store.Messages(k) {
			rows = append(rows, Row{"key": string(k), "index": i, "message": msg})
		}
	}
	return rows
}

// EntityRows flattens tagged messages to one row per entity. A message with
// no entities still gets one row with empty entity columns.
func EntityRows(msgs []nlp.TaggedMessage) []Row {
	rows := make([]Row, 0, len(msgs))
	for _, m := range msgs {
		if len(m.Entities) == 0 {
			rows = append(rows, Row{"key": string(m.Key), "text": m.Message, "entity": "", "label": "", "score": ""})
			continue
		}
		for _, e := range m.Entities {
			rows = append(rows, Row{
				"key":    string(m.Key),
				"text":   m.Message,
				"entity": e.Text,
				"label":  e.Label,
				"score":  e.Score,
			})
		}
	}
	return rows
}

// SentimentRows flattens classified messages to one row per message.
func SentimentRows(msgs []nlp.ClassifiedMessage) []Row {
	rows := make([]Row, 0, len(msgs))
	for _, m := range msgs {
		rows = append(rows, Row{
			"key":     string(m.Key),
			"message": m.Message,
			"label":   m.Sentiment.Label,
			"score":   m.Sentiment.Score,
		})
	}
	return rows
}

// StatsRows flattens per-author statistics to one row per author.
func StatsRows(authors []analyzer.AuthorStats) []Row {
	rows := make([]Row, 0, len(authors))
	for _, a := range authors {
		s := a.Stats
		rows = append(rows, Row{
			"key":                        string(a.Key),
			"total_messages":             s.TotalMessages,
			"total_words":                s.TotalWords,
			"total_characters":           s.TotalCharacters,
			"total_emojis":               s.TotalEmojis,
			"avg_words_per_message":      s.AvgWordsPerMessage,
			"avg_characters_per_message": s.AvgCharactersPerMessage,
			"longest_message":            s.LongestMessage,
			"shortest_message":           s.ShortestMessage,
			"language":                   s.Language,
		})
	}
	return rows
}
