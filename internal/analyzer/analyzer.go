// Package analyzer computes message, word, entity and sentiment statistics
// over a chat store and the results of the nlp taggers.
package analyzer

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/nlp"
)

const (
	// DefaultTopWords is the number of words MostCommonWords returns when
	// asked for zero or fewer.
	DefaultTopWords = 10
	// MinWordLength is the shortest word, in runes, counted by MostCommonWords.
	MinWordLength = 3

	previewRunes      = 100
	uniqueSpansPerTag = 10
)

var (
	emojiRun = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2702}-\x{27B0}\x{24C2}-\x{1F251}]+`)
	wordRun  = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// stopWords are frequent Turkish function words left out of word counts.
var stopWords = map[string]struct{}{
	"bir": {}, "bu": {}, "şu": {}, "o": {}, "ve": {}, "ile": {}, "için": {}, "gibi": {}, "kadar": {},
	"de": {}, "da": {}, "ki": {}, "mi": {}, "mı": {}, "mu": {}, "mü": {}, "var": {}, "yok": {},
	"ben": {}, "sen": {}, "biz": {}, "siz": {}, "onlar": {}, "benim": {}, "senin": {},
}

// MessageStats holds aggregate statistics for a list of messages.
type MessageStats struct {
	TotalMessages           int     `json:"total_messages"`
	TotalWords              int     `json:"total_words"`
	TotalCharacters         int     `json:"total_characters"`
	TotalEmojis             int     `json:"total_emojis"`
	AvgWordsPerMessage      float64 `json:"avg_words_per_message"`
	AvgCharactersPerMessage float64 `json:"avg_characters_per_message"`
	LongestMessage          string  `json:"longest_message"`
	LongestMessageLength    int     `json:"longest_message_length"`
	ShortestMessage         string  `json:"shortest_message"`
	ShortestMessageLength   int     `json:"shortest_message_length"`
	Language                string  `json:"language,omitempty"`
}

// WordCount is a word and how often it appears.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// AuthorShare is one bucket's share of all messages.
type AuthorShare struct {
	Key     chat.AuthorKey `json:"key"`
	Count   int            `json:"count"`
	Percent float64        `json:"percent"`
}

// AuthorStats is the statistics of one bucket.
type AuthorStats struct {
	Key   chat.AuthorKey `json:"key"`
	Stats MessageStats   `json:"stats"`
}

// EntityStats summarises tagged entities.
type EntityStats struct {
	TotalEntities  int                 `json:"total_entities"`
	EntityCounts   map[string]int      `json:"entity_counts"`
	UniqueEntities map[string][]string `json:"unique_entities"`
}

// SentimentStats summarises classified messages.
type SentimentStats struct {
	TotalMessages      int     `json:"total_messages"`
	PositiveCount      int     `json:"positive_count"`
	NegativeCount      int     `json:"negative_count"`
	PositivePercentage float64 `json:"positive_percentage"`
	NegativePercentage float64 `json:"negative_percentage"`
	AvgPositiveScore   float64 `json:"avg_positive_score"`
	AvgNegativeScore   float64 `json:"avg_negative_score"`
}

// Report is the full statistics output for a store.
type Report struct {
	TotalMessages int           `json:"total_messages"`
	Authors       []AuthorStats `json:"authors"`
	Shares        []AuthorShare `json:"shares"`
	TopWords      []WordCount   `json:"top_words"`
}

// Analyzer computes statistics. It is not safe for concurrent use.
type Analyzer struct {
	lower cases.Caser
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{lower: cases.Lower(language.Turkish)}
}

// CountWords returns the number of whitespace separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountEmojis returns the number of emoji runs in text. Adjacent emoji count
// once.
func CountEmojis(text string) int {
	return len(emojiRun.FindAllStringIndex(text, -1))
}

// MessageStats computes statistics for msgs. An empty list yields the zero
// value. Lengths are in runes.
func (a *Analyzer) MessageStats(msgs []string) MessageStats {
	if len(msgs) == 0 {
		return MessageStats{}
	}

	stats := MessageStats{
		TotalMessages:   len(msgs),
		TotalWords:      lo.SumBy(msgs, CountWords),
		TotalCharacters: lo.SumBy(msgs, utf8.RuneCountInString),
		TotalEmojis:     lo.SumBy(msgs, CountEmojis),
	}
	stats.AvgWordsPerMessage = round2(float64(stats.TotalWords) / float64(stats.TotalMessages))
	stats.AvgCharactersPerMessage = round2(float64(stats.TotalCharacters) / float64(stats.TotalMessages))

	// First message wins ties on both ends.
	longest := lo.MaxBy(msgs, func(x, y string) bool {
		return utf8.RuneCountInString(x) > utf8.RuneCountInString(y)
	})
	shortest := lo.MinBy(msgs, func(x, y string) bool {
		return utf8.RuneCountInString(x) < utf8.RuneCountInString(y)
	})

	stats.LongestMessageLength = utf8.RuneCountInString(longest)
	stats.LongestMessage = preview(longest)
	stats.ShortestMessage = shortest
	stats.ShortestMessageLength = utf8.RuneCountInString(shortest)
	stats.Language = dominantLanguage(msgs)

	return stats
}

// MostCommonWords returns the topN most frequent words across msgs after
// Turkish lower-casing. Stop words and words shorter than MinWordLength
// runes are ignored. Ties are broken alphabetically.
func (a *Analyzer) MostCommonWords(msgs []string, topN int) []WordCount {
	if topN <= 0 {
		topN = DefaultTopWords
	}

	counts := make(map[string]int)
	for _, msg := range msgs {
		for _, w := range wordRun.FindAllString(a.lower.String(msg), -1) {
			if utf8.RuneCountInString(w) < MinWordLength {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			counts[w]++
		}
	}

	return topWords(counts, topN)
}

func topWords(counts map[string]int, n int) []WordCount {
	words := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		words = append(words, WordCount{Word: w, Count: c})
	}

	slices.SortFunc(words, func(x, y WordCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return strings.Compare(x.Word, y.Word)
	})

	if len(words) > n {
		words = words[:n]
	}
	return words
}

// CompareAuthors computes MessageStats for every bucket of store in key
// order.
func (a *Analyzer) CompareAuthors(store *chat.Store) []AuthorStats {
	keys := store.Keys()
	out := make([]AuthorStats, 0, len(keys))
	for _, k := range keys {
		out = append(out, AuthorStats{Key: k, Stats: a.MessageStats(store.Messages(k))})
	}
	return out
}

// Shares returns each bucket's share of the store's messages, largest first.
// Buckets of equal size keep key order.
func (a *Analyzer) Shares(store *chat.Store) []AuthorShare {
	total := store.Total()
	keys := store.Keys()
	out := make([]AuthorShare, 0, len(keys))
	for _, k := range keys {
		share := AuthorShare{Key: k, Count: store.Len(k)}
		if total > 0 {
			share.Percent = round2(float64(share.Count) * 100 / float64(total))
		}
		out = append(out, share)
	}

	slices.SortStableFunc(out, func(x, y AuthorShare) int {
		return cmp.Compare(y.Count, x.Count)
	})
	return out
}

// Report computes the per-author statistics, shares and the topN words of
// the whole store.
func (a *Analyzer) Report(store *chat.Store, topN int) Report {
	var all []string
	for _, k := range store.Keys() {
		all = append(all, store.Messages(k)...)
	}

	return Report{
		TotalMessages: store.Total(),
		Authors:       a.CompareAuthors(store),
		Shares:        a.Shares(store),
		TopWords:      a.MostCommonWords(all, topN),
	}
}

// EntityStats counts entities per label and collects up to ten distinct
// spans per label in order of first appearance. Entities with an empty
// label count as UNKNOWN.
func (a *Analyzer) EntityStats(msgs []nlp.TaggedMessage) EntityStats {
	stats := EntityStats{
		EntityCounts:   make(map[string]int),
		UniqueEntities: make(map[string][]string),
	}

	for _, m := range msgs {
		for _, e := range m.Entities {
			label := e.Label
			if label == "" {
				label = "UNKNOWN"
			}
			stats.TotalEntities++
			stats.EntityCounts[label]++

			spans := stats.UniqueEntities[label]
			if len(spans) < uniqueSpansPerTag && !slices.Contains(spans, e.Text) {
				stats.UniqueEntities[label] = append(spans, e.Text)
			}
		}
	}
	return stats
}

// SentimentStats summarises msgs. Averages are over the messages carrying
// that label; an empty list yields the zero value.
func (a *Analyzer) SentimentStats(msgs []nlp.ClassifiedMessage) SentimentStats {
	if len(msgs) == 0 {
		return SentimentStats{}
	}

	positive := lo.Filter(msgs, func(m nlp.ClassifiedMessage, _ int) bool {
		return m.Sentiment.Label == nlp.LabelPositive
	})
	negative := lo.Filter(msgs, func(m nlp.ClassifiedMessage, _ int) bool {
		return m.Sentiment.Label == nlp.LabelNegative
	})
	score := func(m nlp.ClassifiedMessage) float64 { return m.Sentiment.Score }

	total := float64(len(msgs))
	return SentimentStats{
		TotalMessages:      len(msgs),
		PositiveCount:      len(positive),
		NegativeCount:      len(negative),
		PositivePercentage: float64(len(positive)) / total * 100,
		NegativePercentage: float64(len(negative)) / total * 100,
		AvgPositiveScore:   lo.SumBy(positive, score) / float64(max(len(positive), 1)),
		AvgNegativeScore:   lo.SumBy(negative, score) / float64(max(len(negative), 1)),
	}
}

// dominantLanguage returns the ISO 639-1 code detected for the most
// messages, or "" when none could be detected.
func dominantLanguage(msgs []string) string {
	counts := make(map[string]int)
	for _, msg := range msgs {
		if strings.TrimSpace(msg) == "" {
			continue
		}
		info := whatlanggo.Detect(msg)
		if code := info.Lang.Iso6391(); code != "" {
			counts[code]++
		}
	}
	if len(counts) == 0 {
		return ""
	}
	return topWords(counts, 1)[0].Word
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "..."
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
