package nlp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/bimmerbailey/chatsift/internal/llm"
	"github.com/bimmerbailey/chatsift/internal/prompt"
)

// Sentiment labels. Models may return other labels; those are kept as is.
const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelNeutral  = "NEUTRAL"
)

// DefaultBatchSize is the number of messages classified per model call.
const DefaultBatchSize = 10

// Sentiment is the classification of one message.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classifier assigns a sentiment to messages.
type Classifier interface {
	Classify(ctx context.Context, text string) (Sentiment, error)
	ClassifyBatch(ctx context.Context, texts []string) ([]Sentiment, error)
}

// LLMClassifier is a Classifier backed by a chat model.
type LLMClassifier struct {
	provider  llm.Provider
	opts      llm.ChatOptions
	batchSize int
	logger    *slog.Logger
}

// NewLLMClassifier creates a classifier. A batchSize below 1 uses
// DefaultBatchSize. opts.JSON is always set.
func NewLLMClassifier(provider llm.Provider, opts llm.ChatOptions, batchSize int, logger *slog.Logger) *LLMClassifier {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.JSON = true
	return &LLMClassifier{provider: provider, opts: opts, batchSize: batchSize, logger: logger}
}

type sentimentReply struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type batchReply struct {
	Results []struct {
		Index int     `json:"index"`
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Classify returns the sentiment of a single message. Blank text is
// NEUTRAL with score 0 and costs no model call.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (Sentiment, error) {
	if strings.TrimSpace(text) == "" {
		return Sentiment{Label: LabelNeutral}, nil
	}

	msgs, err := prompt.Build(prompt.TypeSentiment, prompt.BuildOptions{Text: text})
	if err != nil {
		return Sentiment{}, err
	}

	opts := c.opts
	resp, err := c.provider.Chat(ctx, msgs, &opts)
	if err != nil {
		return Sentiment{}, err
	}

	var reply sentimentReply
	if err := decodeReply(resp.Content, &reply); err != nil {
		return Sentiment{}, fmt.Errorf("%w: sentiment: %v", llm.ErrInvalidResponse, err)
	}
	if strings.TrimSpace(reply.Label) == "" {
		return Sentiment{}, fmt.Errorf("%w: sentiment: empty label", llm.ErrInvalidResponse)
	}

	return Sentiment{Label: normalizeLabel(reply.Label), Score: clamp01(reply.Score)}, nil
}

// ClassifyBatch classifies texts in chunks of the configured batch size.
// When a chunk reply cannot be matched one-to-one to its inputs, that
// chunk is classified one message at a time. Results are in input order.
func (c *LLMClassifier) ClassifyBatch(ctx context.Context, texts []string) ([]Sentiment, error) {
	out := make([]Sentiment, 0, len(texts))
	for _, chunk := range lo.Chunk(texts, c.batchSize) {
		results, err := c.classifyChunk(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			c.logger.Warn("batch classification failed, falling back to single messages",
				"size", len(chunk), "error", err)

			results = make([]Sentiment, len(chunk))
			for i, text := range chunk {
				s, err := c.Classify(ctx, text)
				if err != nil {
					return out, fmt.Errorf("classifying message %d: %w", len(out)+i, err)
				}
				results[i] = s
			}
		}
		out = append(out, results...)
	}
	return out, nil
}

func (c *LLMClassifier) classifyChunk(ctx context.Context, texts []string) ([]Sentiment, error) {
	if len(texts) == 1 {
		s, err := c.Classify(ctx, texts[0])
		if err != nil {
			return nil, err
		}
		return []Sentiment{s}, nil
	}

	msgs, err := prompt.Build(prompt.TypeSentimentBatch, prompt.BuildOptions{Texts: texts})
	if err != nil {
		return nil, err
	}

	opts := c.opts
	resp, err := c.provider.Chat(ctx, msgs, &opts)
	if err != nil {
		return nil, err
	}

	var reply batchReply
	if err := decodeReply(resp.Content, &reply); err != nil {
		return nil, fmt.Errorf("%w: batch: %v", llm.ErrInvalidResponse, err)
	}
	if len(reply.Results) != len(texts) {
		return nil, fmt.Errorf("%w: batch: got %d results for %d messages",
			llm.ErrInvalidResponse, len(reply.Results), len(texts))
	}

	results := make([]Sentiment, len(texts))
	filled := make([]bool, len(texts))
	for _, r := range reply.Results {
		if r.Index < 0 || r.Index >= len(texts) || filled[r.Index] || strings.TrimSpace(r.Label) == "" {
			return nil, fmt.Errorf("%w: batch: bad result index %d", llm.ErrInvalidResponse, r.Index)
		}
		results[r.Index] = Sentiment{Label: normalizeLabel(r.Label), Score: clamp01(r.Score)}
		filled[r.Index] = true
	}

	// Blank inputs are neutral regardless of what the model said.
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = Sentiment{Label: LabelNeutral}
		}
	}
	return results, nil
}

func normalizeLabel(label string) string {
	trimmed := strings.TrimSpace(label)
	switch upper := strings.ToUpper(trimmed); upper {
	case LabelPositive, LabelNegative, LabelNeutral:
		return upper
	default:
		return trimmed
	}
}
