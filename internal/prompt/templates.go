package prompt

import (
	"fmt"
	"strings"

	"github.com/bimmerbailey/chatsift/internal/llm"
)

// Build constructs the messages for pt. The slice always starts with a
// system message followed by a single user message.
//
// Required fields per PromptType:
//   - TypeEntities, TypeSentiment: Text must be non-blank
//   - TypeSentimentBatch:          Texts must be non-empty
//
// Returns ErrMissingField if a required field is absent and ErrUnknownType
// for any other PromptType.
func Build(pt PromptType, opts BuildOptions) ([]llm.Message, error) {
	switch pt {
	case TypeEntities:
		return buildEntities(opts)
	case TypeSentiment:
		return buildSentiment(opts)
	case TypeSentimentBatch:
		return buildSentimentBatch(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, pt)
	}
}

func buildEntities(opts BuildOptions) ([]llm.Message, error) {
	if strings.TrimSpace(opts.Text) == "" {
		return nil, missingField("Text")
	}

	labels := opts.Labels
	if len(labels) == 0 {
		labels = DefaultEntityLabels
	}

	var sb strings.Builder
	appendLanguage(&sb, opts.Language)
	sb.WriteString("Message:\n")
	sb.WriteString(opts.Text)

	return []llm.Message{
		{Role: "system", Content: fmt.Sprintf(entitiesSystem, strings.Join(labels, ", "))},
		{Role: "user", Content: sb.String()},
	}, nil
}

func buildSentiment(opts BuildOptions) ([]llm.Message, error) {
	if strings.TrimSpace(opts.Text) == "" {
		return nil, missingField("Text")
	}

	var sb strings.Builder
	appendLanguage(&sb, opts.Language)
	sb.WriteString("Message:\n")
	sb.WriteString(opts.Text)

	return []llm.Message{
		{Role: "system", Content: systemPrompt(TypeSentiment)},
		{Role: "user", Content: sb.String()},
	}, nil
}

func buildSentimentBatch(opts BuildOptions) ([]llm.Message, error) {
	if len(opts.Texts) == 0 {
		return nil, missingField("Texts")
	}

	var sb strings.Builder
	appendLanguage(&sb, opts.Language)
	fmt.Fprintf(&sb, "Classify these %d messages:\n", len(opts.Texts))
	for i, text := range opts.Texts {
		// One line per message keeps the numbering unambiguous.
		fmt.Fprintf(&sb, "[%d] %s\n", i, strings.ReplaceAll(text, "\n", " "))
	}

	return []llm.Message{
		{Role: "system", Content: systemPrompt(TypeSentimentBatch)},
		{Role: "user", Content: sb.String()},
	}, nil
}

func appendLanguage(sb *strings.Builder, lang string) {
	if lang == "" {
		return
	}
	fmt.Fprintf(sb, "Language: %s\n\n", lang)
}
