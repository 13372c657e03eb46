package prompt

import (
	"errors"
	"fmt"
)

// PromptType identifies the task a prompt asks the model to perform.
type PromptType string

const (
	// TypeEntities asks for the named entities in one message, with labels
	// and character offsets.
	TypeEntities PromptType = "entities"

	// TypeSentiment asks for the sentiment of one message.
	TypeSentiment PromptType = "sentiment"

	// TypeSentimentBatch asks for the sentiment of several numbered messages
	// in a single call.
	TypeSentimentBatch PromptType = "sentiment_batch"
)

// DefaultEntityLabels are the labels the tagger asks for when none are given.
var DefaultEntityLabels = []string{"PER", "LOC", "ORG", "MISC"}

// BuildOptions holds the inputs for a prompt. Which fields are required
// depends on the PromptType.
type BuildOptions struct {
	// Text is the message to analyse. Required for TypeEntities and
	// TypeSentiment.
	Text string

	// Texts are the messages for TypeSentimentBatch, in order.
	Texts []string

	// Labels restricts TypeEntities to these labels. Optional.
	Labels []string

	// Language is an ISO 639-1 hint such as "tr". Optional.
	Language string
}

var (
	// ErrMissingField is returned by [Build] when a required field for the
	// requested [PromptType] is absent from [BuildOptions].
	ErrMissingField = errors.New("prompt: missing required field")

	// ErrUnknownType is returned by [Build] for an unsupported PromptType.
	ErrUnknownType = errors.New("prompt: unknown prompt type")
)

func missingField(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
