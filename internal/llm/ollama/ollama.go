// Package ollama implements the llm.Provider interface on a local Ollama
// server.
//
// To avoid an import cycle this package defines its own request and response
// types; the parent llm package adapts them.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "llama3.2"

// Provider talks to an Ollama server.
type Provider struct {
	client    *api.Client
	config    Config
	keepAlive *api.Duration
	logger    *slog.Logger
}

// Config holds Ollama-specific configuration.
type Config struct {
	// Host is the Ollama API endpoint (e.g., "http://localhost:11434").
	// Empty means OLLAMA_HOST or the library default.
	Host string

	// Model is the default model to use (e.g., "llama3.2")
	Model string

	// KeepAlive is how long the server keeps the model loaded after a call.
	// Zero leaves the server default.
	KeepAlive time.Duration
}

// Message is a single chat turn.
type Message struct {
	Role    string
	Content string
}

// ChatOptions configures one call.
type ChatOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int

	// JSON constrains the model to emit a single JSON value.
	JSON bool
}

// Response is a complete, non-streamed reply.
type Response struct {
	Content      string
	Model        string
	TokensPrompt int
	TokensTotal  int
}

// Common errors
var (
	ErrProviderUnavailable = errors.New("llm provider is not reachable")
	ErrContextCanceled     = errors.New("operation was canceled")
)

var jsonFormat = json.RawMessage(`"json"`)

// New creates a new Ollama provider.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	client, err := api.ClientFromEnvironment()
	if err != nil {
		logger.Error("failed to create ollama client from environment", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if cfg.Host != "" {
		parsedURL, err := url.Parse(cfg.Host)
		if err != nil {
			logger.Error("invalid ollama host URL", "host", cfg.Host, "error", err)
			return nil, fmt.Errorf("invalid ollama host: %w", err)
		}
		client = api.NewClient(parsedURL, http.DefaultClient)
		logger.Debug("created ollama client with explicit host", "host", cfg.Host)
	} else {
		logger.Debug("created ollama client from environment")
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
		logger.Debug("using default model", "model", cfg.Model)
	}

	p := &Provider{client: client, config: cfg, logger: logger}
	if cfg.KeepAlive > 0 {
		p.keepAlive = &api.Duration{Duration: cfg.KeepAlive}
	}
	return p, nil
}

// Chat sends messages to Ollama and waits for the complete reply.
func (p *Provider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	if len(messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	model := p.config.Model
	temperature := float32(0)
	maxTokens := 0
	asJSON := false
	if opts != nil {
		if opts.Model != "" {
			model = opts.Model
		}
		temperature = opts.Temperature
		maxTokens = opts.MaxTokens
		asJSON = opts.JSON
	}

	p.logger.Debug("sending chat request",
		"model", model,
		"messages", len(messages),
		"temperature", temperature,
		"json", asJSON)

	ollamaMessages := make([]api.Message, len(messages))
	for i, msg := range messages {
		ollamaMessages[i] = api.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := &api.ChatRequest{
		Model:    model,
		Messages: ollamaMessages,
		Options: map[string]any{
			"temperature": temperature,
		},
		Stream:    new(bool),
		KeepAlive: p.keepAlive,
	}
	if maxTokens > 0 {
		req.Options["num_predict"] = maxTokens
	}
	if asJSON {
		req.Format = jsonFormat
	}

	var response api.ChatResponse
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		p.logger.Error("chat request failed", "error", err, "model", model)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrContextCanceled, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	p.logger.Debug("chat request completed",
		"model", response.Model,
		"prompt_tokens", response.PromptEvalCount,
		"total_tokens", response.EvalCount)

	return &Response{
		Content:      response.Message.Content,
		Model:        response.Model,
		TokensPrompt: response.PromptEvalCount,
		TokensTotal:  response.PromptEvalCount + response.EvalCount,
	}, nil
}

// Heartbeat checks if the Ollama service is reachable.
func (p *Provider) Heartbeat(ctx context.Context) error {
	p.logger.Debug("checking ollama heartbeat")

	if err := p.client.Heartbeat(ctx); err != nil {
		p.logger.Error("ollama heartbeat failed", "error", err)
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// ModelAvailable reports whether model has been pulled.
func (p *Provider) ModelAvailable(ctx context.Context, model string) (bool, error) {
	p.logger.Debug("checking model availability", "model", model)

	listResp, err := p.client.List(ctx)
	if err != nil {
		p.logger.Error("failed to list models", "error", err)
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	for _, m := range listResp.Models {
		if m.Name == model || m.Model == model {
			return true, nil
		}
	}

	p.logger.Debug("model not found", "model", model, "available_count", len(listResp.Models))
	return false, nil
}
