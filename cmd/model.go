package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bimmerbailey/chatsift/internal/config"
	"github.com/bimmerbailey/chatsift/internal/llm"
)

// connectProvider builds the configured provider, bounded by llm.timeout,
// and checks that it is reachable. A missing model is only logged.
func connectProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llm.Provider, error) {
	p, err := llm.NewProvider(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	provider := llm.WithTimeout(p, cfg.LLM.TimeoutDuration())

	if err := provider.Heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("cannot connect to Ollama at %s: %w\n\nStart Ollama with: ollama serve",
			cfg.LLM.Ollama.Host, err)
	}

	if ok, err := provider.ModelAvailable(ctx, cfg.LLM.Ollama.Model); err != nil {
		logger.Debug("model lookup failed", "model", cfg.LLM.Ollama.Model, "error", err)
	} else if !ok {
		logger.Warn("model not found locally", "model", cfg.LLM.Ollama.Model)
	}

	return provider, nil
}

func chatOptions(cfg *config.Config) llm.ChatOptions {
	return llm.ChatOptions{
		Model:       cfg.LLM.Ollama.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
}
