package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/bimmerbailey/chatsift/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.LLMConfig
		expectError bool
		errorMsg    string
	}{
		{
			name: "ollama - valid config",
			cfg: config.LLMConfig{
				Provider: "ollama",
				Ollama:   config.OllamaConfig{Host: "http://localhost:11434", Model: "llama3.2", KeepAlive: "5m"},
			},
		},
		{
			name: "ollama - provider name is case insensitive",
			cfg: config.LLMConfig{
				Provider: "Ollama",
				Ollama:   config.OllamaConfig{Host: "http://localhost:11434"},
			},
		},
		{
			name: "ollama - bad keep alive",
			cfg: config.LLMConfig{
				Provider: "ollama",
				Ollama:   config.OllamaConfig{Host: "http://localhost:11434", KeepAlive: "later"},
			},
			expectError: true,
			errorMsg:    "keep_alive",
		},
		{
			name:        "unknown provider",
			cfg:         config.LLMConfig{Provider: "gemini"},
			expectError: true,
			errorMsg:    "unknown llm provider",
		},
		{
			name:        "empty provider",
			cfg:         config.LLMConfig{Provider: ""},
			expectError: true,
			errorMsg:    "not specified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(&config.Config{LLM: tt.cfg}, testLogger())

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("error should contain %q, got: %v", tt.errorMsg, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider == nil {
				t.Fatal("expected provider but got nil")
			}
		})
	}
}

// TestNewProviderNilConfig verifies that nil config is rejected.
func TestNewProviderNilConfig(t *testing.T) {
	if _, err := NewProvider(nil, testLogger()); err == nil {
		t.Error("NewProvider() should reject nil config")
	}
}

// TestNewProviderNilLogger verifies that nil logger is rejected.
func TestNewProviderNilLogger(t *testing.T) {
	cfg := config.Default()
	if _, err := NewProvider(&cfg, nil); err == nil {
		t.Error("NewProvider() should reject nil logger")
	}
}

// TestAdapterChat drives the ollama adapter end to end against a fake server.
func TestAdapterChat(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(map[string]any{
				"model":             got["model"],
				"message":           map[string]string{"role": "assistant", "content": `{"label":"POSITIVE","score":0.9}`},
				"done":              true,
				"prompt_eval_count": 4,
				"eval_count":        6,
			})
		case "/":
			w.Write([]byte("Ollama is running"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.LLM.Ollama.Host = server.URL
	cfg.LLM.Ollama.Model = "test-model"

	provider, err := NewProvider(&cfg, testLogger())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	ctx := context.Background()
	if err := provider.Heartbeat(ctx); err != nil {
		t.Fatalf("Heartbeat() error = %v", err)
	}

	resp, err := provider.Chat(ctx, []Message{
		{Role: "system", Content: "classify"},
		{Role: "user", Content: "harika"},
	}, &ChatOptions{JSON: true})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if resp.Model != "test-model" || resp.TokensTotal != 10 {
		t.Errorf("Chat() = %+v", resp)
	}
	if got["format"] != "json" {
		t.Errorf("format = %v, want json", got["format"])
	}
	if msgs, _ := got["messages"].([]any); len(msgs) != 2 {
		t.Errorf("messages sent = %v", got["messages"])
	}
}

func TestAdapterChatUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	cfg := config.Default()
	cfg.LLM.Ollama.Host = server.URL

	provider, err := NewProvider(&cfg, testLogger())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if err := provider.Heartbeat(context.Background()); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Heartbeat() error = %v, want ErrProviderUnavailable", err)
	}
}
