package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bimmerbailey/chatsift/internal/chat"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"dbg", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelError},
		{"random", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if !cfg.Redaction.MaskIBAN || !cfg.Redaction.MaskMedia {
		t.Error("IBAN and media masking should be on by default")
	}
	if cfg.Redaction.MaskEmails || cfg.Redaction.MaskPhones {
		t.Error("email and phone masking should be off by default")
	}
	if cfg.NER.MinScore != 0.6 {
		t.Errorf("NER.MinScore = %v, want 0.6", cfg.NER.MinScore)
	}
	if cfg.Sentiment.BatchSize != 10 {
		t.Errorf("Sentiment.BatchSize = %d, want 10", cfg.Sentiment.BatchSize)
	}
	if got := cfg.LLM.TimeoutDuration(); got != 2*time.Minute {
		t.Errorf("TimeoutDuration() = %v, want 2m", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"bad format", func(c *Config) { c.Format = "xml" }, true},
		{"bad export format", func(c *Config) { c.Export.DefaultFormat = "pdf" }, true},
		{"empty provider", func(c *Config) { c.LLM.Provider = "" }, true},
		{"min score above one", func(c *Config) { c.NER.MinScore = 1.5 }, true},
		{"zero batch size", func(c *Config) { c.Sentiment.BatchSize = 0 }, true},
		{"bad timeout", func(c *Config) { c.LLM.Timeout = "soon" }, true},
		{"day timeout", func(c *Config) { c.LLM.Timeout = "1d" }, false},
		{"bad keep alive", func(c *Config) { c.LLM.Ollama.KeepAlive = "forever" }, true},
		{"routing rule without key", func(c *Config) {
			c.Routing = []chat.Rule{{Prefix: "İrem"}}
		}, true},
		{"routing rules", func(c *Config) {
			c.Routing = []chat.Rule{{Prefix: "İrem", Key: "i"}, {Prefix: "Çağın", Key: "ç"}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestRedactionOptions(t *testing.T) {
	rc := RedactionConfig{MaskEmails: true, MediaMarker: "<m>", Terms: []string{"x"}}
	opts := rc.Options()
	if !opts.MaskEmails || opts.MaskIBAN || opts.MediaMarker != "<m>" || len(opts.Terms) != 1 {
		t.Errorf("Options() = %+v", opts)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".chatsift.yaml")

	cfg := Default()
	cfg.Routing = []chat.Rule{{Prefix: "İrem", Key: "i"}}
	if err := WriteDefault(path, cfg, false); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "mask_iban: true") {
		t.Errorf("written config missing redaction section:\n%s", data)
	}

	var back Config
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if len(back.Routing) != 1 || back.Routing[0].Key != "i" || back.Routing[0].Prefix != "İrem" {
		t.Errorf("routing round trip = %+v", back.Routing)
	}

	if err := WriteDefault(path, cfg, false); !errors.Is(err, ErrExists) {
		t.Errorf("second WriteDefault() error = %v, want ErrExists", err)
	}
	if err := WriteDefault(path, cfg, true); err != nil {
		t.Errorf("forced WriteDefault() error = %v", err)
	}
}
