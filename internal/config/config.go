// Package config provides configuration types and helpers for chatsift.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/redact"
)

// ErrInvalid is returned when the loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the application-wide configuration.
type Config struct {
	Format    string          `mapstructure:"format" yaml:"format" validate:"oneof=text json table"`
	Verbose   bool            `mapstructure:"verbose" yaml:"verbose"`
	LogLevel  string          `mapstructure:"log_level" yaml:"log_level"`
	Routing   []chat.Rule     `mapstructure:"routing" yaml:"routing" validate:"dive"`
	Redaction RedactionConfig `mapstructure:"redaction" yaml:"redaction"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	NER       NERConfig       `mapstructure:"ner" yaml:"ner"`
	Sentiment SentimentConfig `mapstructure:"sentiment" yaml:"sentiment"`
	Export    ExportConfig    `mapstructure:"export" yaml:"export"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
}

// LLMConfig holds configuration for LLM providers.
type LLMConfig struct {
	// Provider selects which LLM to use. Only "ollama" is supported.
	Provider string `mapstructure:"provider" yaml:"provider" validate:"required"`

	Temperature float32 `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens" validate:"gte=0"`

	// Timeout bounds a single model call, e.g. "2m" or "1d".
	Timeout string `mapstructure:"timeout" yaml:"timeout"`

	Ollama OllamaConfig `mapstructure:"ollama" yaml:"ollama"`
}

// OllamaConfig holds Ollama-specific settings.
type OllamaConfig struct {
	Host      string `mapstructure:"host" yaml:"host"`             // API endpoint
	Model     string `mapstructure:"model" yaml:"model"`           // Default model name
	KeepAlive string `mapstructure:"keep_alive" yaml:"keep_alive"` // e.g., "5m"
}

// RedactionConfig selects the masking steps applied before anything is
// shown, exported or archived.
type RedactionConfig struct {
	MaskIBAN    bool     `mapstructure:"mask_iban" yaml:"mask_iban"`
	MaskMedia   bool     `mapstructure:"mask_media" yaml:"mask_media"`
	MaskEmails  bool     `mapstructure:"mask_emails" yaml:"mask_emails"`
	MaskPhones  bool     `mapstructure:"mask_phones" yaml:"mask_phones"`
	MediaMarker string   `mapstructure:"media_marker" yaml:"media_marker"`
	Terms       []string `mapstructure:"terms" yaml:"terms"`
}

// Options converts the section into redactor options.
func (r RedactionConfig) Options() redact.Options {
	return redact.Options{
		MaskIBAN:    r.MaskIBAN,
		MaskMedia:   r.MaskMedia,
		MaskEmails:  r.MaskEmails,
		MaskPhones:  r.MaskPhones,
		MediaMarker: r.MediaMarker,
		Terms:       r.Terms,
	}
}

// NERConfig holds entity extraction settings.
type NERConfig struct {
	MinScore float64 `mapstructure:"min_score" yaml:"min_score" validate:"gte=0,lte=1"`
	Label    string  `mapstructure:"label" yaml:"label"`
}

// SentimentConfig holds sentiment classification settings.
type SentimentConfig struct {
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size" validate:"gte=1"`
}

// ExportConfig controls file exports.
type ExportConfig struct {
	DefaultFormat   string `mapstructure:"default_format" yaml:"default_format" validate:"oneof=json csv xlsx"`
	OutputDirectory string `mapstructure:"output_directory" yaml:"output_directory"`
}

// StoreConfig locates the local archive database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	opts := redact.DefaultOptions()
	return Config{
		Format:   "text",
		LogLevel: "error",
		Routing:  []chat.Rule{},
		Redaction: RedactionConfig{
			MaskIBAN:    opts.MaskIBAN,
			MaskMedia:   opts.MaskMedia,
			MaskEmails:  opts.MaskEmails,
			MaskPhones:  opts.MaskPhones,
			MediaMarker: opts.MediaMarker,
			Terms:       []string{},
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Temperature: 0,
			MaxTokens:   1024,
			Timeout:     "2m",
			Ollama: OllamaConfig{
				Host:      "http://localhost:11434",
				Model:     "llama3.2",
				KeepAlive: "5m",
			},
		},
		NER:       NERConfig{MinScore: 0.6},
		Sentiment: SentimentConfig{BatchSize: 10},
		Export: ExportConfig{
			DefaultFormat:   "json",
			OutputDirectory: "exports",
		},
		Store: StoreConfig{Path: "chatsift.db"},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the extended duration fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.LLM.Timeout != "" {
		if _, err := ParseDuration(c.LLM.Timeout); err != nil {
			return fmt.Errorf("%w: llm.timeout: %v", ErrInvalid, err)
		}
	}
	if c.LLM.Ollama.KeepAlive != "" {
		if _, err := ParseDuration(c.LLM.Ollama.KeepAlive); err != nil {
			return fmt.Errorf("%w: llm.ollama.keep_alive: %v", ErrInvalid, err)
		}
	}
	return nil
}

// TimeoutDuration returns the parsed LLM timeout, or 0 when none is set.
func (c LLMConfig) TimeoutDuration() time.Duration {
	d, err := ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ParseLevel converts a level name to a slog level. Unknown names map to
// LevelError.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dbg":
		return slog.LevelDebug
	case "info", "inf":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
