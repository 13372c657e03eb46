package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/chatsift/internal/config"
	"github.com/bimmerbailey/chatsift/internal/output"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "chatsift",
	Short: "Parse, sanitize and analyze exported chat logs",
	Long: `chatsift parses exported two-party chat logs into per-author message
buckets, masks personal data, and runs statistics, entity tagging and
sentiment classification over the sanitized messages.

Examples:
  chatsift ingest chat.txt
  chatsift stats --format table chat.txt
  chatsift pii chat.txt
  chatsift entities --label LOC --min-score 0.8 chat.txt
  chatsift export --kind sentiment --to xlsx chat.txt
  chatsift tail chat.txt`,
	SilenceUsage: true,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.chatsift.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("color", "auto", "colorize text output (auto, always, never)")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
}

func initConfig() {
	// A missing .env is normal; anything else is worth a warning.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Error loading .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".chatsift")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CHATSIFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(config.Default())

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// setDefaults registers every scalar key so that CHATSIFT_* variables can
// override it.
func setDefaults(d config.Config) {
	viper.SetDefault("format", d.Format)
	viper.SetDefault("verbose", d.Verbose)
	viper.SetDefault("log_level", d.LogLevel)
	viper.SetDefault("routing", d.Routing)

	viper.SetDefault("redaction.mask_iban", d.Redaction.MaskIBAN)
	viper.SetDefault("redaction.mask_media", d.Redaction.MaskMedia)
	viper.SetDefault("redaction.mask_emails", d.Redaction.MaskEmails)
	viper.SetDefault("redaction.mask_phones", d.Redaction.MaskPhones)
	viper.SetDefault("redaction.media_marker", d.Redaction.MediaMarker)
	viper.SetDefault("redaction.terms", d.Redaction.Terms)

	viper.SetDefault("llm.provider", d.LLM.Provider)
	viper.SetDefault("llm.temperature", d.LLM.Temperature)
	viper.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	viper.SetDefault("llm.timeout", d.LLM.Timeout)
	viper.SetDefault("llm.ollama.host", d.LLM.Ollama.Host)
	viper.SetDefault("llm.ollama.model", d.LLM.Ollama.Model)
	viper.SetDefault("llm.ollama.keep_alive", d.LLM.Ollama.KeepAlive)

	viper.SetDefault("ner.min_score", d.NER.MinScore)
	viper.SetDefault("ner.label", d.NER.Label)
	viper.SetDefault("sentiment.batch_size", d.Sentiment.BatchSize)
	viper.SetDefault("export.default_format", d.Export.DefaultFormat)
	viper.SetDefault("export.output_directory", d.Export.OutputDirectory)
	viper.SetDefault("store.path", d.Store.Path)
}

// loadConfig decodes viper's settings over the defaults and validates the
// result.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newLogger returns a text logger on stderr. --debug wins over --verbose,
// which wins over log_level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := config.ParseLevel(cfg.LogLevel)
	switch {
	case viper.GetBool("debug"):
		level = slog.LevelDebug
	case cfg.Verbose:
		level = min(level, slog.LevelInfo)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newWriter returns an output writer for the command's stdout honouring
// --format and --color.
func newWriter(cmd *cobra.Command, cfg *config.Config) *output.Writer {
	w := output.New(cmd.OutOrStdout(), output.ParseFormat(cfg.Format))
	w.SetColorMode(output.ParseColorMode(viper.GetString("color")))
	return w
}

// signalContext returns a context cancelled on interrupt or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
