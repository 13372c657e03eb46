package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bimmerbailey/chatsift/internal/analyzer"
	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/nlp"
	"github.com/bimmerbailey/chatsift/internal/output"
)

var sentimentCmd = &cobra.Command{
	Use:   "sentiment [flags] <file>...",
	Short: "Classify message sentiment with a local model",
	Long: `Classify every sanitized message as POSITIVE, NEGATIVE or NEUTRAL using
the configured Ollama model and summarize the results.

Messages are sent in batches of sentiment.batch_size.

Examples:
  chatsift sentiment chat.txt
  chatsift sentiment --key i --format table chat.txt
  chatsift sentiment --format json chat.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSentiment,
}

func init() {
	sentimentCmd.Flags().StringSliceP("key", "k", nil, "only classify these author buckets")
	sentimentCmd.Flags().Bool("no-stats", false, "omit the sentiment summary")

	rootCmd.AddCommand(sentimentCmd)
}

func runSentiment(cmd *cobra.Command, args []string) error {
	keys, _ := cmd.Flags().GetStringSlice("key")
	noStats, _ := cmd.Flags().GetBool("no-stats")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	inputs, _, err := ingestInputs(cfg, logger, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	provider, err := connectProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}

	classifier := nlp.NewLLMClassifier(provider, chatOptions(cfg), cfg.Sentiment.BatchSize, logger)
	classified, err := nlp.ClassifyStore(ctx, classifier, selectKeys(combined(inputs), keys), logger)
	if err != nil {
		return err
	}

	writer := newWriter(cmd, cfg)
	if noStats {
		return writer.WriteSentiments(classified)
	}

	stats := analyzer.New().SentimentStats(classified)
	if writer.Format() == output.FormatJSON {
		return writer.WriteJSON(struct {
			Messages []nlp.ClassifiedMessage `json:"messages"`
			Stats    analyzer.SentimentStats `json:"stats"`
		}{classified, stats})
	}
	if err := writer.WriteSentiments(classified); err != nil {
		return err
	}
	return writer.WriteSentimentStats(stats)
}

// selectKeys returns a store holding only the named buckets. No names
// returns s unchanged.
func selectKeys(s *chat.Store, names []string) *chat.Store {
	if len(names) == 0 {
		return s
	}
	var keys []chat.AuthorKey
	for _, n := range names {
		keys = append(keys, chat.AuthorKey(n))
	}
	out := chat.NewStore(keys...)
	for _, k := range keys {
		for _, msg := range s.Messages(k) {
			out.Append(k, msg)
		}
	}
	return out
}
