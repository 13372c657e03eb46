package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bimmerbailey/chatsift/internal/analyzer"
	"github.com/bimmerbailey/chatsift/internal/nlp"
	"github.com/bimmerbailey/chatsift/internal/output"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities [flags] <file>...",
	Short: "Tag named entities in chat messages with a local model",
	Long: `Run named-entity recognition over the sanitized messages using the
configured Ollama model, then keep the messages whose entities match the
given label, text and minimum score.

Labels are PER, LOC, ORG and MISC. The label and minimum score default to
ner.label and ner.min_score from the config file.

Examples:
  chatsift entities chat.txt
  chatsift entities --label LOC --min-score 0.8 chat.txt
  chatsift entities --query istanbul --format json chat.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEntities,
}

func init() {
	entitiesCmd.Flags().StringP("label", "l", "", "only keep entities with this label (default ner.label)")
	entitiesCmd.Flags().StringP("query", "q", "", "only keep entities containing this text")
	entitiesCmd.Flags().Float64("min-score", 0, "minimum entity score between 0 and 1 (default ner.min_score)")
	entitiesCmd.Flags().Bool("no-stats", false, "omit the entity summary")

	rootCmd.AddCommand(entitiesCmd)
}

func runEntities(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	label := cfg.NER.Label
	if cmd.Flags().Changed("label") {
		label, _ = cmd.Flags().GetString("label")
	}
	minScore := cfg.NER.MinScore
	if cmd.Flags().Changed("min-score") {
		minScore, _ = cmd.Flags().GetFloat64("min-score")
	}
	query, _ := cmd.Flags().GetString("query")
	noStats, _ := cmd.Flags().GetBool("no-stats")

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

	tagger := nlp.NewLLMTagger(provider, chatOptions(cfg), nil, logger)
	tagged, err := nlp.TagStore(ctx, tagger, combined(inputs), logger)
	if err != nil {
		return err
	}
	matched := nlp.FilterByEntity(tagged, label, query, minScore)
	logger.Info("entity filter", "tagged", len(tagged), "matched", len(matched))

	writer := newWriter(cmd, cfg)
	if noStats {
		return writer.WriteEntities(matched)
	}

	stats := analyzer.New().EntityStats(matched)
	if writer.Format() == output.FormatJSON {
		return writer.WriteJSON(struct {
			Messages []nlp.TaggedMessage  `json:"messages"`
			Stats    analyzer.EntityStats `json:"stats"`
		}{matched, stats})
	}
	if err := writer.WriteEntities(matched); err != nil {
		return err
	}
	return writer.WriteEntityStats(stats)
}
