package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/bimmerbailey/chatsift/internal/analyzer"
	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/config"
	"github.com/bimmerbailey/chatsift/internal/export"
	"github.com/bimmerbailey/chatsift/internal/nlp"
)

// Export kinds.
const (
	kindMessages  = "messages"
	kindStats     = "stats"
	kindEntities  = "entities"
	kindSentiment = "sentiment"
)

var exportKinds = []string{kindMessages, kindStats, kindEntities, kindSentiment}

// ErrUnknownKind is returned for an export kind other than messages,
// stats, entities or sentiment.
var ErrUnknownKind = errors.New("unknown export kind")

var exportCmd = &cobra.Command{
	Use:   "export [flags] <file>...",
	Short: "Write sanitized messages or analysis results to a file",
	Long: `Export sanitized messages, per-author statistics, tagged entities or
sentiment results as JSON, CSV or XLSX.

Without --output the file is written to export.output_directory as
<kind>_<YYYYMMDD_HHMMSS>.<ext>. The entities and sentiment kinds need a
running Ollama server.

Examples:
  chatsift export chat.txt
  chatsift export --kind stats --to csv chat.txt
  chatsift export --kind sentiment --to xlsx -o sentiment.xlsx chat.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("kind", kindMessages, "what to export (messages, stats, entities, sentiment)")
	exportCmd.Flags().StringP("to", "t", "", "file format (json, csv, xlsx); default export.default_format")
	exportCmd.Flags().StringP("output", "o", "", "output file path")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	to, _ := cmd.Flags().GetString("to")
	outPath, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if to == "" {
		to = cfg.Export.DefaultFormat
	}
	format, err := export.ParseFormat(to)
	if err != nil {
		return err
	}
	if !slices.Contains(exportKinds, kind) {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	inputs, _, err := ingestInputs(cfg, logger, args)
	if err != nil {
		return err
	}

	ds, err := buildDataset(cfg, logger, kind, combined(inputs))
	if err != nil {
		return err
	}

	path, err := export.New(cfg.Export.OutputDirectory).Export(ds, format, outPath)
	if err != nil {
		return fmt.Errorf("exporting %s: %w", kind, err)
	}
	logger.Info("export written", "kind", kind, "format", format, "path", path)

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func buildDataset(cfg *config.Config, logger *slog.Logger, kind string, s *chat.Store) (export.Dataset, error) {
	switch kind {
	case kindMessages:
		return export.Dataset{Kind: kind, Value: s, Rows: export.StoreRows(s)}, nil

	case kindStats:
		report := analyzer.New().Report(s, analyzer.DefaultTopWords)
		return export.Dataset{Kind: kind, Value: report, Rows: export.StatsRows(report.Authors)}, nil

	case kindEntities:
		ctx, cancel := signalContext()
		defer cancel()
		provider, err := connectProvider(ctx, cfg, logger)
		if err != nil {
			return export.Dataset{}, err
		}
		tagged, err := nlp.TagStore(ctx, nlp.NewLLMTagger(provider, chatOptions(cfg), nil, logger), s, logger)
		if err != nil {
			return export.Dataset{}, err
		}
		return export.Dataset{Kind: kind, Value: tagged, Rows: export.EntityRows(tagged)}, nil

	case kindSentiment:
		ctx, cancel := signalContext()
		defer cancel()
		provider, err := connectProvider(ctx, cfg, logger)
		if err != nil {
			return export.Dataset{}, err
		}
		classifier := nlp.NewLLMClassifier(provider, chatOptions(cfg), cfg.Sentiment.BatchSize, logger)
		classified, err := nlp.ClassifyStore(ctx, classifier, s, logger)
		if err != nil {
			return export.Dataset{}, err
		}
		return export.Dataset{Kind: kind, Value: classified, Rows: export.SentimentRows(classified)}, nil

	default:
		return export.Dataset{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
