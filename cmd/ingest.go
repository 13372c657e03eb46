package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/redact"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [flags] <file>...",
	Short: "Parse chat exports and print the sanitized messages per author",
	Long: `Parse one or more chat exports, route every message to its author
bucket using the routing table, mask personal data and print the result.

Routing rules come from the config file:

  routing:
    - prefix: "İrem"
      key: i
    - prefix: "Çağın"
      key: ç

Examples:
  chatsift ingest chat.txt
  chatsift ingest --format json exports/*.txt
  chatsift ingest -v chat.txt          # log per-step redaction counts`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	inputs, redactor, err := ingestInputs(cfg, logger, args)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		for _, in := range inputs {
			totals := redactionTotals(redactor, in.Result.Messages)
			attrs := []any{"file", in.Path}
			for _, step := range redact.Steps() {
				if n, ok := totals[step]; ok {
					attrs = append(attrs, step, n)
				}
			}
			logger.Info("redaction summary", attrs...)
		}
	}

	return newWriter(cmd, cfg).WriteStore(combined(inputs))
}

// redactionTotals sums per-step replacement counts over every message.
func redactionTotals(r *redact.Redactor, s *chat.Store) map[string]int {
	totals := make(map[string]int)
	for _, k := range s.Keys() {
		for _, msg := range s.Messages(k) {
			for step, n := range r.Count(msg) {
				totals[step] += n
			}
		}
	}
	return totals
}
