package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bimmerbailey/chatsift/internal/analyzer"
)

var statsCmd = &cobra.Command{
	Use:   "stats [flags] <file>...",
	Short: "Show per-author message statistics",
	Long: `Display a statistical summary of sanitized chat messages: message,
word, character and emoji counts per author, each author's share of the
conversation, the dominant language and the most common words.

Examples:
  chatsift stats chat.txt
  chatsift stats --format table --top 20 chat.txt
  chatsift stats --format json chat.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Int("top", analyzer.DefaultTopWords, "number of most common words to show")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	topN, _ := cmd.Flags().GetInt("top")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	inputs, _, err := ingestInputs(cfg, logger, args)
	if err != nil {
		return err
	}

	report := analyzer.New().Report(combined(inputs), topN)
	return newWriter(cmd, cfg).WriteReport(report)
}
