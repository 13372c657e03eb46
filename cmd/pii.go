package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/pii"
)

var piiCmd = &cobra.Command{
	Use:   "pii [flags] <file>...",
	Short: "Report personal data found in chat messages",
	Long: `Scan every message for typed personal data (e-mails, URLs, dates,
phone numbers, card numbers, IP addresses and more) and report what was
found per author.

By default the sanitized messages are scanned, which shows what masking
left behind. Use --raw to scan the original messages instead.

Examples:
  chatsift pii chat.txt
  chatsift pii --raw --format table chat.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPII,
}

func init() {
	piiCmd.Flags().Bool("raw", false, "scan original messages instead of sanitized ones")

	rootCmd.AddCommand(piiCmd)
}

func runPII(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetBool("raw")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	inputs, _, err := ingestInputs(cfg, logger, args)
	if err != nil {
		return err
	}

	var s *chat.Store
	if raw {
		originals := make([]ingested, len(inputs))
		for i, in := range inputs {
			originals[i] = ingested{Path: in.Path, Result: in.Result, Sanitized: in.Result.Messages}
		}
		s = combined(originals)
	} else {
		s = combined(inputs)
	}

	return newWriter(cmd, cfg).WritePII(s.Keys(), pii.ExtractStore(s))
}
