package cmd

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/output"
	"github.com/bimmerbailey/chatsift/internal/parser"
	"github.com/bimmerbailey/chatsift/internal/redact"
	"github.com/bimmerbailey/chatsift/internal/tail"
)

var tailCmd = &cobra.Command{
	Use:   "tail [flags] <file>",
	Short: "Follow a growing chat export",
	Long: `Watch a chat export in real-time, similar to 'tail -f'. Every new
message is routed to its author bucket and sanitized before it is shown.

Examples:
  chatsift tail chat.txt
  chatsift tail --key i chat.txt
  chatsift tail --pattern "yarın" --lines 20 chat.txt
  chatsift tail --follow-rotate chat.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringP("pattern", "p", "", "only show messages matching regex pattern")
	tailCmd.Flags().StringSliceP("key", "k", nil, "only show these author buckets")
	tailCmd.Flags().IntP("lines", "n", 10, "number of initial messages to show")
	tailCmd.Flags().Bool("no-follow", false, "print last N messages and exit (don't follow)")
	tailCmd.Flags().Bool("follow-rotate", false, "follow through rotations (continue when file is renamed/removed)")
	tailCmd.Flags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	lines, _ := cmd.Flags().GetInt("lines")
	noFollow, _ := cmd.Flags().GetBool("no-follow")
	followRotate, _ := cmd.Flags().GetBool("follow-rotate")
	noColor, _ := cmd.Flags().GetBool("no-color")
	patternStr, _ := cmd.Flags().GetString("pattern")
	keyNames, _ := cmd.Flags().GetStringSlice("key")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if err := checkTextInput(filePath); err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if patternStr != "" {
		pattern, err = regexp.Compile(patternStr)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}

	var keys []chat.AuthorKey
	for _, k := range keyNames {
		keys = append(keys, chat.AuthorKey(k))
	}

	redactor, err := redact.New(cfg.Redaction.Options())
	if err != nil {
		return fmt.Errorf("building redactor: %w", err)
	}

	writer := newWriter(cmd, cfg)
	if noColor {
		writer.SetColorMode(output.ColorNever)
	}

	tailer := tail.New(tail.Options{
		FilePath:     filePath,
		Lines:        lines,
		Follow:       !noFollow,
		FollowRotate: followRotate,
		Pattern:      pattern,
		Keys:         keys,
		Parser:       parser.New(cfg.Routing, logger),
		Redactor:     redactor,
		OutputFunc:   writer.WriteEvent,
		Logger:       logger,
	})

	ctx, cancel := signalContext()
	defer cancel()

	// A rotation without --follow-rotate ends the session normally.
	if err := tailer.Run(ctx); err != nil && !errors.Is(err, tail.ErrRotated) {
		return err
	}
	return nil
}
