package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bimmerbailey/chatsift/internal/config"
	"github.com/bimmerbailey/chatsift/internal/store"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Save and browse sanitized runs in the local archive",
	Long: `Keep sanitized ingestion runs in a local SQLite database (store.path)
so they can be listed and shown later without the original export.

Only sanitized messages are stored.

Examples:
  chatsift archive save chat.txt
  chatsift archive list --since 7d
  chatsift archive show 01HZX3Q4J6Y8K2M5N7P9R1T3V5`,
}

var archiveSaveCmd = &cobra.Command{
	Use:   "save [flags] <file>...",
	Short: "Ingest chat exports and archive the sanitized result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runArchiveSave,
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runArchiveList,
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the sanitized messages of an archived run",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveShow,
}

func init() {
	archiveListCmd.Flags().String("since", "", "only runs created after this time or age (e.g. 2024-05-12, 7d)")

	archiveCmd.AddCommand(archiveSaveCmd, archiveListCmd, archiveShowCmd)
	rootCmd.AddCommand(archiveCmd)
}

func openArchive(cfg *config.Config) (*store.SQLiteStore, error) {
	db, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", cfg.Store.Path, err)
	}
	return db, nil
}

func runArchiveSave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	inputs, _, err := ingestInputs(cfg, logger, args)
	if err != nil {
		return err
	}

	db, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	for _, in := range inputs {
		source, err := filepath.Abs(in.Path)
		if err != nil {
			source = in.Path
		}
		run, err := db.SaveRun(ctx, store.Run{
			Source:     source,
			LastAuthor: in.Result.LastAuthor,
			Lines:      in.Result.Lines,
			Parsed:     in.Result.Parsed,
			Store:      in.Sanitized,
		})
		if err != nil {
			return fmt.Errorf("archiving %s: %w", in.Path, err)
		}
		logger.Info("run archived", "id", run.ID, "source", run.Source, "messages", run.Messages)
		fmt.Fprintln(cmd.OutOrStdout(), run.ID)
	}
	return nil
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	sinceStr, _ := cmd.Flags().GetString("since")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var since time.Time
	if sinceStr != "" {
		since, err = config.ParseSince(sinceStr, time.Now())
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
	}

	db, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(context.Background(), since)
	if err != nil {
		return err
	}
	return newWriter(cmd, cfg).WriteRuns(runs)
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}
	return newWriter(cmd, cfg).WriteStore(run.Store)
}
