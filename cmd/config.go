package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bimmerbailey/chatsift/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the chatsift configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Long: `Write the default configuration as YAML so it can be edited, for
example to add routing rules.

Examples:
  chatsift config init
  chatsift config init --path ./.chatsift.yaml --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().String("path", "", "file to write (default is $HOME/.chatsift.yaml)")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("path")
	force, _ := cmd.Flags().GetBool("force")

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		path = filepath.Join(home, ".chatsift.yaml")
	}

	if err := config.WriteDefault(path, config.Default(), force); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
	return nil
}
