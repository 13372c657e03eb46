package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xuri/excelize/v2"

	"github.com/bimmerbailey/chatsift/internal/export"
)

func exportFlags(cmd *cobra.Command) {
	cmd.Flags().String("kind", kindMessages, "what to export")
	cmd.Flags().StringP("to", "t", "", "file format")
	cmd.Flags().StringP("output", "o", "", "output file path")
}

func TestExportMessagesCSV(t *testing.T) {
	resetConfig(t, "text")

	dir := t.TempDir()
	file := writeTempFile(t, dir, "chat.txt", sampleExport)
	target := filepath.Join(dir, "messages.csv")

	var out bytes.Buffer
	cmd := newTestCmd(&out, exportFlags)
	cmd.Flags().Set("to", "csv")
	cmd.Flags().Set("output", target)
	if err := runExport(cmd, []string{file}); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}

	if got := strings.TrimSpace(out.String()); got != target {
		t.Errorf("printed path = %q, want %q", got, target)
	}

	f, err := os.Open(target)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want header + 3", len(records))
	}
	if want := []string{"index", "key", "message"}; !slices.Equal(records[0], want) {
		t.Errorf("header = %v, want %v", records[0], want)
	}
	if want := []string{"0", "ç", "selam"}; !slices.Equal(records[3], want) {
		t.Errorf("last row = %v, want %v", records[3], want)
	}
}

func TestExportStatsDefaultLocation(t *testing.T) {
	resetConfig(t, "text")

	dir := t.TempDir()
	outDir := filepath.Join(dir, "exports")
	viper.Set("export.output_directory", outDir)
	file := writeTempFile(t, dir, "chat.txt", sampleExport)

	var out bytes.Buffer
	cmd := newTestCmd(&out, exportFlags)
	cmd.Flags().Set("kind", kindStats)
	if err := runExport(cmd, []string{file}); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}

	path := strings.TrimSpace(out.String())
	if filepath.Dir(path) != outDir {
		t.Errorf("path %q not in %q", path, outDir)
	}
	if base := filepath.Base(path); !strings.HasPrefix(base, "stats_") || !strings.HasSuffix(base, ".json") {
		t.Errorf("file name = %q, want stats_<timestamp>.json", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var report map[string]any
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("invalid JSON export: %v", err)
	}
	if report["total_messages"] != float64(3) {
		t.Errorf("total_messages = %v, want 3", report["total_messages"])
	}
}

func TestExportXLSX(t *testing.T) {
	resetConfig(t, "text")

	dir := t.TempDir()
	file := writeTempFile(t, dir, "chat.txt", sampleExport)
	target := filepath.Join(dir, "messages.xlsx")

	var out bytes.Buffer
	cmd := newTestCmd(&out, exportFlags)
	cmd.Flags().Set("to", "xlsx")
	cmd.Flags().Set("output", target)
	if err := runExport(cmd, []string{file}); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}

	f, err := excelize.OpenFile(target)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(export.DefaultSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("got %d rows, want 4", len(rows))
	}
}

func TestExportErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
		want  error
	}{
		{"unknown kind", map[string]string{"kind": "words"}, ErrUnknownKind},
		{"unknown format", map[string]string{"to": "pdf"}, export.ErrUnknownFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetConfig(t, "text")

			dir := t.TempDir()
			file := writeTempFile(t, dir, "chat.txt", sampleExport)

			var out bytes.Buffer
			cmd := newTestCmd(&out, exportFlags)
			for name, value := range tt.flags {
				cmd.Flags().Set(name, value)
			}
			cmd.Flags().Set("output", filepath.Join(dir, "out"))

			if err := runExport(cmd, []string{file}); !errors.Is(err, tt.want) {
				t.Errorf("runExport() error = %v, want %v", err, tt.want)
			}
			if out.Len() != 0 {
				t.Errorf("expected no output, got %q", out.String())
			}
		})
	}
}
