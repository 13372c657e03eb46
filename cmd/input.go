package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/config"
	"github.com/bimmerbailey/chatsift/internal/parser"
	"github.com/bimmerbailey/chatsift/internal/redact"
)

// ErrNotText is returned for inputs that are not plain text chat exports.
var ErrNotText = errors.New("input is not a text file")

// checkTextInput rejects inputs whose content is not text, such as a zipped
// export passed by mistake. Empty files pass.
func checkTextInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", parser.ErrSourceNotFound, path)
		}
		return err
	}
	if info.Size() == 0 {
		return nil
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detecting type of %s: %w", path, err)
	}
	if !strings.HasPrefix(mt.String(), "text/") {
		return fmt.Errorf("%w: %s is %s", ErrNotText, path, mt.String())
	}
	return nil
}

// ingested is one parsed input with its sanitized copy.
type ingested struct {
	Path      string
	Result    *parser.Result
	Sanitized *chat.Store
}

// ingestInputs expands patterns, checks and parses every file in order and
// sanitizes each store. The redactor is returned for callers that need
// per-message counts.
func ingestInputs(cfg *config.Config, logger *slog.Logger, patterns []string) ([]ingested, *redact.Redactor, error) {
	files, err := config.ExpandInputs(patterns)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %v", parser.ErrSourceNotFound, err)
	}
	if err != nil {
		return nil, nil, err
	}

	redactor, err := redact.New(cfg.Redaction.Options())
	if err != nil {
		return nil, nil, fmt.Errorf("building redactor: %w", err)
	}

	p := parser.New(cfg.Routing, logger)
	out := make([]ingested, 0, len(files))
	for _, file := range files {
		if err := checkTextInput(file); err != nil {
			return nil, nil, err
		}

		res, err := p.IngestFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("error parsing %s: %w", file, err)
		}
		logger.Info("ingested export",
			"file", file,
			"lines", res.Lines,
			"parsed", res.Parsed,
			"skipped", res.Skipped(),
			"buckets", len(res.Messages.Keys()),
			"last_author", res.LastAuthor)

		out = append(out, ingested{
			Path:      file,
			Result:    res,
			Sanitized: redactor.SanitizeStore(res.Messages),
		})
	}
	return out, redactor, nil
}

// combined merges the sanitized stores of several inputs. Buckets keep the
// order in which they first appear.
func combined(inputs []ingested) *chat.Store {
	if len(inputs) == 1 {
		return inputs[0].Sanitized
	}

	var keys []chat.AuthorKey
	for _, in := range inputs {
		for _, k := range in.Sanitized.Keys() {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}

	out := chat.NewStore(keys...)
	for _, in := range inputs {
		for _, k := range in.Sanitized.Keys() {
			for _, msg := range in.Sanitized.Messages(k) {
				out.Append(k, msg)
			}
		}
	}
	return out
}
