// Package parser turns chat export files into per-author message stores.
//
// The export layout is one message per line:
//
//	<date>, <time> - <author>: <message>
//
// Lines that do not follow it (blank lines, multi-line continuations, system
// notices) are skipped without error.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/bimmerbailey/chatsift/internal/chat"
)

const (
	metaSeparator   = " - "
	authorSeparator = ":"

	maxLineSize = 1024 * 1024 // 1MB
)

// ErrSourceNotFound is returned when the export file does not exist.
var ErrSourceNotFound = errors.New("source file not found")

// Result is the outcome of ingesting one export.
type Result struct {
	Messages   *chat.Store `json:"messages"`
	LastAuthor string      `json:"last_author"`
	Lines      int         `json:"lines"`
	Parsed     int         `json:"parsed"`
}

// Skipped returns the number of lines that produced no record.
func (r *Result) Skipped() int {
	return r.Lines - r.Parsed
}

// Parser reads chat exports and routes each message to an author bucket.
// A Parser holds no per-run state and may be shared between goroutines.
type Parser struct {
	router *chat.Router
	logger *slog.Logger
}

// New creates a Parser that routes authors with the given rules.
func New(rules []chat.Rule, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{router: chat.NewRouter(rules), logger: logger}
}

// Router returns the router used to assign author keys.
func (p *Parser) Router() *chat.Router {
	return p.router
}

// ParseLine splits a raw export line into author and message.
// It reports false for lines that are not messages.
func ParseLine(raw string) (chat.Record, bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return chat.Record{}, false
	}

	if !strings.Contains(line, metaSeparator) || !strings.Contains(line, authorSeparator) {
		return chat.Record{}, false
	}

	_, rest, _ := strings.Cut(line, metaSeparator)

	// The only colon may sit in the timestamp, before the meta separator.
	author, message, ok := strings.Cut(rest, authorSeparator)
	if !ok {
		return chat.Record{}, false
	}

	author = strings.TrimSpace(author)
	message = strings.TrimSpace(message)
	if author == "" || message == "" {
		return chat.Record{}, false
	}

	return chat.Record{Author: author, Message: message}, true
}

// IngestFile opens the export at path and ingests it.
func (p *Parser) IngestFile(path string) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := p.Ingest(f)
	if err != nil {
		return res, fmt.Errorf("reading %s: %w", path, err)
	}
	return res, nil
}

// Ingest reads an export from r in a single pass. On a read error the
// messages collected so far are returned together with the error.
func (p *Parser) Ingest(r io.Reader) (*Result, error) {
	res := &Result{Messages: chat.NewStore(p.router.Keys()...)}

	err := p.scan(r, func(rec chat.Record) error {
		res.Messages.Append(p.router.Route(rec.Author), rec.Message)
		res.LastAuthor = rec.Author
		res.Parsed++
		return nil
	}, func() { res.Lines++ })

	return res, err
}

// ParseStream calls fn for every record in r, in order. Returning an error
// from fn stops the scan and returns that error. Lines longer than the
// maximum line size are skipped.
func (p *Parser) ParseStream(r io.Reader, fn func(chat.Record) error) error {
	return p.scan(r, fn, nil)
}

func (p *Parser) scan(r io.Reader, fn func(chat.Record) error, onLine func()) error {
	br := bufio.NewReaderSize(r, 64*1024)

	for {
		line, n, err := readLine(br)
		if n > 0 {
			if onLine != nil {
				onLine()
			}
			if line == nil {
				p.logger.Warn("skipping oversized line", "bytes", n)
			} else if rec, ok := ParseLine(string(line)); ok {
				if ferr := fn(rec); ferr != nil {
					return ferr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLine reads up to and including the next newline and reports the number
// of bytes consumed. A line longer than maxLineSize is consumed in full but
// returned as nil, so reading resumes at the following line.
func readLine(br *bufio.Reader) ([]byte, int, error) {
	var (
		line []byte
		n    int
	)
	for {
		chunk, err := br.ReadSlice('\n')
		n += len(chunk)
		if n <= maxLineSize {
			line = append(line, chunk...)
		} else {
			line = nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if n > maxLineSize {
			return nil, n, err
		}
		return line, n, err
	}
}
