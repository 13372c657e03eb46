// Package tail follows a growing chat export and emits each new message as
// it is written.
//
// It implements "tail -f" like behaviour: the last few messages are emitted
// first, then every complete line appended to the file is parsed, routed to
// an author bucket and sanitized. Partial lines are held back until their
// newline arrives.
package tail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/parser"
	"github.com/bimmerbailey/chatsift/internal/redact"
)

// ErrRotated is returned when the followed file is moved away and
// FollowRotate is off.
var ErrRotated = errors.New("file rotated")

// Event is one message read from the followed file.
type Event struct {
	Key       chat.AuthorKey `json:"key"`
	Record    chat.Record    `json:"-"`
	Sanitized string         `json:"sanitized"`
}

// Options configures the tailer behavior.
type Options struct {
	FilePath     string            // Path to the chat export
	Lines        int               // Number of initial messages to emit
	Follow       bool              // Whether to follow the file for new content
	FollowRotate bool              // Whether to follow through rotations
	Pattern      *regexp.Regexp    // Optional filter on the sanitized message
	Keys         []chat.AuthorKey  // Optional filter on author buckets
	Parser       *parser.Parser    // Routes authors; nil routes everyone to unknown
	Redactor     *redact.Redactor  // Sanitizes messages; nil leaves them as is
	OutputFunc   func(Event) error // Called for each matching message
	Logger       *slog.Logger      // Rotation and truncation notices
}

// Tailer follows one chat export.
type Tailer struct {
	opts    Options
	parser  *parser.Parser
	router  *chat.Router
	logger  *slog.Logger
	file    *os.File
	offset  int64
	watcher *fsnotify.Watcher
}

// New creates a new Tailer with the given options.
func New(opts Options) *Tailer {
	t := &Tailer{opts: opts, logger: opts.Logger}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	t.parser = opts.Parser
	if t.parser == nil {
		t.parser = parser.New(nil, t.logger)
	}
	t.router = t.parser.Router()
	return t
}

// Run starts the tailing process. It blocks until ctx is cancelled or an
// error occurs. Cancellation is not an error.
func (t *Tailer) Run(ctx context.Context) error {
	if t.opts.OutputFunc == nil {
		return errors.New("tail: OutputFunc is required")
	}

	if err := t.openFile(); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer t.close()

	if t.opts.Lines > 0 {
		if err := t.readInitialLines(); err != nil {
			return fmt.Errorf("failed to read initial lines: %w", err)
		}
	}

	if !t.opts.Follow {
		return nil
	}

	if err := t.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}

	// Catch anything appended between the initial read and the watch.
	if err := t.readNewContent(); err != nil {
		return err
	}

	return t.watch(ctx)
}

func (t *Tailer) openFile() error {
	f, err := os.Open(t.opts.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", parser.ErrSourceNotFound, t.opts.FilePath)
		}
		return err
	}
	t.file = f

	stat, err := f.Stat()
	if err != nil {
		return err
	}
	t.offset = stat.Size()
	return nil
}

// readInitialLines emits the last Lines matching messages of the file.
func (t *Tailer) readInitialLines() error {
	stat, err := t.file.Stat()
	if err != nil {
		return err
	}
	fileSize := stat.Size()
	if fileSize == 0 {
		return nil
	}

	// Assume generous ~300 byte lines, doubled, and skip the partial first line.
	startPos := max(fileSize-int64(t.opts.Lines*300*2), 0)
	if _, err := t.file.Seek(startPos, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReaderSize(io.LimitReader(t.file, fileSize-startPos), 64*1024)
	if startPos > 0 {
		if err := discardLine(reader); err != nil {
			return err
		}
	}

	var events []Event
	err = t.parser.ParseStream(reader, func(rec chat.Record) error {
		if ev, ok := t.toEvent(rec); ok {
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(events) > t.opts.Lines {
		events = events[len(events)-t.opts.Lines:]
	}
	for _, ev := range events {
		if err := t.opts.OutputFunc(ev); err != nil {
			return err
		}
	}

	t.offset = fileSize
	return nil
}

func (t *Tailer) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	t.watcher = watcher
	return watcher.Add(t.opts.FilePath)
}

func (t *Tailer) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-t.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if err := t.handleEvent(ctx, event); err != nil {
				return err
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (t *Tailer) handleEvent(ctx context.Context, event fsnotify.Event) error {
	switch {
	case event.Has(fsnotify.Write):
		return t.readNewContent()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return t.handleRotation(ctx)
	default:
		return nil
	}
}

// readNewContent emits every complete line written after the last offset.
// A trailing line without a newline is left for the next write.
func (t *Tailer) readNewContent() error {
	if t.file == nil {
		return nil
	}

	stat, err := t.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < t.offset {
		t.logger.Info("file truncated, reading from start", "path", t.opts.FilePath)
		t.offset = 0
	}

	if _, err := t.file.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReaderSize(t.file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		t.offset += int64(len(line))

		rec, ok := parser.ParseLine(line)
		if !ok {
			continue
		}
		ev, ok := t.toEvent(rec)
		if !ok {
			continue
		}
		if err := t.opts.OutputFunc(ev); err != nil {
			return err
		}
	}
}

func (t *Tailer) handleRotation(ctx context.Context) error {
	if !t.opts.FollowRotate {
		return ErrRotated
	}

	if t.file != nil {
		t.file.Close()
		t.file = nil
	}

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for rotated file to reappear")
		case <-ticker.C:
			f, err := os.Open(t.opts.FilePath)
			if err != nil {
				continue
			}
			t.file = f
			t.offset = 0

			if err := t.watcher.Add(t.opts.FilePath); err != nil {
				return fmt.Errorf("failed to watch rotated file: %w", err)
			}
			t.logger.Info("file rotated, following new file", "path", t.opts.FilePath)
			return t.readNewContent()
		}
	}
}

// discardLine consumes the reader up to and including the next newline.
func discardLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
}

// toEvent routes and sanitizes one record. It reports false when the
// filters reject it.
func (t *Tailer) toEvent(rec chat.Record) (Event, bool) {
	ev := Event{Key: t.router.Route(rec.Author), Record: rec, Sanitized: rec.Message}
	if t.opts.Redactor != nil {
		ev.Sanitized = t.opts.Redactor.Sanitize(rec.Message)
	}
	return ev, t.shouldDisplay(ev)
}

func (t *Tailer) shouldDisplay(ev Event) bool {
	if len(t.opts.Keys) > 0 && !slices.Contains(t.opts.Keys, ev.Key) {
		return false
	}
	if t.opts.Pattern != nil && !t.opts.Pattern.MatchString(ev.Sanitized) {
		return false
	}
	return true
}

func (t *Tailer) close() {
	if t.file != nil {
		t.file.Close()
	}
	if t.watcher != nil {
		t.watcher.Close()
	}
}
