// Package store archives sanitized ingestion runs in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/bimmerbailey/chatsift/internal/chat"
)

// ErrNotFound is returned when no run has the requested id.
var ErrNotFound = errors.New("run not found")

// Run is one archived ingestion. Store holds the sanitized messages and is
// only populated by GetRun.
type Run struct {
	ID         string      `json:"id"`
	Source     string      `json:"source"`
	CreatedAt  time.Time   `json:"created_at"`
	LastAuthor string      `json:"last_author,omitempty"`
	Lines      int         `json:"lines"`
	Parsed     int         `json:"parsed"`
	Messages   int         `json:"messages"`
	Store      *chat.Store `json:"store,omitempty"`
}

// SQLiteStore is the run archive.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		source      TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		last_author TEXT NOT NULL DEFAULT '',
		lines       INTEGER NOT NULL DEFAULT 0,
		parsed      INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);

	CREATE TABLE IF NOT EXISTS buckets (
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		author_key TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE TABLE IF NOT EXISTS messages (
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		bucket_seq INTEGER NOT NULL,
		position   INTEGER NOT NULL,
		sanitized  TEXT NOT NULL,
		PRIMARY KEY (run_id, bucket_seq, position)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun archives run and its store in one transaction. ID and CreatedAt
// are assigned when empty; the saved run is returned.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) (Run, error) {
	if run.Store == nil {
		run.Store = chat.NewStore()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC().Truncate(time.Second)
	if run.ID == "" {
		run.ID = s.newID(run.CreatedAt)
	}
	run.Messages = run.Store.Total()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, created_at, last_author, lines, parsed) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.CreatedAt.Format(time.RFC3339), run.LastAuthor, run.Lines, run.Parsed)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	bucketStmt, err := tx.PrepareContext(ctx, `INSERT INTO buckets (run_id, seq, author_key) VALUES (?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("prepare buckets: %w", err)
	}
	defer bucketStmt.Close()

	msgStmt, err := tx.PrepareContext(ctx, `INSERT INTO messages (run_id, bucket_seq, position, sanitized) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("prepare messages: %w", err)
	}
	defer msgStmt.Close()

	for seq, key := range run.Store.Keys() {
		if _, err := bucketStmt.ExecContext(ctx, run.ID, seq, string(key)); err != nil {
			return Run{}, fmt.Errorf("insert bucket %s: %w", key, err)
		}
		for pos, msg := range run.Store.Messages(key) {
			if _, err := msgStmt.ExecContext(ctx, run.ID, seq, pos, msg); err != nil {
				return Run{}, fmt.Errorf("insert message %s/%d: %w", key, pos, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

const runColumns = `r.id, r.source, r.created_at, r.last_author, r.lines, r.parsed,
	(SELECT COUNT(*) FROM messages m WHERE m.run_id = r.id)`

// ListRuns returns archived runs created at or after since, newest first.
// A zero since lists every run. Stores are not loaded.
func (s *SQLiteStore) ListRuns(ctx context.Context, since time.Time) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r`
	var args []any
	if !since.IsZero() {
		query += ` WHERE r.created_at >= ?`
		args = append(args, since.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run with id and its store, buckets and messages in
// their original order.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	run.Store, err = s.Messages(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// Messages rebuilds the store archived under runID.
func (s *SQLiteStore) Messages(ctx context.Context, runID string) (*chat.Store, error) {
	keys, err := s.bucketKeys(ctx, runID)
	if err != nil {
		return nil, err
	}
	store := chat.NewStore(keys...)

	rows, err := s.db.QueryContext(ctx,
		`SELECT bucket_seq, sanitized FROM messages WHERE run_id = ? ORDER BY bucket_seq, position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seq int
		var msg string
		if err := rows.Scan(&seq, &msg); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if seq < 0 || seq >= len(keys) {
			return nil, fmt.Errorf("message references missing bucket %d", seq)
		}
		store.Append(keys[seq], msg)
	}
	return store, rows.Err()
}

func (s *SQLiteStore) bucketKeys(ctx context.Context, runID string) ([]chat.AuthorKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT author_key FROM buckets WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	var keys []chat.AuthorKey
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		keys = append(keys, chat.AuthorKey(k))
	}
	return keys, rows.Err()
}

// DeleteRun removes a run and its messages.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var createdAt string
	if err := sc.Scan(&run.ID, &run.Source, &createdAt, &run.LastAuthor, &run.Lines, &run.Parsed, &run.Messages); err != nil {
		return Run{}, err
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return run, nil
}
