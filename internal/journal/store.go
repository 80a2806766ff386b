// Package journal persists command history and captured console output to
// SQLite. The bridge and host publish events as they happen; a Recorder
// drains them into the store off the hot path so transports and the host
// loop never wait on disk.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mattjoyce/stagehand/internal/events"
	"github.com/mattjoyce/stagehand/internal/host"
)

// CommandEntry is one journaled command execution.
type CommandEntry struct {
	ID         string    `json:"id"`
	Command    string    `json:"command,omitempty"`
	Status     string    `json:"status"`
	Source     string    `json:"source,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ConsoleQuery filters reads against captured console output.
type ConsoleQuery struct {
	Level    string    // exact match when set
	Contains string    // substring match when set
	Since    time.Time // entries at or after this time when set
	Limit    int       // defaults to 100
}

// Store wraps the SQLite database holding the command journal and console
// capture.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and creates if needed) the journal database at path and
// ensures required tables exist.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}

	if err := ValidateFilesystem(path); err != nil {
		if errors.Is(err, ErrNetworkFilesystem) {
			return nil, err
		}
		logger.Warn("journal filesystem check inconclusive", "path", path, "error", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger.With("component", "journal")}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS command_log (
  id          TEXT PRIMARY KEY,
  command     TEXT,
  status      TEXT NOT NULL,
  source      TEXT,
  error       TEXT,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  recorded_at TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS console_log (
  id      INTEGER PRIMARY KEY AUTOINCREMENT,
  at      TEXT NOT NULL,
  level   TEXT NOT NULL,
  source  TEXT,
  message TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS command_log_recorded_at_idx ON command_log(recorded_at);`,
		`CREATE INDEX IF NOT EXISTS console_log_at_idx ON console_log(at);`,
		`CREATE INDEX IF NOT EXISTS console_log_level_idx ON console_log(level);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap journal: %w", err)
		}
	}
	return nil
}

// RecordCommand upserts a lifecycle record. A request journals once at
// submission and again at resolution; the later write carries the fuller
// record and wins.
func (s *Store) RecordCommand(ctx context.Context, rec events.CommandRecord, at time.Time) error {
	if rec.RequestID == "" {
		return fmt.Errorf("request id is empty")
	}

	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO command_log(id, command, status, source, error, duration_ms, recorded_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, rec.RequestID, rec.Command, rec.Status, rec.Source, rec.Error, rec.DurationMs,
		at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record command: %w", err)
	}
	return nil
}

// RecentCommands returns the newest journal entries, most recent first.
func (s *Store) RecentCommands(ctx context.Context, limit int) ([]CommandEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, command, status, source, error, duration_ms, recorded_at
FROM command_log
ORDER BY recorded_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent commands: %w", err)
	}
	defer rows.Close()

	var out []CommandEntry
	for rows.Next() {
		var (
			e          CommandEntry
			command    sql.NullString
			source     sql.NullString
			errMsg     sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &command, &e.Status, &source, &errMsg, &e.DurationMs, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan command entry: %w", err)
		}
		e.Command = command.String
		e.Source = source.String
		e.Error = errMsg.String
		if t, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			e.RecordedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CommandCounts returns journaled command totals grouped by status.
func (s *Store) CommandCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM command_log GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("query command counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan command count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// AppendConsole persists one captured console entry.
func (s *Store) AppendConsole(ctx context.Context, e host.ConsoleEntry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO console_log(at, level, source, message)
VALUES(?, ?, ?, ?);
`, e.At.UTC().Format(time.RFC3339Nano), e.Level, e.Source, e.Message)
	if err != nil {
		return fmt.Errorf("append console entry: %w", err)
	}
	return nil
}

// ReadConsole returns captured console entries matching the query, most
// recent first.
func (s *Store) ReadConsole(ctx context.Context, q ConsoleQuery) ([]host.ConsoleEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var (
		conds []string
		args  []any
	)
	if q.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, q.Level)
	}
	if q.Contains != "" {
		conds = append(conds, `message LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.Contains)+"%")
	}
	if !q.Since.IsZero() {
		conds = append(conds, "at >= ?")
		args = append(args, q.Since.UTC().Format(time.RFC3339Nano))
	}

	query := "SELECT at, level, source, message FROM console_log"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?;"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query console entries: %w", err)
	}
	defer rows.Close()

	var out []host.ConsoleEntry
	for rows.Next() {
		var (
			e      host.ConsoleEntry
			at     string
			source sql.NullString
		)
		if err := rows.Scan(&at, &e.Level, &source, &e.Message); err != nil {
			return nil, fmt.Errorf("scan console entry: %w", err)
		}
		e.Source = source.String
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.At = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClearConsole removes all captured console entries and returns the count.
func (s *Store) ClearConsole(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM console_log;`)
	if err != nil {
		return 0, fmt.Errorf("clear console: %w", err)
	}
	return res.RowsAffected()
}

// Prune removes journal and console rows older than the retention window.
// Returns the total number of rows removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)

	var total int64
	res, err := s.db.ExecContext(ctx, `DELETE FROM command_log WHERE recorded_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune command_log: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	res, err = s.db.ExecContext(ctx, `DELETE FROM console_log WHERE at < ?;`, cutoff)
	if err != nil {
		return total, fmt.Errorf("prune console_log: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	return total, nil
}

// escapeLike neutralizes LIKE wildcards in user-supplied filters.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
