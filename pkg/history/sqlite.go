package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/config"
)

// SQLite driver names registered by the imported drivers.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// SchemaVersion is the current history schema version.
const SchemaVersion = 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scan_history (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    snippet TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    results TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_history_user_time ON scan_history(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_scan_history_time ON scan_history(created_at);
`

// SQLiteStore implements Store on SQLite. Timestamps are stored as Unix
// nanoseconds so both drivers round-trip them identically.
type SQLiteStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at cfg.Path.
func NewSQLiteStore(cfg config.SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history.sqlite")

	driver := cfg.Driver
	if driver == "" {
		driver = DriverCGO
	}
	if driver != DriverCGO && driver != DriverPureGo {
		return nil, NewStorageError("sqlite", "open", fmt.Errorf("unknown driver %q", driver))
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError("sqlite", "mkdir", err)
		}
	}

	db, err := sql.Open(driver, sqliteDSN(driver, cfg))
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStore{db: db, driver: driver, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite history store initialized",
		"path", cfg.Path,
		"driver", driver,
		"wal_mode", cfg.WALMode,
	)
	return s, nil
}

// sqliteDSN encodes WAL and busy timeout as per-connection parameters in
// each driver's own syntax.
func sqliteDSN(driver string, cfg config.SQLiteConfig) string {
	busyMs := cfg.BusyTimeout.Milliseconds()
	params := url.Values{}
	switch driver {
	case DriverCGO:
		params.Set("_busy_timeout", fmt.Sprint(busyMs))
		if cfg.WALMode {
			params.Set("_journal_mode", "WAL")
		}
	case DriverPureGo:
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyMs))
		if cfg.WALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	}
	return "file:" + cfg.Path + "?" + params.Encode()
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	_, err := s.db.Exec(
		`INSERT INTO schema_version (version, applied_at) VALUES (?, ?) ON CONFLICT(version) DO NOTHING`,
		SchemaVersion, time.Now().UnixNano())
	if err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err = s.db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err != nil {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Driver returns the database/sql driver name in use.
func (s *SQLiteStore) Driver() string { return s.driver }

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, entry *Entry) error {
	results, err := json.Marshal(entry.Results)
	if err != nil {
		return NewStorageError("sqlite", "save", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scan_history (id, user_id, created_at, snippet, content_hash, results) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Timestamp.UnixNano(), entry.Snippet, entry.ContentHash, string(results))
	if err != nil {
		return NewStorageError("sqlite", "save", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, snippet, content_hash, results FROM scan_history WHERE id = ?`, id)
	entry, err := scanSQLiteEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError("sqlite", "get", err)
	}
	return entry, nil
}

// Query implements Store.
func (s *SQLiteStore) Query(ctx context.Context, query *Query) ([]*Entry, error) {
	where, args := sqliteWhere(query)

	stmt := `SELECT id, user_id, created_at, snippet, content_hash, results FROM scan_history`
	if where != "" {
		stmt += " WHERE " + where
	}
	stmt += " ORDER BY created_at DESC, seq DESC LIMIT ? OFFSET ?"

	offset := 0
	if query != nil {
		offset = query.Offset
	}
	args = append(args, query.limit(), offset)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		entry, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	return entries, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context, userID string) (int64, error) {
	stmt := `SELECT COUNT(*) FROM scan_history`
	var args []any
	if userID != "" {
		stmt += ` WHERE user_id = ?`
		args = append(args, userID)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// DeleteBefore implements Store.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scan_history WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, NewStorageError("sqlite", "delete_before", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete_before", err)
	}
	return n, nil
}

// DeleteOldest implements Store.
func (s *SQLiteStore) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scan_history WHERE seq NOT IN (
			SELECT seq FROM scan_history ORDER BY created_at DESC, seq DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, NewStorageError("sqlite", "delete_oldest", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete_oldest", err)
	}
	return n, nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite history store closed")
	return nil
}

func sqliteWhere(q *Query) (string, []any) {
	if q == nil {
		return "", nil
	}
	var conds []string
	var args []any
	if q.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, q.UserID)
	}
	if q.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, q.Since.UnixNano())
	}
	if q.Until != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, q.Until.UnixNano())
	}
	return strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEntry(row rowScanner) (*Entry, error) {
	var (
		e       Entry
		nanos   int64
		results string
	)
	if err := row.Scan(&e.ID, &e.UserID, &nanos, &e.Snippet, &e.ContentHash, &results); err != nil {
		return nil, err
	}
	e.Timestamp = time.Unix(0, nanos).UTC()
	if err := decodeResults([]byte(results), &e.Results); err != nil {
		return nil, err
	}
	return &e, nil
}

func decodeResults(data []byte, out *[]analyzer.Result) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode results: %w", err)
	}
	return nil
}
