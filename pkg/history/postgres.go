package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mercator-hq/mailguard/pkg/config"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS scan_history (
    seq BIGSERIAL PRIMARY KEY,
    id UUID NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    snippet TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    results JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scan_history_user_time ON scan_history(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_scan_history_time ON scan_history(created_at);
`

// PostgresStore implements Store on PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// PostgresDSN builds a connection URL from cfg.
func PostgresDSN(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// NewPostgresStore connects to dsn, pings and migrates the schema.
func NewPostgresStore(ctx context.Context, dsn string, maxConns int32, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history.postgres")

	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, NewStorageError("postgres", "parse_dsn", err)
	}
	if maxConns > 0 {
		pcfg.MaxConns = maxConns
	}
	pcfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, NewStorageError("postgres", "connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, NewStorageError("postgres", "ping", err)
	}

	s := &PostgresStore{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("PostgreSQL history store initialized", "max_conns", pcfg.MaxConns)
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return NewStorageError("postgres", "create_schema", err)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`, SchemaVersion); err != nil {
		return NewStorageError("postgres", "insert_schema_version", err)
	}

	var version int
	if err := s.pool.QueryRow(ctx, `SELECT max(version) FROM schema_version`).Scan(&version); err != nil {
		return NewStorageError("postgres", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("postgres", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, entry *Entry) error {
	results, err := json.Marshal(entry.Results)
	if err != nil {
		return NewStorageError("postgres", "save", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO scan_history (id, user_id, created_at, snippet, content_hash, results) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.UserID, entry.Timestamp, entry.Snippet, entry.ContentHash, results)
	if err != nil {
		return NewStorageError("postgres", "save", err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id::text, user_id, created_at, snippet, content_hash, results FROM scan_history WHERE id = $1`, id)
	entry, err := scanPostgresEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError("postgres", "get", err)
	}
	return entry, nil
}

// Query implements Store.
func (s *PostgresStore) Query(ctx context.Context, query *Query) ([]*Entry, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	offset := 0
	if query != nil {
		if query.UserID != "" {
			conds = append(conds, "user_id = "+arg(query.UserID))
		}
		if query.Since != nil {
			conds = append(conds, "created_at >= "+arg(*query.Since))
		}
		if query.Until != nil {
			conds = append(conds, "created_at <= "+arg(*query.Until))
		}
		offset = query.Offset
	}

	stmt := `SELECT id::text, user_id, created_at, snippet, content_hash, results FROM scan_history`
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}
	stmt += " ORDER BY created_at DESC, seq DESC LIMIT " + arg(query.limit()) + " OFFSET " + arg(offset)

	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, NewStorageError("postgres", "query", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		entry, err := scanPostgresEntry(rows)
		if err != nil {
			return nil, NewStorageError("postgres", "scan", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("postgres", "query", err)
	}
	return entries, nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context, userID string) (int64, error) {
	var (
		n   int64
		err error
	)
	if userID == "" {
		err = s.pool.QueryRow(ctx, `SELECT count(*) FROM scan_history`).Scan(&n)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT count(*) FROM scan_history WHERE user_id = $1`, userID).Scan(&n)
	}
	if err != nil {
		return 0, NewStorageError("postgres", "count", err)
	}
	return n, nil
}

// DeleteBefore implements Store.
func (s *PostgresStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scan_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, NewStorageError("postgres", "delete_before", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOldest implements Store.
func (s *PostgresStore) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM scan_history WHERE seq NOT IN (
			SELECT seq FROM scan_history ORDER BY created_at DESC, seq DESC LIMIT $1
		)`, keep)
	if err != nil {
		return 0, NewStorageError("postgres", "delete_oldest", err)
	}
	return tag.RowsAffected(), nil
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return NewStorageError("postgres", "ping", err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	s.logger.Info("PostgreSQL history store closed")
	return nil
}

func scanPostgresEntry(row pgx.Row) (*Entry, error) {
	var (
		e       Entry
		results []byte
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Timestamp, &e.Snippet, &e.ContentHash, &results); err != nil {
		return nil, err
	}
	e.Timestamp = e.Timestamp.UTC()
	if err := decodeResults(results, &e.Results); err != nil {
		return nil, err
	}
	return &e, nil
}
