package history

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/mailguard/pkg/config"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.HistoryConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, "":
		return NewSQLiteStore(cfg.SQLite, logger)
	case BackendPostgres:
		return NewPostgresStore(ctx, PostgresDSN(cfg.Postgres), cfg.Postgres.MaxConns, logger)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}
