// Package history persists scan results per user.
//
// Every scan produces an Entry carrying a UUID, the owning user, the scan
// time, a short snippet of the sanitized text, a SHA-256 hash of the full
// text and the analyzer results. Entries are written to a Store:
//
//   - MemoryStore keeps entries in process memory (tests, single-run CLI).
//   - SQLiteStore uses database/sql with either the cgo driver
//     (github.com/mattn/go-sqlite3, driver name "sqlite3") or the pure Go
//     driver (modernc.org/sqlite, driver name "sqlite").
//   - PostgresStore uses a pgx/v5 connection pool.
//
// Queries return entries newest first. Retention is enforced by the
// retention subpackage, which deletes by age and then by count.
//
// Open builds the configured store:
//
//	store, err := history.Open(ctx, cfg.History, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package history
