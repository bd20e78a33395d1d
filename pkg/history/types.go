package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"mercator-hq/mailguard/pkg/analyzer"
)

// Entry is one recorded scan.
type Entry struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Timestamp   time.Time         `json:"timestamp"`
	Snippet     string            `json:"email_snippet"`
	ContentHash string            `json:"content_hash"`
	Results     []analyzer.Result `json:"results"`
}

// NewEntry builds an entry with a fresh UUID and the hash of text.
func NewEntry(userID, snippet, text string, results []analyzer.Result, now time.Time) *Entry {
	return &Entry{
		ID:          uuid.New().String(),
		UserID:      userID,
		Timestamp:   now.UTC(),
		Snippet:     snippet,
		ContentHash: HashText(text),
		Results:     results,
	}
}

// HashText returns the hex-encoded SHA-256 of text, or "" for empty text.
func HashText(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Query filters entries. Zero fields do not filter.
type Query struct {
	// UserID restricts results to one user.
	UserID string

	// Since and Until bound the entry timestamp, both inclusive.
	Since *time.Time
	Until *time.Time

	// Limit caps the number of entries returned. 0 means DefaultQueryLimit.
	Limit int

	// Offset skips entries for pagination.
	Offset int
}

// DefaultQueryLimit is used when Query.Limit is zero.
const DefaultQueryLimit = 100

func (q *Query) limit() int {
	if q == nil || q.Limit <= 0 {
		return DefaultQueryLimit
	}
	return q.Limit
}

// Store is a history backend. Implementations are safe for concurrent use.
type Store interface {
	// Save persists an entry.
	Save(ctx context.Context, entry *Entry) error

	// Get returns the entry with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// Query returns matching entries, newest first.
	Query(ctx context.Context, query *Query) ([]*Entry, error)

	// Count returns the number of entries for userID, or all entries when
	// userID is empty.
	Count(ctx context.Context, userID string) (int64, error)

	// DeleteBefore removes entries older than cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteOldest removes all but the newest keep entries.
	DeleteOldest(ctx context.Context, keep int64) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
