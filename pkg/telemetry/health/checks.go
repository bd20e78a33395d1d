package health

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoAnalyzers is reported by AnalyzersCheck while nothing is registered.
var ErrNoAnalyzers = errors.New("no analyzers registered")

// Counter reports how many analyzers are registered.
type Counter interface {
	Len() int
}

// Pinger is anything with a context-aware liveness probe, such as a
// history store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AnalyzersCheck fails while c has no analyzers.
func AnalyzersCheck(c Counter) CheckFunc {
	return func(context.Context) error {
		if c.Len() == 0 {
			return ErrNoAnalyzers
		}
		return nil
	}
}

// PingCheck wraps p.Ping.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("ping failed: %w", err)
		}
		return nil
	}
}
