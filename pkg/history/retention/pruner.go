package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/mailguard/pkg/config"
	"mercator-hq/mailguard/pkg/history"
)

// Pruner deletes history entries that fall outside the retention policy.
type Pruner struct {
	store  history.Store
	config config.RetentionConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewPruner creates a pruner over store.
func NewPruner(store history.Store, cfg config.RetentionConfig, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:  store,
		config: cfg,
		logger: logger.With("component", "history.retention"),
		now:    time.Now,
	}
}

// Config returns the retention policy.
func (p *Pruner) Config() config.RetentionConfig { return p.config }

// Prune applies the age phase then the count phase and returns the total
// number of entries deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.Days > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.Days)
		deleted, err := p.store.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned entries by age", "deleted_count", deleted, "cutoff_time", cutoff)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.store.DeleteOldest(ctx, p.config.MaxRecords)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned entries by count", "deleted_count", deleted, "max_records", p.config.MaxRecords)
	}

	if total > 0 {
		p.logger.Info("history pruning completed",
			"total_deleted", total,
			"retention_days", p.config.Days,
			"max_records", p.config.MaxRecords,
		)
	}
	return total, nil
}
