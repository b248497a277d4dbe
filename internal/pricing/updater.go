package pricing

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Updater keeps an in-memory price table fresh by polling the market-data
// feed on a fixed interval. Readers take lock-free snapshots; a refresh
// replaces the whole table rather than mutating it in place.
type Updater struct {
	feed     Feed
	logger   *zap.Logger
	interval time.Duration
	table    atomic.Value // Table
}

// NewUpdater creates an updater polling the given feed.
func NewUpdater(feed Feed, interval time.Duration, logger *zap.Logger) *Updater {
	u := &Updater{
		feed:     feed,
		logger:   logger.Named("price-updater"),
		interval: interval,
	}
	u.table.Store(Table{})
	return u
}

// Snapshot returns the current table. The returned map must be treated as
// read-only; it is shared between all in-flight requests.
func (u *Updater) Snapshot() Table {
	return u.table.Load().(Table)
}

// Run polls the feed until the context is cancelled. A failed refresh keeps
// the previous snapshot; the engine never blocks on the feed.
func (u *Updater) Run(ctx context.Context) {
	u.logger.Info("Starting price updater", zap.Duration("interval", u.interval))

	if err := u.refresh(ctx); err != nil {
		u.logger.Error("Initial price refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.logger.Info("Stopping price updater...")
			return
		case <-ticker.C:
			if err := u.refresh(ctx); err != nil {
				u.logger.Error("Price refresh failed, keeping previous snapshot", zap.Error(err))
			}
		}
	}
}

func (u *Updater) refresh(ctx context.Context) error {
	table, err := u.feed.FetchRates(ctx)
	if err != nil {
		return err
	}
	u.table.Store(table)
	u.logger.Debug("Price table refreshed", zap.Int("pairs", len(table)))
	return nil
}
