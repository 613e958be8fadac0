package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/statmill/statmill/internal/store"
	"github.com/statmill/statmill/internal/telemetry"
)

// RetentionSweeper periodically deletes events older than the configured
// retention horizon. It runs a background goroutine until Stop() is called.
type RetentionSweeper struct {
	store         store.EventStore
	retention     time.Duration
	sweepInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRetentionSweeper creates a sweeper that deletes events older than
// retention, checking every sweepInterval. The first sweep runs after one
// full interval, not at startup, so a restart loop cannot hammer the table.
func NewRetentionSweeper(
	ctx context.Context,
	eventStore store.EventStore,
	retention time.Duration,
	sweepInterval time.Duration,
) *RetentionSweeper {
	sweeperCtx, cancel := context.WithCancel(ctx)

	rs := &RetentionSweeper{
		store:         eventStore,
		retention:     retention,
		sweepInterval: sweepInterval,
		ctx:           sweeperCtx,
		cancel:        cancel,
	}

	rs.wg.Add(1)
	go rs.sweepLoop()

	return rs
}

// Stop gracefully stops the background sweep goroutine.
func (rs *RetentionSweeper) Stop() {
	rs.cancel()
	rs.wg.Wait()
}

// sweepLoop periodically runs the retention sweep.
func (rs *RetentionSweeper) sweepLoop() {
	defer rs.wg.Done()

	ticker := time.NewTicker(rs.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rs.ctx.Done():
			log.Info().Msg("Retention sweeper stopped")
			return

		case <-ticker.C:
			if err := rs.sweep(rs.ctx); err != nil {
				log.Error().Err(err).Msg("Retention sweep failed")
			}
		}
	}
}

// sweep deletes all events past the retention horizon.
func (rs *RetentionSweeper) sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-rs.retention)

	log.Debug().Time("cutoff", cutoff).Msg("Running retention sweep")

	deleted, err := rs.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		telemetry.GetMetrics().EventsExpiredTotal.Add(ctx, deleted)
	}

	return nil
}
