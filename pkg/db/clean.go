package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CleanOldData removes audit rows older than the retention period. Sessions
// are never removed.
func (db *DB) CleanOldData(ctx context.Context, retentionPeriod time.Duration) error {
	cutoff := time.Now().UTC().Add(-retentionPeriod)

	return db.withTx(ctx, func(tx *sql.Tx) error {
		// Clean up event log
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM event_log WHERE created_at < ?",
			cutoff,
		); err != nil {
			return fmt.Errorf("%w event log: %w", ErrFailedToClean, err)
		}

		// Clean up cron runs
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM cron_runs WHERE started_at < ?",
			cutoff,
		); err != nil {
			return fmt.Errorf("%w cron runs: %w", ErrFailedToClean, err)
		}

		return nil
	})
}
