package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartRetentionSweeper periodically deletes kv rows whose key starts with
// prefix and that were not rewritten within retention. Only cache entries
// should be swept: a stale envelope is still served while the catalog
// provider is unreachable, so retention must be much longer than the TTL.
func StartRetentionSweeper(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	prefix string,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM kv
                     WHERE key LIKE $1
                       AND updated_at < $2
                `, prefix+"%", cutoff)
				if err != nil {
					log.Error("failed to sweep expired kv entries", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("swept expired kv entries", zap.Int64("removed", rows), zap.String("prefix", prefix))
				}
			}
		}
	}()
}
