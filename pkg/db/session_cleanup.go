package db

import (
	"context"
	"time"

	"github.com/smith3v/tutor625/pkg/logger"
)

const SessionCleanupInterval = time.Hour

// CleanupExpiredSessions removes guided session snapshots nobody resumed.
func CleanupExpiredSessions(now time.Time) (int64, error) {
	if DB == nil {
		return 0, nil
	}
	res := DB.Where("expires_at <= ?", now).Delete(&GuidedSessionRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		logger.Debug("removed expired guided sessions", "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

func StartSessionCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SessionCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := CleanupExpiredSessions(time.Now().UTC()); err != nil {
				logger.Error("failed to cleanup expired sessions", "error", err)
			}
		}
	}
}
