package workers

import (
	"context"
	"time"

	"portfolio_backend/internal/logger"

	"gorm.io/gorm"
)

// runEvery выполняет job сразу и затем по тикеру до отмены ctx
func runEvery(ctx context.Context, name string, interval time.Duration, job func(ctx context.Context) (int64, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		affected, err := job(ctx)
		logger.WorkerLog(name, "run", affected, err)

		select {
		case <-ctx.Done():
			logger.Info("worker stopped", "worker", name)
			return
		case <-ticker.C:
		}
	}
}

func withContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if db == nil {
		return nil
	}
	return db.WithContext(ctx)
}
