package workers

import (
	"context"
	"fmt"
	"time"

	"portfolio_backend/internal/repositories"

	"gorm.io/gorm"
)

// TokenCleanupWorker удаляет просроченные refresh токены
// и обнуляет устаревшие токены из писем
type TokenCleanupWorker struct {
	db            *gorm.DB
	refreshTokens repositories.RefreshTokenRepository
	users         repositories.UserRepository
	interval      time.Duration
	now           func() time.Time
}

func NewTokenCleanupWorker(db *gorm.DB, refreshTokens repositories.RefreshTokenRepository, users repositories.UserRepository, interval time.Duration) *TokenCleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &TokenCleanupWorker{
		db:            db,
		refreshTokens: refreshTokens,
		users:         users,
		interval:      interval,
		now:           time.Now,
	}
}

// Start запускает очистку в фоне
func (w *TokenCleanupWorker) Start(ctx context.Context) {
	go runEvery(ctx, "token_cleanup", w.interval, w.RunOnce)
}

// RunOnce возвращает общее число затронутых записей
func (w *TokenCleanupWorker) RunOnce(ctx context.Context) (int64, error) {
	db := withContext(ctx, w.db)
	now := w.now().UTC()

	removed, err := w.refreshTokens.CleanExpired(db, now)
	if err != nil {
		return 0, fmt.Errorf("clean refresh tokens: %w", err)
	}

	cleared, err := w.users.ClearExpiredTokens(db, now)
	if err != nil {
		return removed, fmt.Errorf("clear email tokens: %w", err)
	}
	return removed + cleared, nil
}
