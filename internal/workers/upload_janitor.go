package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/repositories"
	"portfolio_backend/internal/storage"

	"gorm.io/gorm"
)

const janitorBatchSize = 100

// UploadJanitor удаляет записи Upload, файлы которых пропали из хранилища
type UploadJanitor struct {
	db       *gorm.DB
	uploads  repositories.UploadRepository
	storage  storage.Storage
	interval time.Duration
}

func NewUploadJanitor(db *gorm.DB, uploads repositories.UploadRepository, store storage.Storage, interval time.Duration) *UploadJanitor {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &UploadJanitor{db: db, uploads: uploads, storage: store, interval: interval}
}

func (j *UploadJanitor) Start(ctx context.Context) {
	go runEvery(ctx, "upload_janitor", j.interval, j.RunOnce)
}

// RunOnce сначала собирает потерянные записи, потом удаляет,
// чтобы удаление не сдвигало страницы
func (j *UploadJanitor) RunOnce(ctx context.Context) (int64, error) {
	db := withContext(ctx, j.db)

	var orphaned []string
	for offset := 0; ; offset += janitorBatchSize {
		batch, _, err := j.uploads.FindAll(db, "", janitorBatchSize, offset)
		if err != nil {
			return 0, fmt.Errorf("list uploads: %w", err)
		}

		for _, upload := range batch {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			exists, err := j.storage.Exists(ctx, upload.Path)
			if err != nil {
				logger.Warn("upload janitor: storage check failed", "path", upload.Path, "error", err)
				continue
			}
			if !exists {
				orphaned = append(orphaned, upload.ID)
			}
		}

		if len(batch) < janitorBatchSize {
			break
		}
	}

	var removed int64
	for _, id := range orphaned {
		if err := j.uploads.Delete(db, id); err != nil && !errors.Is(err, repositories.ErrUploadNotFound) {
			return removed, fmt.Errorf("delete upload %s: %w", id, err)
		}
		removed++
	}
	return removed, nil
}
