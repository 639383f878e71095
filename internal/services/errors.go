package services

import (
	"errors"

	"portfolio_backend/internal/repositories"
	"portfolio_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// mapRepoError переводит ошибки репозиториев в ошибки API
func mapRepoError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound),
		errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrUploadNotFound):
		return apperrors.ErrEntityNotFound(entity, err)
	case errors.Is(err, repositories.ErrVersionConflict):
		return apperrors.ErrVersionConflict(err, entity)
	case errors.Is(err, repositories.ErrAlreadyExists),
		errors.Is(err, repositories.ErrUserAlreadyExists):
		return apperrors.ErrConflict(err, entity, entity+" already exists")
	default:
		return apperrors.InternalError(err)
	}
}

// inTransaction выполняет fn в транзакции. Без подключения (in-memory
// репозитории в тестах) fn вызывается напрямую.
func inTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.Transaction(fn)
}
