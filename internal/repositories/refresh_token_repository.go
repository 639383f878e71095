package repositories

import (
	"time"

	"portfolio_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenRepository определяет интерфейс для операций с refresh-токенами
type RefreshTokenRepository interface {
	Create(db *gorm.DB, token *models.RefreshToken) error
	FindByToken(db *gorm.DB, tokenHash string) (*models.RefreshToken, error)
	DeleteByToken(db *gorm.DB, tokenHash string) error
	// Consume удаляет токен и возвращает удаленную строку. Из нескольких
	// одновременных вызовов строку получает только один, остальные - ErrRefreshTokenNotFound.
	Consume(db *gorm.DB, tokenHash string) (*models.RefreshToken, error)
	// DeleteByUserID отзывает все сессии пользователя
	DeleteByUserID(db *gorm.DB, userID string) error
	// CleanExpired удаляет истекшие токены и возвращает их количество
	CleanExpired(db *gorm.DB, now time.Time) (int64, error)
}

type refreshTokenRepository struct{}

func NewRefreshTokenRepository() RefreshTokenRepository {
	return &refreshTokenRepository{}
}

func (r *refreshTokenRepository) Create(db *gorm.DB, token *models.RefreshToken) error {
	return db.Create(token).Error
}

func (r *refreshTokenRepository) FindByToken(db *gorm.DB, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := db.Where("token = ?", tokenHash).First(&token).Error; err != nil {
		return nil, translate(err, ErrRefreshTokenNotFound)
	}
	return &token, nil
}

func (r *refreshTokenRepository) DeleteByToken(db *gorm.DB, tokenHash string) error {
	result := db.Where("token = ?", tokenHash).Delete(&models.RefreshToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

func (r *refreshTokenRepository) Consume(db *gorm.DB, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	result := db.Clauses(clause.Returning{}).Where("token = ?", tokenHash).Delete(&token)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected != 1 {
		return nil, ErrRefreshTokenNotFound
	}
	return &token, nil
}

func (r *refreshTokenRepository) DeleteByUserID(db *gorm.DB, userID string) error {
	return db.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}

func (r *refreshTokenRepository) CleanExpired(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Where("expires_at < ?", now).Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}
