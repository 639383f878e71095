package repositories

import (
	"strings"
	"time"

	"portfolio_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	FindByID(db *gorm.DB, id string) (*models.User, error)
	FindByEmail(db *gorm.DB, email string) (*models.User, error)
	FindByVerificationToken(db *gorm.DB, tokenHash string) (*models.User, error)
	FindByResetToken(db *gorm.DB, tokenHash string) (*models.User, error)
	FindWithFilter(db *gorm.DB, filter UserFilter) ([]models.User, int64, error)
	Create(db *gorm.DB, user *models.User) error
	Update(db *gorm.DB, user *models.User) error
	Delete(db *gorm.DB, id string) error
	CountByRole(db *gorm.DB, role models.UserRole) (int64, error)
	ClearExpiredTokens(db *gorm.DB, now time.Time) (int64, error)
}

type UserFilter struct {
	Role   models.UserRole
	Status models.UserStatus
	Search string
	Limit  int
	Offset int
}

type userRepository struct{}

func NewUserRepository() UserRepository {
	return &userRepository{}
}

func (r *userRepository) FindByID(db *gorm.DB, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &user, nil
}

func (r *userRepository) FindByVerificationToken(db *gorm.DB, tokenHash string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "verification_token = ?", tokenHash).Error; err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &user, nil
}

func (r *userRepository) FindByResetToken(db *gorm.DB, tokenHash string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "reset_token = ?", tokenHash).Error; err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &user, nil
}

func (r *userRepository) FindWithFilter(db *gorm.DB, filter UserFilter) ([]models.User, int64, error) {
	query := db.Model(&models.User{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	users := make([]models.User, 0)
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := db.Create(user).Error
	if translated := translate(err, ErrUserNotFound); translated == ErrAlreadyExists {
		return ErrUserAlreadyExists
	}
	return err
}

// Update сохраняет все поля пользователя
func (r *userRepository) Update(db *gorm.DB, user *models.User) error {
	result := db.Model(user).Select("*").Omit("id", "created_at", clause.Associations).Updates(user)
	if result.Error != nil {
		if translate(result.Error, ErrUserNotFound) == ErrAlreadyExists {
			return ErrUserAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Delete(db *gorm.DB, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrUserNotFound
	}

	result := db.Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) CountByRole(db *gorm.DB, role models.UserRole) (int64, error) {
	var count int64
	err := db.Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

// ClearExpiredTokens обнуляет просроченные токены подтверждения и сброса пароля
func (r *userRepository) ClearExpiredTokens(db *gorm.DB, now time.Time) (int64, error) {
	verification := db.Model(&models.User{}).
		Where("verification_token IS NOT NULL AND verification_token_exp < ?", now).
		Updates(map[string]interface{}{"verification_token": nil, "verification_token_exp": nil})
	if verification.Error != nil {
		return 0, verification.Error
	}

	reset := db.Model(&models.User{}).
		Where("reset_token IS NOT NULL AND reset_token_exp < ?", now).
		Updates(map[string]interface{}{"reset_token": nil, "reset_token_exp": nil})
	if reset.Error != nil {
		return verification.RowsAffected, reset.Error
	}
	return verification.RowsAffected + reset.RowsAffected, nil
}
