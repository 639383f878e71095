package repositories

import (
	"portfolio_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UploadRepository interface {
	Create(db *gorm.DB, upload *models.Upload) error
	FindByID(db *gorm.DB, id string) (*models.Upload, error)
	FindByPath(db *gorm.DB, path string) (*models.Upload, error)
	FindAll(db *gorm.DB, kind string, limit, offset int) ([]models.Upload, int64, error)
	Delete(db *gorm.DB, id string) error
}

type uploadRepository struct{}

func NewUploadRepository() UploadRepository {
	return &uploadRepository{}
}

func (r *uploadRepository) Create(db *gorm.DB, upload *models.Upload) error {
	return translate(db.Create(upload).Error, ErrUploadNotFound)
}

func (r *uploadRepository) FindByID(db *gorm.DB, id string) (*models.Upload, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUploadNotFound
	}

	var upload models.Upload
	if err := db.First(&upload, "id = ?", id).Error; err != nil {
		return nil, translate(err, ErrUploadNotFound)
	}
	return &upload, nil
}

func (r *uploadRepository) FindByPath(db *gorm.DB, path string) (*models.Upload, error) {
	var upload models.Upload
	if err := db.First(&upload, "path = ?", path).Error; err != nil {
		return nil, translate(err, ErrUploadNotFound)
	}
	return &upload, nil
}

func (r *uploadRepository) FindAll(db *gorm.DB, kind string, limit, offset int) ([]models.Upload, int64, error) {
	query := db.Model(&models.Upload{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	uploads := make([]models.Upload, 0)
	if err := query.Order("created_at DESC").Find(&uploads).Error; err != nil {
		return nil, 0, err
	}
	return uploads, total, nil
}

func (r *uploadRepository) Delete(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.Upload{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUploadNotFound
	}
	return nil
}
