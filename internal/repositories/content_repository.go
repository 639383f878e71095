package repositories

import (
	"fmt"

	"portfolio_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListOptions - параметры выборки списка. Filters применяются только
// к колонкам, разрешенным репозиторием.
type ListOptions struct {
	Filters map[string]interface{}
	Limit   int
	Offset  int
}

// ContentRepository - CRUD для документов портфолио (skills, projects, ...)
type ContentRepository[T any] interface {
	FindAll(db *gorm.DB, opts ListOptions) ([]T, error)
	Count(db *gorm.DB, opts ListOptions) (int64, error)
	FindByID(db *gorm.DB, id string) (*T, error)
	Create(db *gorm.DB, entity *T) error
	// Update сохраняет документ целиком. expectedVersion == nil означает last-write-wins.
	Update(db *gorm.DB, entity *T, expectedVersion *int) error
	Delete(db *gorm.DB, id string) error
}

type contentRepository[T any] struct {
	order      string
	filterable map[string]bool
}

func newContentRepository[T any](order string, filterable ...string) *contentRepository[T] {
	allowed := make(map[string]bool, len(filterable))
	for _, col := range filterable {
		allowed[col] = true
	}
	return &contentRepository[T]{order: order, filterable: allowed}
}

func NewSkillRepository() ContentRepository[models.Skill] {
	return newContentRepository[models.Skill]("category ASC, name ASC", "category", "level")
}

func NewExperienceRepository() ContentRepository[models.Experience] {
	return newContentRepository[models.Experience]("start_date DESC", "company")
}

func NewEducationRepository() ContentRepository[models.Education] {
	return newContentRepository[models.Education]("start_date DESC", "institution")
}

func NewCertificationRepository() ContentRepository[models.Certification] {
	return newContentRepository[models.Certification]("date DESC", "issuer")
}

func NewProjectRepository() ContentRepository[models.Project] {
	return newContentRepository[models.Project]("featured DESC, created_at DESC", "featured")
}

func (r *contentRepository[T]) scoped(db *gorm.DB, opts ListOptions) *gorm.DB {
	query := db.Model(new(T))
	for col, val := range opts.Filters {
		if r.filterable[col] {
			query = query.Where(fmt.Sprintf("%s = ?", col), val)
		}
	}
	return query
}

func (r *contentRepository[T]) FindAll(db *gorm.DB, opts ListOptions) ([]T, error) {
	query := r.scoped(db, opts).Order(r.order)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	items := make([]T, 0)
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentRepository[T]) Count(db *gorm.DB, opts ListOptions) (int64, error) {
	var count int64
	err := r.scoped(db, opts).Count(&count).Error
	return count, err
}

func (r *contentRepository[T]) FindByID(db *gorm.DB, id string) (*T, error) {
	// Невалидный UUID не может существовать в базе
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	entity := new(T)
	if err := db.First(entity, "id = ?", id).Error; err != nil {
		return nil, translate(err, ErrNotFound)
	}
	return entity, nil
}

func (r *contentRepository[T]) Create(db *gorm.DB, entity *T) error {
	return translate(db.Create(entity).Error, ErrNotFound)
}

func (r *contentRepository[T]) Update(db *gorm.DB, entity *T, expectedVersion *int) error {
	doc, ok := any(entity).(models.Versioned)
	if !ok {
		return fmt.Errorf("%T does not embed models.BaseModel", entity)
	}

	base := doc.GetVersion()
	query := db.Model(entity).Where("id = ?", doc.GetID())
	if expectedVersion != nil {
		base = *expectedVersion
		query = query.Where("version = ?", base)
	}
	doc.SetVersion(base + 1)

	result := query.Select("*").Omit("id", "created_at").Updates(entity)
	if result.Error != nil {
		doc.SetVersion(base)
		return translate(result.Error, ErrNotFound)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	doc.SetVersion(base)
	var count int64
	if err := db.Model(new(T)).Where("id = ?", doc.GetID()).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (r *contentRepository[T]) Delete(db *gorm.DB, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	result := db.Where("id = ?", id).Delete(new(T))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
