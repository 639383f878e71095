package services

import (
	"time"

	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories"
	"portfolio_backend/internal/services/dto"
	"portfolio_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// ContentService - CRUD документов портфолио одного типа
type ContentService[T any] interface {
	List(db *gorm.DB, query dto.ListQuery) ([]T, int64, error)
	GetByID(db *gorm.DB, id string) (*T, error)
	Create(db *gorm.DB, req dto.CreatePayload[T]) (*T, error)
	// Update применяет только переданные поля поверх сохраненного документа
	Update(db *gorm.DB, id string, req dto.UpdatePayload[T]) (*T, error)
	Delete(db *gorm.DB, id string) error
}

// dateRanged реализуют документы с периодом (опыт, образование)
type dateRanged interface {
	Period() (start time.Time, end *time.Time)
}

type contentService[T any] struct {
	repo   repositories.ContentRepository[T]
	entity string
}

func NewContentService[T any](repo repositories.ContentRepository[T], entity string) ContentService[T] {
	return &contentService[T]{repo: repo, entity: entity}
}

func NewSkillService(repo repositories.ContentRepository[models.Skill]) ContentService[models.Skill] {
	return NewContentService(repo, "Skill")
}

func NewExperienceService(repo repositories.ContentRepository[models.Experience]) ContentService[models.Experience] {
	return NewContentService(repo, "Experience")
}

func NewEducationService(repo repositories.ContentRepository[models.Education]) ContentService[models.Education] {
	return NewContentService(repo, "Education")
}

func NewCertificationService(repo repositories.ContentRepository[models.Certification]) ContentService[models.Certification] {
	return NewContentService(repo, "Certification")
}

func (s *contentService[T]) List(db *gorm.DB, query dto.ListQuery) ([]T, int64, error) {
	opts := repositories.ListOptions{
		Filters: query.Filters,
		Limit:   query.Limit,
		Offset:  query.Offset,
	}

	items, err := s.repo.FindAll(db, opts)
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}

	total := int64(len(items))
	if opts.Limit > 0 || opts.Offset > 0 {
		if total, err = s.repo.Count(db, opts); err != nil {
			return nil, 0, apperrors.InternalError(err)
		}
	}
	return items, total, nil
}

func (s *contentService[T]) GetByID(db *gorm.DB, id string) (*T, error) {
	entity, err := s.repo.FindByID(db, id)
	if err != nil {
		return nil, mapRepoError(err, s.entity)
	}
	return entity, nil
}

func (s *contentService[T]) Create(db *gorm.DB, req dto.CreatePayload[T]) (*T, error) {
	entity := req.ToModel()
	if err := checkPeriod(entity); err != nil {
		return nil, err
	}

	if err := s.repo.Create(db, entity); err != nil {
		return nil, mapRepoError(err, s.entity)
	}
	return entity, nil
}

func (s *contentService[T]) Update(db *gorm.DB, id string, req dto.UpdatePayload[T]) (*T, error) {
	entity, err := s.repo.FindByID(db, id)
	if err != nil {
		return nil, mapRepoError(err, s.entity)
	}

	req.ApplyTo(entity)
	if err := checkPeriod(entity); err != nil {
		return nil, err
	}

	if err := s.repo.Update(db, entity, req.ExpectedVersion()); err != nil {
		return nil, mapRepoError(err, s.entity)
	}
	return entity, nil
}

func (s *contentService[T]) Delete(db *gorm.DB, id string) error {
	return mapRepoError(s.repo.Delete(db, id), s.entity)
}

// checkPeriod: дата окончания не раньше даты начала
func checkPeriod(entity any) error {
	ranged, ok := entity.(dateRanged)
	if !ok {
		return nil
	}
	start, end := ranged.Period()
	if end != nil && end.Before(start) {
		return apperrors.ValidationError(map[string]string{
			"endDate": "End date must not be before start date",
		})
	}
	return nil
}
