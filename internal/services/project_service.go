package services

import (
	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories"
	"portfolio_backend/internal/services/dto"

	"gorm.io/gorm"
)

// ProjectService - CRUD проектов с публикацией событий в relay.
// Событие отправляется только после успешной записи.
type ProjectService struct {
	ContentService[models.Project]
	repo   repositories.ContentRepository[models.Project]
	events ProjectEvents
}

func NewProjectService(repo repositories.ContentRepository[models.Project], events ProjectEvents) *ProjectService {
	if events == nil {
		events = NoopProjectEvents{}
	}
	return &ProjectService{
		ContentService: NewContentService(repo, "Project"),
		repo:           repo,
		events:         events,
	}
}

func (s *ProjectService) Create(db *gorm.DB, req dto.CreatePayload[models.Project]) (*models.Project, error) {
	project, err := s.ContentService.Create(db, req)
	if err != nil {
		return nil, err
	}
	s.events.ProjectCreated(project)
	return project, nil
}

func (s *ProjectService) Update(db *gorm.DB, id string, req dto.UpdatePayload[models.Project]) (*models.Project, error) {
	old, err := s.repo.FindByID(db, id)
	if err != nil {
		return nil, mapRepoError(err, "Project")
	}
	before := *old

	updated, err := s.ContentService.Update(db, id, req)
	if err != nil {
		return nil, err
	}
	s.events.ProjectUpdated(&before, updated)
	return updated, nil
}

func (s *ProjectService) Delete(db *gorm.DB, id string) error {
	project, err := s.repo.FindByID(db, id)
	if err != nil {
		return mapRepoError(err, "Project")
	}
	if err := s.ContentService.Delete(db, id); err != nil {
		return err
	}
	s.events.ProjectDeleted(project)
	return nil
}
