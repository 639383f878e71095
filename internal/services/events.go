package services

import "portfolio_backend/internal/models"

// ProjectEvents получает уведомления об успешных изменениях проектов.
// Реализация (relay) не должна блокировать вызывающего.
type ProjectEvents interface {
	ProjectCreated(project *models.Project)
	ProjectUpdated(old, updated *models.Project)
	ProjectDeleted(project *models.Project)
}

// NoopProjectEvents используется когда relay выключен
type NoopProjectEvents struct{}

func (NoopProjectEvents) ProjectCreated(*models.Project)      {}
func (NoopProjectEvents) ProjectUpdated(_, _ *models.Project) {}
func (NoopProjectEvents) ProjectDeleted(*models.Project)      {}
