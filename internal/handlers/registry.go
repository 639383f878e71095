package handlers

import "portfolio_backend/internal/models"

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler          *AuthHandler
	UserHandler          *UserHandler
	UploadHandler        *UploadHandler
	HealthHandler        *HealthHandler
	SkillHandler         *ContentHandler[models.Skill]
	ExperienceHandler    *ContentHandler[models.Experience]
	EducationHandler     *ContentHandler[models.Education]
	CertificationHandler *ContentHandler[models.Certification]
	ProjectHandler       *ContentHandler[models.Project]
}
