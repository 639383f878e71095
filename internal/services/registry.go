package services

import (
	"portfolio_backend/internal/auth"
	"portfolio_backend/internal/config"
	"portfolio_backend/internal/email"
	"portfolio_backend/internal/imageprocessor"
	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories"
	"portfolio_backend/internal/storage"
)

// Repositories - набор репозиториев, которые получают сервисы
type Repositories struct {
	Users          repositories.UserRepository
	RefreshTokens  repositories.RefreshTokenRepository
	Uploads        repositories.UploadRepository
	Skills         repositories.ContentRepository[models.Skill]
	Experiences    repositories.ContentRepository[models.Experience]
	Educations     repositories.ContentRepository[models.Education]
	Certifications repositories.ContentRepository[models.Certification]
	Projects       repositories.ContentRepository[models.Project]
}

func NewRepositories() Repositories {
	return Repositories{
		Users:          repositories.NewUserRepository(),
		RefreshTokens:  repositories.NewRefreshTokenRepository(),
		Uploads:        repositories.NewUploadRepository(),
		Skills:         repositories.NewSkillRepository(),
		Experiences:    repositories.NewExperienceRepository(),
		Educations:     repositories.NewEducationRepository(),
		Certifications: repositories.NewCertificationRepository(),
		Projects:       repositories.NewProjectRepository(),
	}
}

// Dependencies - внешние зависимости сервисов
type Dependencies struct {
	Repos         Repositories
	Tokens        *auth.TokenManager
	Mailer        email.Provider
	Storage       storage.Storage
	FilePolicies  map[config.UploadKind]config.FilePolicy
	Images        *imageprocessor.Processor
	ProjectEvents ProjectEvents
	Auth          AuthConfig
}

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	Auth           *AuthService
	Users          *UserService
	Uploads        *UploadService
	Skills         ContentService[models.Skill]
	Experiences    ContentService[models.Experience]
	Educations     ContentService[models.Education]
	Certifications ContentService[models.Certification]
	Projects       *ProjectService
}

func NewServiceContainer(deps Dependencies) *ServiceContainer {
	uploads := NewUploadService(deps.Repos.Uploads, deps.Storage, deps.FilePolicies, deps.Images)

	return &ServiceContainer{
		Auth:           NewAuthService(deps.Repos.Users, deps.Repos.RefreshTokens, deps.Tokens, deps.Mailer, deps.Auth),
		Users:          NewUserService(deps.Repos.Users, deps.Repos.RefreshTokens, uploads),
		Uploads:        uploads,
		Skills:         NewSkillService(deps.Repos.Skills),
		Experiences:    NewExperienceService(deps.Repos.Experiences),
		Educations:     NewEducationService(deps.Repos.Educations),
		Certifications: NewCertificationService(deps.Repos.Certifications),
		Projects:       NewProjectService(deps.Repos.Projects, deps.ProjectEvents),
	}
}
