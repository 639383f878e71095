package services

import (
	"context"
	"errors"
	"strings"

	"portfolio_backend/internal/auth"
	"portfolio_backend/internal/config"
	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories"
	"portfolio_backend/internal/services/dto"
	"portfolio_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// OwnedFiles - проверка и удаление файлов, загруженных самим пользователем
type OwnedFiles interface {
	ResolveOwned(db *gorm.DB, userID string, kind config.UploadKind, ref string) (*models.Upload, error)
	DeleteOwned(ctx context.Context, db *gorm.DB, userID string, kind config.UploadKind, ref string) error
}

type UserService struct {
	repo        repositories.UserRepository
	refreshRepo repositories.RefreshTokenRepository
	files       OwnedFiles
}

func NewUserService(repo repositories.UserRepository, refreshRepo repositories.RefreshTokenRepository, files OwnedFiles) *UserService {
	return &UserService{repo: repo, refreshRepo: refreshRepo, files: files}
}

func (s *UserService) List(db *gorm.DB, query dto.UserListQuery) ([]*dto.UserResponse, int64, error) {
	users, total, err := s.repo.FindWithFilter(db, repositories.UserFilter{
		Role:   models.UserRole(query.Role),
		Status: models.UserStatus(query.Status),
		Search: strings.TrimSpace(query.Search),
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}
	return dto.NewUserResponses(users), total, nil
}

func (s *UserService) GetByID(db *gorm.DB, id string) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(db, id)
	if err != nil {
		return nil, mapRepoError(err, "User")
	}
	return dto.NewUserResponse(user), nil
}

// Create - пользователь, заведенный администратором, по умолчанию активен и подтвержден
func (s *UserService) Create(db *gorm.DB, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
	}
	if req.Role != "" {
		user.Role = models.UserRole(req.Role)
	}
	if req.Status != "" {
		user.Status = models.UserStatus(req.Status)
	}
	user.IsVerified = user.Status != models.UserStatusPending

	if err := s.repo.Create(db, user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, apperrors.InternalError(err)
	}
	return dto.NewUserResponse(user), nil
}

// Update - частичное обновление администратором. Администратор не может
// понизить или заблокировать сам себя.
func (s *UserService) Update(db *gorm.DB, actorID, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(db, id)
	if err != nil {
		return nil, mapRepoError(err, "User")
	}

	if user.ID == actorID {
		if req.Role != nil && models.UserRole(*req.Role) != user.Role {
			return nil, apperrors.ErrCannotModifySelf
		}
		if req.Status != nil && !models.UserStatus(*req.Status).CanAuthenticate() {
			return nil, apperrors.ErrCannotModifySelf
		}
	}

	if req.Email != nil && normalizeEmail(*req.Email) != user.Email {
		if err := s.ensureEmailFree(db, *req.Email); err != nil {
			return nil, err
		}
	}

	req.ApplyTo(user)
	if err := s.repo.Update(db, user); err != nil {
		return nil, mapUserWriteError(err)
	}

	if !user.Status.CanAuthenticate() {
		if err := s.refreshRepo.DeleteByUserID(db, user.ID); err != nil {
			logger.WithError(err).Warn("failed to revoke sessions of blocked user", "user_id", user.ID)
		}
	}
	return dto.NewUserResponse(user), nil
}

func (s *UserService) Delete(db *gorm.DB, actorID, id string) error {
	if id == actorID {
		return apperrors.ErrCannotModifySelf
	}
	if err := s.refreshRepo.DeleteByUserID(db, id); err != nil {
		return apperrors.InternalError(err)
	}
	return mapRepoError(s.repo.Delete(db, id), "User")
}

// UpdateProfile - пользователь меняет свои имя, ссылки и аватар
func (s *UserService) UpdateProfile(db *gorm.DB, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(db, userID)
	if err != nil {
		return nil, mapRepoError(err, "User")
	}

	req.ApplyTo(user)
	if err := s.repo.Update(db, user); err != nil {
		return nil, mapUserWriteError(err)
	}
	return dto.NewUserResponse(user), nil
}

// UpdateCV заменяет ссылку на CV. Загруженный файл должен быть собственным CV
// пользователя; внешние URL принимаются как есть. Старый файл удаляется по возможности.
func (s *UserService) UpdateCV(ctx context.Context, db *gorm.DB, userID string, req *dto.UpdateCVRequest) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(db, userID)
	if err != nil {
		return nil, mapRepoError(err, "User")
	}

	var previous string
	if user.CVURL != nil {
		previous = *user.CVURL
	}

	var next *string
	if req.CVURL != nil {
		if cv := strings.TrimSpace(*req.CVURL); cv != "" {
			next = &cv
		}
	}
	if next != nil && *next != previous && s.files != nil {
		if _, err := s.files.ResolveOwned(db, userID, config.UploadKindCV, *next); err != nil {
			return nil, err
		}
	}

	user.CVURL = next
	if err := s.repo.Update(db, user); err != nil {
		return nil, mapUserWriteError(err)
	}

	if previous != "" && (next == nil || *next != previous) && s.files != nil {
		if err := s.files.DeleteOwned(ctx, db, userID, config.UploadKindCV, previous); err != nil {
			logger.CtxWithError(ctx, "failed to remove previous CV", err, "url", previous)
		}
	}
	return dto.NewUserResponse(user), nil
}

func (s *UserService) ensureEmailFree(db *gorm.DB, email string) error {
	_, err := s.repo.FindByEmail(db, email)
	switch {
	case err == nil:
		return apperrors.ErrEmailAlreadyExists
	case errors.Is(err, repositories.ErrUserNotFound):
		return nil
	default:
		return apperrors.InternalError(err)
	}
}

func mapUserWriteError(err error) error {
	if errors.Is(err, repositories.ErrUserAlreadyExists) || errors.Is(err, repositories.ErrAlreadyExists) {
		return apperrors.ErrEmailAlreadyExists
	}
	return mapRepoError(err, "User")
}
