package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio_backend/internal/auth"
	"portfolio_backend/internal/email"
	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories"
	"portfolio_backend/internal/services/dto"
	"portfolio_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// AuthConfig - параметры сессий и одноразовых ссылок
type AuthConfig struct {
	RefreshTTL       time.Duration
	VerificationTTL  time.Duration
	ResetTTL         time.Duration
	MaxLoginAttempts int
	LockDuration     time.Duration
	ClientURL        string // база для ссылок в письмах
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		RefreshTTL:       30 * 24 * time.Hour,
		VerificationTTL:  24 * time.Hour,
		ResetTTL:         time.Hour,
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
		ClientURL:        "http://localhost:3000",
	}
}

type AuthService struct {
	userRepo    repositories.UserRepository
	refreshRepo repositories.RefreshTokenRepository
	tokens      *auth.TokenManager
	mailer      email.Provider
	cfg         AuthConfig
	now         func() time.Time
}

func NewAuthService(
	userRepo repositories.UserRepository,
	refreshRepo repositories.RefreshTokenRepository,
	tokens *auth.TokenManager,
	mailer email.Provider,
	cfg AuthConfig,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		tokens:      tokens,
		mailer:      mailer,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Register создает пользователя в статусе pending и отправляет письмо подтверждения
func (s *AuthService) Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ErrWeakPassword
	}

	emailAddr := normalizeEmail(req.Email)
	if _, err := s.userRepo.FindByEmail(db, emailAddr); err == nil {
		return nil, apperrors.ErrEmailAlreadyExists
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, apperrors.InternalError(err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        emailAddr,
		PasswordHash: hash,
		Role:         models.UserRoleUser,
		Status:       models.UserStatusPending,
	}
	rawToken, err := s.assignVerificationToken(user)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := s.userRepo.Create(db, user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, apperrors.InternalError(err)
	}

	s.sendAsync(ctx, user, "Confirm your email", email.TemplateVerifyEmail, "/verify-email?token="+rawToken, s.cfg.VerificationTTL)
	return dto.NewUserResponse(user), nil
}

// Login проверяет пароль и выдает пару access/refresh токенов.
// Неизвестный email и неверный пароль дают одинаковую ошибку.
func (s *AuthService) Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(db, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, apperrors.ErrAccountLocked
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.recordFailedLogin(ctx, db, user, now)
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := checkUserStatus(user); err != nil {
		return nil, err
	}
	if !user.IsVerified {
		return nil, apperrors.ErrUserNotVerified
	}

	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLoginAt = &now
	if err := s.userRepo.Update(db, user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "user logged in", "user_id", user.ID)
	return s.issueTokens(db, user)
}

func (s *AuthService) recordFailedLogin(ctx context.Context, db *gorm.DB, user *models.User, now time.Time) {
	user.LoginAttempts++
	if s.cfg.MaxLoginAttempts > 0 && user.LoginAttempts >= s.cfg.MaxLoginAttempts {
		lockUntil := now.Add(s.cfg.LockDuration)
		user.LockUntil = &lockUntil
		user.LoginAttempts = 0
		logger.CtxWarn(ctx, "account locked after failed logins", "user_id", user.ID, "until", lockUntil)
	}
	if err := s.userRepo.Update(db, user); err != nil {
		logger.CtxWithError(ctx, "failed to record failed login", err, "user_id", user.ID)
	}
}

// RefreshToken меняет refresh токен на новую пару. Старый токен погашается
// атомарно: повторное или параллельное использование того же токена дает 401.
func (s *AuthService) RefreshToken(ctx context.Context, db *gorm.DB, rawToken string) (*dto.LoginResponse, error) {
	var resp *dto.LoginResponse
	err := inTransaction(db, func(tx *gorm.DB) error {
		stored, err := s.refreshRepo.Consume(tx, auth.HashToken(rawToken))
		if err != nil {
			if errors.Is(err, repositories.ErrRefreshTokenNotFound) {
				return apperrors.ErrInvalidToken
			}
			return apperrors.InternalError(err)
		}
		if stored.ExpiresAt.Before(s.now()) {
			return apperrors.ErrInvalidToken
		}

		user, err := s.userRepo.FindByID(tx, stored.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return apperrors.ErrInvalidToken
			}
			return apperrors.InternalError(err)
		}
		if err := checkUserStatus(user); err != nil {
			return err
		}

		resp, err = s.issueTokens(tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.CtxDebug(ctx, "refresh token rotated", "user_id", resp.User.ID)
	return resp, nil
}

// Logout отзывает переданный refresh токен, без токена - все сессии пользователя
func (s *AuthService) Logout(db *gorm.DB, userID, rawRefreshToken string) error {
	var err error
	if rawRefreshToken != "" {
		err = s.refreshRepo.DeleteByToken(db, auth.HashToken(rawRefreshToken))
	} else if userID != "" {
		err = s.refreshRepo.DeleteByUserID(db, userID)
	}
	if err != nil && !errors.Is(err, repositories.ErrRefreshTokenNotFound) {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *AuthService) Me(db *gorm.DB, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, mapRepoError(err, "User")
	}
	return dto.NewUserResponse(user), nil
}

func (s *AuthService) VerifyEmail(db *gorm.DB, rawToken string) (*dto.UserResponse, error) {
	user, err := s.userRepo.FindByVerificationToken(db, auth.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidLinkToken
		}
		return nil, apperrors.InternalError(err)
	}
	if user.VerificationTokenExp == nil || user.VerificationTokenExp.Before(s.now()) {
		return nil, apperrors.ErrInvalidLinkToken
	}

	user.IsVerified = true
	if user.Status == models.UserStatusPending {
		user.Status = models.UserStatusActive
	}
	user.VerificationToken = nil
	user.VerificationTokenExp = nil
	if err := s.userRepo.Update(db, user); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewUserResponse(user), nil
}

// ResendVerification не раскрывает существует ли адрес
func (s *AuthService) ResendVerification(ctx context.Context, db *gorm.DB, emailAddr string) error {
	user, err := s.userRepo.FindByEmail(db, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil
		}
		return apperrors.InternalError(err)
	}
	if user.IsVerified {
		return nil
	}

	rawToken, err := s.assignVerificationToken(user)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.userRepo.Update(db, user); err != nil {
		return apperrors.InternalError(err)
	}

	s.sendAsync(ctx, user, "Confirm your email", email.TemplateVerifyEmail, "/verify-email?token="+rawToken, s.cfg.VerificationTTL)
	return nil
}

// ForgotPassword не раскрывает существует ли адрес
func (s *AuthService) ForgotPassword(ctx context.Context, db *gorm.DB, emailAddr string) error {
	user, err := s.userRepo.FindByEmail(db, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil
		}
		return apperrors.InternalError(err)
	}

	rawToken, err := auth.GenerateRandomToken(32)
	if err != nil {
		return apperrors.InternalError(err)
	}
	hash := auth.HashToken(rawToken)
	expires := s.now().Add(s.cfg.ResetTTL)
	user.ResetToken = &hash
	user.ResetTokenExp = &expires
	if err := s.userRepo.Update(db, user); err != nil {
		return apperrors.InternalError(err)
	}

	s.sendAsync(ctx, user, "Reset your password", email.TemplateResetPassword, "/reset-password?token="+rawToken, s.cfg.ResetTTL)
	return nil
}

// ResetPassword меняет пароль по ссылке из письма и завершает все сессии
func (s *AuthService) ResetPassword(db *gorm.DB, req *dto.ResetPasswordRequest) error {
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.ErrWeakPassword
	}

	user, err := s.userRepo.FindByResetToken(db, auth.HashToken(req.Token))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrInvalidLinkToken
		}
		return apperrors.InternalError(err)
	}
	if user.ResetTokenExp == nil || user.ResetTokenExp.Before(s.now()) {
		return apperrors.ErrInvalidLinkToken
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}
	user.PasswordHash = hash
	user.ResetToken = nil
	user.ResetTokenExp = nil
	user.LoginAttempts = 0
	user.LockUntil = nil
	if err := s.userRepo.Update(db, user); err != nil {
		return apperrors.InternalError(err)
	}

	if err := s.refreshRepo.DeleteByUserID(db, user.ID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *AuthService) ChangePassword(db *gorm.DB, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return mapRepoError(err, "User")
	}

	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return apperrors.ValidationError(map[string]string{
			"currentPassword": "Current password is incorrect",
		})
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}
	user.PasswordHash = hash
	if err := s.userRepo.Update(db, user); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *AuthService) issueTokens(db *gorm.DB, user *models.User) (*dto.LoginResponse, error) {
	accessToken, expiresAt, err := s.tokens.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	rawRefresh, err := auth.GenerateRandomToken(32)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.refreshRepo.Create(db, &models.RefreshToken{
		UserID:    user.ID,
		Token:     auth.HashToken(rawRefresh),
		ExpiresAt: s.now().Add(s.cfg.RefreshTTL),
	}); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.LoginResponse{
		Token:        accessToken,
		RefreshToken: rawRefresh,
		ExpiresAt:    expiresAt,
		User:         dto.NewUserResponse(user),
	}, nil
}

func (s *AuthService) assignVerificationToken(user *models.User) (string, error) {
	rawToken, err := auth.GenerateRandomToken(32)
	if err != nil {
		return "", err
	}
	hash := auth.HashToken(rawToken)
	expires := s.now().Add(s.cfg.VerificationTTL)
	user.VerificationToken = &hash
	user.VerificationTokenExp = &expires
	return rawToken, nil
}

// sendAsync отправляет письмо в фоне: ошибка доставки только логируется
func (s *AuthService) sendAsync(ctx context.Context, user *models.User, subject, template, linkPath string, ttl time.Duration) {
	if s.mailer == nil {
		return
	}

	data := email.TemplateData{
		"Name":      user.FirstName,
		"Link":      strings.TrimRight(s.cfg.ClientURL, "/") + linkPath,
		"ExpiresIn": humanDuration(ttl),
	}
	to := user.Email
	mailCtx := context.WithoutCancel(ctx)

	go func() {
		sendCtx, cancel := context.WithTimeout(mailCtx, 30*time.Second)
		defer cancel()
		if err := s.mailer.SendTemplate(sendCtx, to, subject, template, data); err != nil {
			logger.CtxWithError(sendCtx, "failed to send email", err, "template", template, "to", to)
		}
	}()
}

func checkUserStatus(user *models.User) error {
	switch user.Status {
	case models.UserStatusSuspended:
		return apperrors.ErrUserSuspended
	case models.UserStatusBanned:
		return apperrors.ErrUserBanned
	}
	return nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
