package middleware

import (
	"errors"
	"strings"

	"portfolio_backend/internal/auth"
	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories"
	"portfolio_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Ключи gin-контекста, которые выставляет auth guard
const (
	ContextUserID = "userID"
	ContextRole   = "role"
	ContextUser   = "user"
)

// TokenParser - то, что нужно guard'у от auth.TokenManager
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// UserFinder - то, что нужно guard'у от UserRepository
type UserFinder interface {
	FindByID(db *gorm.DB, id string) (*models.User, error)
}

// Authenticator проверяет access токен и загружает пользователя
type Authenticator struct {
	tokens     TokenParser
	users      UserFinder
	cookieName string
}

func NewAuthenticator(tokens TokenParser, users UserFinder, cookieName string) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, cookieName: cookieName}
}

// ExtractToken берет токен из Authorization: Bearer, затем из cookie
func (a *Authenticator) ExtractToken(c *gin.Context) string {
	if token := ExtractBearer(c); token != "" {
		return token
	}
	if a.cookieName != "" {
		if token, err := c.Cookie(a.cookieName); err == nil && token != "" {
			return token
		}
	}
	return ""
}

// ExtractBearer берет токен только из заголовка Authorization
func ExtractBearer(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// Authenticate проверяет токен и статус пользователя.
// Используется и HTTP guard'ом, и рукопожатием WebSocket.
func (a *Authenticator) Authenticate(db *gorm.DB, token string) (*models.User, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("Not authorized to access this route")
	}

	claims, err := a.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	user, err := a.users.FindByID(db, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewUnauthorizedError("User not found")
		}
		return nil, apperrors.InternalError(err)
	}

	switch user.Status {
	case models.UserStatusSuspended:
		return nil, apperrors.ErrUserSuspended
	case models.UserStatusBanned:
		return nil, apperrors.ErrUserBanned
	}
	return user, nil
}

// AuthMiddleware - обязательная аутентификация
func (a *Authenticator) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.Authenticate(GetDB(c), a.ExtractToken(c))
		if err != nil {
			logger.CtxWarn(c.Request.Context(), "authentication rejected", "path", c.Request.URL.Path, "error", err.Error())
			apperrors.HandleError(c, err)
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth пропускает анонимов, но распознает валидный токен
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := a.ExtractToken(c); token != "" {
			if user, err := a.Authenticate(GetDB(c), token); err == nil {
				setUser(c, user)
			}
		}
		c.Next()
	}
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(ContextUserID, user.ID)
	c.Set(ContextRole, user.Role)
	c.Set(ContextUser, user)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), user.ID))
}

// RequireRoles - вторая ступень после AuthMiddleware
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Not authorized to access this route"))
			return
		}
		if !auth.HasRole(role, roles...) {
			apperrors.HandleError(c, apperrors.NewForbiddenError("User role "+string(role)+" is not authorized to access this route"))
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRoles(models.UserRoleAdmin)
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func GetRole(c *gin.Context) (models.UserRole, bool) {
	val, exists := c.Get(ContextRole)
	if !exists {
		return "", false
	}
	role, ok := val.(models.UserRole)
	return role, ok
}

func GetUser(c *gin.Context) (*models.User, bool) {
	val, exists := c.Get(ContextUser)
	if !exists {
		return nil, false
	}
	user, ok := val.(*models.User)
	return user, ok
}
