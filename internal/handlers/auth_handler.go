package handlers

import (
	"net/http"
	"time"

	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/middleware"
	"portfolio_backend/internal/services"
	"portfolio_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// CookieConfig - параметры httpOnly cookie с access токеном
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	*BaseHandler
	authService *services.AuthService
	cookie      CookieConfig
}

func NewAuthHandler(base *BaseHandler, authService *services.AuthService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthHandler{
		BaseHandler: base,
		authService: authService,
		cookie:      cookie,
	}
}

// RegisterRoutes регистрирует маршруты /auth. limiter ограничивает
// публичные эндпоинты, куда можно перебирать пароли и email.
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, authn *middleware.Authenticator, limiter gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		limited := auth.Group("")
		if limiter != nil {
			limited.Use(limiter)
		}
		limited.POST("/register", h.Register)
		limited.POST("/login", h.Login)
		limited.POST("/forgot-password", h.ForgotPassword)
		limited.POST("/reset-password", h.ResetPassword)
		limited.POST("/resend-verification", h.ResendVerification)

		auth.POST("/refresh", h.RefreshToken)
		auth.POST("/verify-email", h.VerifyEmail)
		auth.GET("/verify-email/:token", h.VerifyEmail)

		protected := auth.Group("")
		protected.Use(authn.AuthMiddleware())
		protected.GET("/me", h.Me)
		protected.POST("/logout", h.Logout)
		protected.PUT("/update-password", h.ChangePassword)
	}
}

// Register godoc
// @Summary Регистрация
// @Description Создает пользователя в статусе pending и отправляет письмо для подтверждения email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Данные регистрации"
// @Success 201 {object} Response
// @Failure 400 {object} apperrors.AppError
// @Failure 409 {object} apperrors.AppError
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.authService.Register(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respondMessage(c, http.StatusCreated, "Registration successful. Please check your email to verify your account.", user)
}

// Login godoc
// @Summary Вход
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Email и пароль"
// @Success 200 {object} Response{data=dto.LoginResponse}
// @Failure 401 {object} apperrors.AppError
// @Failure 403 {object} apperrors.AppError
// @Failure 429 {object} apperrors.AppError
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	response, err := h.authService.Login(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.setTokenCookie(c, response.Token)
	respond(c, http.StatusOK, response)
}

// RefreshToken godoc
// @Summary Обновить пару токенов
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest true "Refresh токен"
// @Success 200 {object} Response{data=dto.LoginResponse}
// @Failure 401 {object} apperrors.AppError
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	response, err := h.authService.RefreshToken(c.Request.Context(), h.GetDB(c), req.RefreshToken)
	if err != nil {
		h.clearTokenCookie(c)
		h.HandleServiceError(c, err)
		return
	}

	h.setTokenCookie(c, response.Token)
	respond(c, http.StatusOK, response)
}

// Logout godoc
// @Summary Выход
// @Description Отзывает refresh токен (или все сессии, если токен не передан) и очищает cookie
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} Response
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.LogoutRequest
	if c.Request.ContentLength != 0 && !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.Logout(h.GetDB(c), userID, req.RefreshToken); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.clearTokenCookie(c)
	respondMessage(c, http.StatusOK, "Successfully logged out", nil)
}

// Me godoc
// @Summary Текущий пользователь
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} Response{data=dto.UserResponse}
// @Failure 401 {object} apperrors.AppError
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// VerifyEmail принимает токен из тела или из пути (ссылка из письма)
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	req := dto.VerifyEmailRequest{Token: c.Param("token")}
	if req.Token == "" && !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.authService.VerifyEmail(h.GetDB(c), req.Token)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Email successfully verified", user)
}

func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req dto.ResendVerificationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ResendVerification(c.Request.Context(), h.GetDB(c), req.Email); err != nil {
		logger.CtxWarn(c.Request.Context(), "Resend verification failed (hiding from user)", "error", err.Error())
	}
	respondMessage(c, http.StatusOK, "If the account exists and is not verified, a new link has been sent", nil)
}

// ForgotPassword всегда отвечает 200, чтобы не раскрывать наличие email
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), h.GetDB(c), req.Email); err != nil {
		logger.CtxWarn(c.Request.Context(), "Password reset request failed (hiding from user)", "error", err.Error())
	}
	respondMessage(c, http.StatusOK, "If the email exists, a password reset link has been sent", nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(h.GetDB(c), &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Password successfully reset", nil)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(h.GetDB(c), userID, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Password updated", nil)
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
