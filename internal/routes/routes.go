package routes

import (
	"portfolio_backend/internal/handlers"
	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/middleware"
	"portfolio_backend/ws"

	"github.com/gin-gonic/gin"
)

// Options - необязательные части маршрутизации
type Options struct {
	// AuthLimiter ограничивает login/register/сброс пароля
	AuthLimiter gin.HandlerFunc
	// Relay - обработчик /ws, nil отключает ретранслятор
	Relay *ws.Handler
	// UploadsDir раздается как /uploads для локального хранилища
	UploadsDir string
	Swagger    bool
}

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(r *gin.Engine, h *handlers.AppHandlers, authn *middleware.Authenticator, opts Options) {
	h.HealthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	{
		h.AuthHandler.RegisterRoutes(api, authn, opts.AuthLimiter)
		h.UserHandler.RegisterRoutes(api, authn)
		h.UploadHandler.RegisterRoutes(api, authn)
		h.SkillHandler.RegisterRoutes(api, authn)
		h.ExperienceHandler.RegisterRoutes(api, authn)
		h.EducationHandler.RegisterRoutes(api, authn)
		h.CertificationHandler.RegisterRoutes(api, authn)
		h.ProjectHandler.RegisterRoutes(api, authn)
	}

	if opts.Relay != nil {
		r.GET("/ws", opts.Relay.ServeWS)
		logger.Info("WebSocket route /ws registered")
	}

	if opts.UploadsDir != "" {
		registerStatic(r, opts.UploadsDir)
	}
	if opts.Swagger {
		registerSwagger(r)
	}
}
