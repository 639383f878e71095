package handlers

import (
	"context"
	"net/http"
	"time"

	"portfolio_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ClientCounter - число подключенных клиентов ретранслятора
type ClientCounter interface {
	ClientCount() int
}

type HealthHandler struct {
	db      *gorm.DB
	relay   ClientCounter
	started time.Time
}

func NewHealthHandler(db *gorm.DB, relay ClientCounter) *HealthHandler {
	return &HealthHandler{db: db, relay: relay, started: time.Now()}
}

func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
}

// Health godoc
// @Summary Проверка состояния
// @Tags system
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	database := "up"

	if err := h.ping(c.Request.Context()); err != nil {
		logger.CtxWithError(c.Request.Context(), "health check: database unavailable", err)
		status = http.StatusServiceUnavailable
		database = "down"
	}

	body := gin.H{
		"success":  status == http.StatusOK,
		"database": database,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	}
	if h.relay != nil {
		body["relayClients"] = h.relay.ClientCount()
	}
	c.JSON(status, body)
}

func (h *HealthHandler) ping(ctx context.Context) error {
	if h.db == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
