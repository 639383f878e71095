package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/middleware"
	"portfolio_backend/pkg/apperrors"
)

// Handler выполняет рукопожатие /ws
type Handler struct {
	hub            *Hub
	authn          *middleware.Authenticator
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

func NewHandler(hub *Hub, authn *middleware.Authenticator, allowedOrigins []string) *Handler {
	return &Handler{
		hub:            hub,
		authn:          authn,
		allowedOrigins: allowedOrigins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// не браузерные клиенты (SDK) не присылают Origin
				return origin == "" || middleware.OriginAllowed(origin, allowedOrigins)
			},
		},
	}
}

// ServeWS godoc
// @Summary      Live-update relay
// @Description  Upgrades to WebSocket. Token from Authorization header, cookie or ?token.
// @Tags         relay
// @Param        token          query  string  false  "Access token"
// @Param        clientType     query  string  false  "Client type"
// @Param        clientVersion  query  string  false  "Client version"
// @Success      101  {string}  string  "Switching Protocols"
// @Failure      401  {object}  apperrors.AppError
// @Router       /ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	// origin, пропущенный только через "*", не может войти по cookie
	var token string
	if origin := c.GetHeader("Origin"); origin == "" || middleware.OriginListed(origin, h.allowedOrigins) {
		token = h.authn.ExtractToken(c)
	} else {
		token = middleware.ExtractBearer(c)
	}
	if token == "" {
		token = c.Query("token")
	}

	user, err := h.authn.Authenticate(middleware.GetDB(c), token)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ
		logger.Warn("relay upgrade failed", "user_id", user.ID, "error", err)
		return
	}

	client := newClient(h.hub, conn, user, c.Query("clientType"), c.Query("clientVersion"))

	// буфер еще не виден хабу, connect всегда уходит первым
	if frame, err := NewFrame(EventConnect, "", ConnectPayload{
		ClientID: client.id,
		UserID:   user.ID,
		Role:     user.Role,
	}); err == nil {
		if data, err := frameBytes(frame); err == nil {
			client.send <- data
		}
	}

	if !h.hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
