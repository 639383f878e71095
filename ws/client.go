package ws

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Client - одно WebSocket соединение.
// Комнаты клиента хранит Hub и забывает их при отключении.
type Client struct {
	id            string
	userID        string
	role          models.UserRole
	clientType    string
	clientVersion string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, user *models.User, clientType, clientVersion string) *Client {
	return &Client{
		id:            uuid.NewString(),
		userID:        user.ID,
		role:          user.Role,
		clientType:    clientType,
		clientVersion: clientVersion,
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, hub.cfg.SendBuffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) pongWait() time.Duration {
	return c.hub.cfg.PingPeriod * 2
}

// readPump читает кадры клиента до ошибки соединения
func (c *Client) readPump() {
	defer func() {
		c.hub.leaveClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("relay read error", "client_id", c.id, "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError("", ErrCodeInvalidFrame, "frame must be a JSON object")
			continue
		}
		c.handleFrame(&frame)
	}
}

// writePump - единственный писатель в соединение
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					logger.Warn("relay write error", "client_id", c.id, "error", err)
				}
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(frame *Frame) {
	switch frame.Event {
	case EventJoinRoom, EventLeaveRoom:
		room := roomName(frame)
		if room == "" {
			c.sendError("", ErrCodeInvalidFrame, "room is required")
			return
		}
		if frame.Event == EventJoinRoom {
			c.hub.join(c, room)
		} else {
			c.hub.leave(c, room)
		}

	case EventPing:
		frame, err := NewFrame(EventPong, "", nil)
		if err == nil {
			c.hub.sendTo(c, frame)
		}

	default:
		c.sendError(frame.Room, ErrCodeUnknownEvent, "unknown event: "+string(frame.Event))
	}
}

func (c *Client) sendError(room, code, message string) {
	frame, err := NewFrame(EventError, room, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	c.hub.sendTo(c, frame)
}
