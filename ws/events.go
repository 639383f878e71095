package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"portfolio_backend/internal/models"
)

// EventName - имя события ретранслятора
type EventName string

// Client → Server
const (
	EventJoinRoom  EventName = "joinRoom"
	EventLeaveRoom EventName = "leaveRoom"
	EventPing      EventName = "ping"
)

// Server → Client
const (
	EventConnect        EventName = "connect"
	EventRoomJoined     EventName = "roomJoined"
	EventRoomLeft       EventName = "roomLeft"
	EventPong           EventName = "pong"
	EventError          EventName = "error"
	EventProjectCreated EventName = "project:created"
	EventProjectUpdated EventName = "project:updated"
	EventProjectDeleted EventName = "project:deleted"
)

// RoomProjects получает события project:*
const RoomProjects = "projects"

// Frame - конверт всех сообщений в обе стороны
type Frame struct {
	Event     EventName       `json:"event"`
	Room      string          `json:"room,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"ts"`
}

type ConnectPayload struct {
	ClientID string          `json:"clientId"`
	UserID   string          `json:"userId"`
	Role     models.UserRole `json:"role"`
}

type RoomPayload struct {
	Room string `json:"room"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ProjectCreatedPayload struct {
	Project *models.Project `json:"project"`
}

type ProjectUpdatedPayload struct {
	Old *models.Project `json:"old"`
	New *models.Project `json:"new"`
}

type ProjectDeletedPayload struct {
	ID      string          `json:"id"`
	Project *models.Project `json:"project"`
}

// Коды ошибок в ErrorPayload
const (
	ErrCodeInvalidFrame = "INVALID_FRAME"
	ErrCodeUnknownEvent = "UNKNOWN_EVENT"
	ErrCodeUnknownRoom  = "UNKNOWN_ROOM"
	ErrCodeForbidden    = "FORBIDDEN"
)

// NewFrame сериализует payload в конверт
func NewFrame(event EventName, room string, payload any) (*Frame, error) {
	frame := &Frame{Event: event, Room: room, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		frame.Data = data
	}
	return frame, nil
}

func frameBytes(frame *Frame) ([]byte, error) {
	return json.Marshal(frame)
}

// DecodePayload возвращает типизированный payload события.
// Неизвестное имя события - ошибка.
func DecodePayload(frame *Frame) (any, error) {
	var target any
	switch frame.Event {
	case EventConnect:
		target = &ConnectPayload{}
	case EventJoinRoom, EventLeaveRoom, EventRoomJoined, EventRoomLeft:
		target = &RoomPayload{}
	case EventPing, EventPong:
		return nil, nil
	case EventError:
		target = &ErrorPayload{}
	case EventProjectCreated:
		target = &ProjectCreatedPayload{}
	case EventProjectUpdated:
		target = &ProjectUpdatedPayload{}
	case EventProjectDeleted:
		target = &ProjectDeletedPayload{}
	default:
		return nil, fmt.Errorf("unknown event %q", frame.Event)
	}

	if len(frame.Data) == 0 {
		return target, nil
	}
	if err := json.Unmarshal(frame.Data, target); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", frame.Event, err)
	}
	return target, nil
}

// roomName берет комнату из поля room, затем из data
func roomName(frame *Frame) string {
	if frame.Room != "" {
		return frame.Room
	}
	if len(frame.Data) == 0 {
		return ""
	}
	var p RoomPayload
	if err := json.Unmarshal(frame.Data, &p); err == nil && p.Room != "" {
		return p.Room
	}
	var name string
	if err := json.Unmarshal(frame.Data, &name); err == nil {
		return name
	}
	return ""
}
