package ws

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/models"
)

// HubConfig - параметры ретранслятора
type HubConfig struct {
	SendBuffer int
	PingPeriod time.Duration
	// Rooms - допустимые комнаты и роли, которым разрешен вход.
	// Пустой список ролей означает любого аутентифицированного пользователя.
	Rooms map[string][]models.UserRole
}

// DefaultRooms - в комнату projects пускаются только админы
func DefaultRooms() map[string][]models.UserRole {
	return map[string][]models.UserRole{
		RoomProjects: {models.UserRoleAdmin},
	}
}

// Hub владеет всеми соединениями и комнатами.
// Состояние меняется только в горутине Run.
type Hub struct {
	cfg HubConfig

	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
	direct     chan *directMsg
	membership chan *membershipCmd

	count    atomic.Int64
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type broadcastMsg struct {
	room  string
	event EventName
	data  []byte
}

type directMsg struct {
	client *Client
	data   []byte
}

type membershipCmd struct {
	client *Client
	room   string
	join   bool
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = 30 * time.Second
	}
	if cfg.Rooms == nil {
		cfg.Rooms = DefaultRooms()
	}
	return &Hub{
		cfg:        cfg,
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		direct:     make(chan *directMsg, 64),
		membership: make(chan *membershipCmd, 64),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run - главный цикл. Возвращается после отмены ctx или Shutdown,
// предварительно закрыв все соединения.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case <-h.stop:
			h.closeAll()
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			logger.Info("relay client connected",
				"client_id", client.id,
				"user_id", client.userID,
				"client_type", client.clientType,
				"client_version", client.clientVersion,
				"total", len(h.clients),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
				logger.Info("relay client disconnected", "client_id", client.id, "total", len(h.clients))
			}

		case cmd := <-h.membership:
			h.applyMembership(cmd)

		case msg := <-h.direct:
			if _, ok := h.clients[msg.client]; ok {
				h.deliver(msg.client, msg.data)
			}

		case msg := <-h.broadcast:
			members := h.rooms[msg.room]
			for client := range members {
				h.deliver(client, msg.data)
			}
			logger.RelayLog(string(msg.event), "", "room", msg.room, "recipients", len(members))
		}
	}
}

// Shutdown останавливает цикл и ждет закрытия клиентов
func (h *Hub) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stop) })
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount - число активных соединений
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Register добавляет клиента. false - хаб уже остановлен.
func (h *Hub) Register(client *Client) bool {
	return enqueue(h, h.register, client)
}

// BroadcastToRoom отправляет событие участникам комнаты.
// Не блокирует: при переполненной очереди событие теряется.
func (h *Hub) BroadcastToRoom(room string, frame *Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		logger.Error("relay marshal failed", "event", frame.Event, "error", err)
		return
	}

	select {
	case h.broadcast <- &broadcastMsg{room: room, event: frame.Event, data: data}:
	case <-h.done:
	default:
		logger.Warn("relay broadcast queue full, event dropped", "event", frame.Event, "room", room)
	}
}

func (h *Hub) sendTo(client *Client, frame *Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	enqueue(h, h.direct, &directMsg{client: client, data: data})
}

func (h *Hub) join(client *Client, room string) {
	enqueue(h, h.membership, &membershipCmd{client: client, room: room, join: true})
}

func (h *Hub) leave(client *Client, room string) {
	enqueue(h, h.membership, &membershipCmd{client: client, room: room})
}

func (h *Hub) leaveClient(client *Client) {
	enqueue(h, h.unregister, client)
}

func (h *Hub) applyMembership(cmd *membershipCmd) {
	client := cmd.client
	if _, ok := h.clients[client]; !ok {
		return
	}

	roles, known := h.cfg.Rooms[cmd.room]
	if !known {
		h.deliverFrame(client, EventError, cmd.room, ErrorPayload{Code: ErrCodeUnknownRoom, Message: "unknown room: " + cmd.room})
		return
	}

	if !cmd.join {
		if members := h.rooms[cmd.room]; members != nil {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, cmd.room)
			}
		}
		h.deliverFrame(client, EventRoomLeft, cmd.room, RoomPayload{Room: cmd.room})
		logger.RelayLog(string(EventLeaveRoom), client.id, "room", cmd.room)
		return
	}

	if len(roles) > 0 && !slices.Contains(roles, client.role) {
		h.deliverFrame(client, EventError, cmd.room, ErrorPayload{Code: ErrCodeForbidden, Message: "not allowed to join room: " + cmd.room})
		return
	}

	members := h.rooms[cmd.room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[cmd.room] = members
	}
	members[client] = struct{}{}
	h.deliverFrame(client, EventRoomJoined, cmd.room, RoomPayload{Room: cmd.room})
	logger.RelayLog(string(EventJoinRoom), client.id, "room", cmd.room)
}

func (h *Hub) deliverFrame(client *Client, event EventName, room string, payload any) {
	frame, err := NewFrame(event, room, payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	h.deliver(client, data)
}

// deliver не блокирует цикл: медленный клиент отключается
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		logger.Warn("relay client too slow, dropping", "client_id", client.id)
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	for room, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(client.send)
	h.count.Store(int64(len(h.clients)))
}

func (h *Hub) closeAll() {
	for client := range h.clients {
		h.remove(client)
	}
	logger.Info("relay hub stopped")
}

func enqueue[T any](h *Hub, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-h.done:
		return false
	}
}
