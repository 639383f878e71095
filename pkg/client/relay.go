package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"portfolio_backend/ws"
)

// Локальные события подписчика, сервер их не присылает
const (
	EventDisconnect   ws.EventName = "disconnect"
	EventConnectError ws.EventName = "connect_error"
)

const relayWriteWait = 10 * time.Second

// Handler вызывается в горутине чтения, долгие операции выносите наружу
type Handler func(frame *ws.Frame)

type HandlerID uint64

// Relay - подписчик на live события.
// Комнаты запоминаются и повторно запрашиваются после переподключения.
type Relay struct {
	client        *Client
	url           string
	dialer        *websocket.Dialer
	clientType    string
	clientVersion string
	attempts      int
	delay         time.Duration
	logger        *slog.Logger

	mu       sync.Mutex
	handlers map[ws.EventName]map[HandlerID]Handler
	nextID   HandlerID
	rooms    map[string]struct{}
	conn     *websocket.Conn
	cancel   context.CancelFunc

	writeMu sync.Mutex
}

func newRelay(c *Client, cfg Config) *Relay {
	return &Relay{
		client:        c,
		url:           cfg.RelayURL,
		dialer:        &websocket.Dialer{HandshakeTimeout: cfg.Timeout},
		clientType:    cfg.ClientType,
		clientVersion: cfg.ClientVersion,
		attempts:      cfg.ReconnectAttempts,
		delay:         cfg.ReconnectDelay,
		logger:        cfg.Logger,
		handlers:      make(map[ws.EventName]map[HandlerID]Handler),
		rooms:         make(map[string]struct{}),
	}
}

// On регистрирует обработчик события
func (r *Relay) On(event ws.EventName, handler Handler) HandlerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if r.handlers[event] == nil {
		r.handlers[event] = make(map[HandlerID]Handler)
	}
	r.handlers[event][r.nextID] = handler
	return r.nextID
}

func (r *Relay) Off(event ws.EventName, id HandlerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers[event], id)
}

func (r *Relay) JoinRoom(room string) error {
	r.mu.Lock()
	r.rooms[room] = struct{}{}
	conn := r.conn
	r.mu.Unlock()

	if conn == nil {
		return nil
	}
	return r.writeFrame(conn, ws.EventJoinRoom, room)
}

func (r *Relay) LeaveRoom(room string) error {
	r.mu.Lock()
	delete(r.rooms, room)
	conn := r.conn
	r.mu.Unlock()

	if conn == nil {
		return nil
	}
	return r.writeFrame(conn, ws.EventLeaveRoom, room)
}

// Rooms - запомненные комнаты
func (r *Relay) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

func (r *Relay) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// Run держит соединение до отмены ctx или Close.
// Возвращает ошибку, если исчерпаны попытки переподключения или сессия закрыта.
func (r *Relay) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return errors.New("relay: already running")
	}
	r.cancel = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
	}()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.delay
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0
	retry := backoff.WithMaxRetries(policy, uint64(r.attempts))

	for {
		connected, err := r.connectOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrAuthentication) {
			return err
		}
		if connected {
			retry.Reset()
		}

		wait := retry.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("relay: giving up after %d attempts: %w", r.attempts, err)
		}
		r.logger.Debug("relay reconnecting", "in", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Close останавливает Run
func (r *Relay) Close() error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.disconnect()
	return nil
}

// disconnect рвет текущее соединение, Run попробует переподключиться
func (r *Relay) disconnect() {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (r *Relay) connectOnce(ctx context.Context) (bool, error) {
	conn, err := r.dial(ctx)
	if err != nil {
		r.emit(EventConnectError, err)
		return false, err
	}

	r.mu.Lock()
	r.conn = conn
	rooms := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer func() {
		close(done)
		r.mu.Lock()
		if r.conn == conn {
			r.conn = nil
		}
		r.mu.Unlock()
		conn.Close()
	}()

	for _, room := range rooms {
		if err := r.writeFrame(conn, ws.EventJoinRoom, room); err != nil {
			return true, err
		}
	}

	for {
		var frame ws.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			r.emit(EventDisconnect, err)
			return true, err
		}
		r.dispatch(&frame)
	}
}

// dial при 401 один раз обновляет токен
func (r *Relay) dial(ctx context.Context) (*websocket.Conn, error) {
	for attempt := 0; ; attempt++ {
		token := r.client.session.accessToken()
		if token == "" {
			return nil, ErrAuthentication
		}

		conn, resp, err := r.dialer.DialContext(ctx, r.endpoint(), http.Header{
			"Authorization": []string{"Bearer " + token},
		})
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err == nil {
			return conn, nil
		}

		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			return nil, transportError(err)
		}
		if attempt > 0 {
			return nil, ErrAuthentication
		}
		if refreshErr := r.client.renew(ctx, token); refreshErr != nil {
			return nil, ErrAuthentication
		}
	}
}

func (r *Relay) endpoint() string {
	u, err := url.Parse(r.url)
	if err != nil {
		return r.url
	}
	q := u.Query()
	q.Set("clientType", r.clientType)
	q.Set("clientVersion", r.clientVersion)
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Relay) writeFrame(conn *websocket.Conn, event ws.EventName, room string) error {
	frame, err := ws.NewFrame(event, room, nil)
	if err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
	return conn.WriteJSON(frame)
}

func (r *Relay) dispatch(frame *ws.Frame) {
	switch frame.Event {
	case ws.EventProjectCreated, ws.EventProjectUpdated, ws.EventProjectDeleted:
		r.client.cache.Invalidate(EntityProjects)
	}

	r.mu.Lock()
	handlers := make([]Handler, 0, len(r.handlers[frame.Event]))
	for _, h := range r.handlers[frame.Event] {
		handlers = append(handlers, h)
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h(frame)
	}
}

// emit доставляет локальное событие (disconnect, connect_error)
func (r *Relay) emit(event ws.EventName, cause error) {
	frame, err := ws.NewFrame(event, "", ws.ErrorPayload{Code: string(event), Message: cause.Error()})
	if err != nil {
		return
	}
	r.dispatch(frame)
}
