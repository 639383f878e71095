package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_backend/internal/auth"
	"portfolio_backend/internal/middleware"
	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories/repotest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type relayFixture struct {
	hub      *Hub
	notifier *HubNotifier
	server   *httptest.Server
	tokens   *auth.TokenManager
	users    *repotest.UserRepository
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()
	return newRelayFixtureWithOrigins(t, []string{"http://localhost:5173"})
}

func newRelayFixtureWithOrigins(t *testing.T, origins []string) *relayFixture {
	t.Helper()

	f := &relayFixture{
		hub:    NewHub(HubConfig{SendBuffer: 16, PingPeriod: time.Second}),
		tokens: auth.NewTokenManager("relay-test-secret-0123456789", time.Hour),
		users:  repotest.NewUserRepository(),
	}
	f.notifier = NewHubNotifier(f.hub)

	ctx, cancel := context.WithCancel(context.Background())
	go f.hub.Run(ctx)

	authn := middleware.NewAuthenticator(f.tokens, f.users, "token")
	r := gin.New()
	r.GET("/ws", NewHandler(f.hub, authn, origins).ServeWS)
	f.server = httptest.NewServer(r)

	t.Cleanup(func() {
		cancel()
		f.server.Close()
	})
	return f
}

func (f *relayFixture) token(t *testing.T, email string, role models.UserRole, status models.UserStatus) string {
	t.Helper()
	u := &models.User{FirstName: "Relay", LastName: "Test", Email: email, Role: role, Status: status}
	require.NoError(t, f.users.Create(nil, u))
	token, _, err := f.tokens.GenerateToken(u.ID, string(u.Role))
	require.NoError(t, err)
	return token
}

func (f *relayFixture) url(query string) string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws" + query
}

// dial подключается и вычитывает кадр connect
func (f *relayFixture) dial(t *testing.T, token string) (*websocket.Conn, ConnectPayload) {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(f.url("?clientType=test&clientVersion=1.0.0&token="+token), nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	frame := readFrame(t, conn)
	require.Equal(t, EventConnect, frame.Event)
	var payload ConnectPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	return conn, payload
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func sendFrame(t *testing.T, conn *websocket.Conn, event EventName, room string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(Frame{Event: event, Room: room}))
}

// assertSilent проверяет что кадров нет. Соединение после этого непригодно.
func assertSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	assert.Error(t, err, "unexpected frame: %s", data)
}

func errorCode(t *testing.T, frame Frame) string {
	t.Helper()
	require.Equal(t, EventError, frame.Event)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &p))
	return p.Code
}

func TestServeWS_RejectsMissingToken(t *testing.T) {
	f := newRelayFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(f.url(""), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWS_RejectsBannedUser(t *testing.T) {
	f := newRelayFixture(t)
	token := f.token(t, "banned@example.com", models.UserRoleUser, models.UserStatusBanned)

	_, resp, err := websocket.DefaultDialer.Dial(f.url("?token="+token), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWS_RejectsForeignOrigin(t *testing.T) {
	f := newRelayFixture(t)
	token := f.token(t, "admin@example.com", models.UserRoleAdmin, models.UserStatusActive)

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(f.url("?token="+token), header)
	require.Error(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServeWS_WildcardOriginIgnoresCookie(t *testing.T) {
	f := newRelayFixtureWithOrigins(t, []string{"*", "http://localhost:5173"})
	token := f.token(t, "admin@example.com", models.UserRoleAdmin, models.UserStatusActive)

	header := http.Header{
		"Origin": []string{"http://evil.example"},
		"Cookie": []string{"token=" + token},
	}
	_, resp, err := websocket.DefaultDialer.Dial(f.url(""), header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header.Set("Origin", "http://localhost:5173")
	conn, resp, err := websocket.DefaultDialer.Dial(f.url(""), header)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()
	assert.Equal(t, EventConnect, readFrame(t, conn).Event)
}

func TestServeWS_BearerHeader(t *testing.T) {
	f := newRelayFixture(t)
	token := f.token(t, "admin@example.com", models.UserRoleAdmin, models.UserStatusActive)

	header := http.Header{
		"Authorization": []string{"Bearer " + token},
		"Origin":        []string{"http://localhost:5173"},
	}
	conn, resp, err := websocket.DefaultDialer.Dial(f.url(""), header)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	frame := readFrame(t, conn)
	assert.Equal(t, EventConnect, frame.Event)
	assert.NotZero(t, frame.Timestamp)

	payload, err := DecodePayload(&frame)
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, payload.(*ConnectPayload).Role)

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestRelay_ProjectEventsReachOnlyJoinedClients(t *testing.T) {
	f := newRelayFixture(t)
	joined, _ := f.dial(t, f.token(t, "admin@example.com", models.UserRoleAdmin, models.UserStatusActive))
	idle, _ := f.dial(t, f.token(t, "admin2@example.com", models.UserRoleAdmin, models.UserStatusActive))

	sendFrame(t, joined, EventJoinRoom, RoomProjects)
	frame := readFrame(t, joined)
	require.Equal(t, EventRoomJoined, frame.Event)
	assert.Equal(t, RoomProjects, frame.Room)

	project := &models.Project{Title: "Relay"}
	project.ID = "p-1"
	f.notifier.ProjectCreated(project)

	frame = readFrame(t, joined)
	require.Equal(t, EventProjectCreated, frame.Event)
	payload, err := DecodePayload(&frame)
	require.NoError(t, err)
	assert.Equal(t, "Relay", payload.(*ProjectCreatedPayload).Project.Title)

	assertSilent(t, idle)
}

func TestRelay_ProjectUpdatedCarriesBothVersions(t *testing.T) {
	f := newRelayFixture(t)
	conn, _ := f.dial(t, f.token(t, "admin@example.com", models.UserRoleAdmin, models.UserStatusActive))

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "joinRoom", "data": map[string]string{"room": RoomProjects}}))
	require.Equal(t, EventRoomJoined, readFrame(t, conn).Event)

	old := &models.Project{Title: "Before"}
	updated := &models.Project{Title: "After"}
	f.notifier.ProjectUpdated(old, updated)

	frame := readFrame(t, conn)
	require.Equal(t, EventProjectUpdated, frame.Event)
	payload, err := DecodePayload(&frame)
	require.NoError(t, err)
	p := payload.(*ProjectUpdatedPayload)
	assert.Equal(t, "Before", p.Old.Title)
	assert.Equal(t, "After", p.New.Title)

	deleted := &models.Project{Title: "After"}
	deleted.ID = "p-9"
	f.notifier.ProjectDeleted(deleted)
	frame = readFrame(t, conn)
	require.Equal(t, EventProjectDeleted, frame.Event)
	payload, err = DecodePayload(&frame)
	require.NoError(t, err)
	assert.Equal(t, "p-9", payload.(*ProjectDeletedPayload).ID)
}

func TestRelay_LeaveRoomStopsDelivery(t *testing.T) {
	f := newRelayFixture(t)
	conn, _ := f.dial(t, f.token(t, "admin@example.com", models.UserRoleAdmin, models.UserStatusActive))

	sendFrame(t, conn, EventJoinRoom, RoomProjects)
	require.Equal(t, EventRoomJoined, readFrame(t, conn).Event)
	sendFrame(t, conn, EventLeaveRoom, RoomProjects)
	require.Equal(t, EventRoomLeft, readFrame(t, conn).Event)

	f.notifier.ProjectCreated(&models.Project{Title: "Missed"})
	assertSilent(t, conn)
}

func TestRelay_RoomRules(t *testing.T) {
	f := newRelayFixture(t)
	userConn, _ := f.dial(t, f.token(t, "user@example.com", models.UserRoleUser, models.UserStatusActive))

	sendFrame(t, userConn, EventJoinRoom, RoomProjects)
	assert.Equal(t, ErrCodeForbidden, errorCode(t, readFrame(t, userConn)))

	sendFrame(t, userConn, EventJoinRoom, "secrets")
	assert.Equal(t, ErrCodeUnknownRoom, errorCode(t, readFrame(t, userConn)))

	sendFrame(t, userConn, EventJoinRoom, "")
	assert.Equal(t, ErrCodeInvalidFrame, errorCode(t, readFrame(t, userConn)))

	f.notifier.ProjectCreated(&models.Project{Title: "Hidden"})
	assertSilent(t, userConn)
}

func TestRelay_PingAndUnknownFrames(t *testing.T) {
	f := newRelayFixture(t)
	conn, _ := f.dial(t, f.token(t, "user@example.com", models.UserRoleUser, models.UserStatusActive))

	sendFrame(t, conn, EventPing, "")
	assert.Equal(t, EventPong, readFrame(t, conn).Event)

	sendFrame(t, conn, "chat:message", "")
	assert.Equal(t, ErrCodeUnknownEvent, errorCode(t, readFrame(t, conn)))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, ErrCodeInvalidFrame, errorCode(t, readFrame(t, conn)))
}

func TestRelay_DisconnectForgetsClient(t *testing.T) {
	f := newRelayFixture(t)
	conn, _ := f.dial(t, f.token(t, "admin@example.com", models.UserRoleAdmin, models.UserStatusActive))

	sendFrame(t, conn, EventJoinRoom, RoomProjects)
	require.Equal(t, EventRoomJoined, readFrame(t, conn).Event)
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// повторное подключение начинается без комнат
	again, _ := f.dial(t, f.token(t, "admin2@example.com", models.UserRoleAdmin, models.UserStatusActive))
	f.notifier.ProjectCreated(&models.Project{Title: "Fresh"})
	assertSilent(t, again)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	f := newRelayFixture(t)
	conn, _ := f.dial(t, f.token(t, "admin@example.com", models.UserRoleAdmin, models.UserStatusActive))
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.hub.Shutdown(ctx))
	assert.Equal(t, 0, f.hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	// после остановки новые подключения отклоняются закрытием
	assert.False(t, f.hub.Register(&Client{send: make(chan []byte, 1)}))
	f.notifier.ProjectCreated(&models.Project{})
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(HubConfig{SendBuffer: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := &Client{id: "slow", role: models.UserRoleAdmin, hub: hub, send: make(chan []byte, 1)}
	require.True(t, hub.Register(slow))
	hub.join(slow, RoomProjects)

	// roomJoined занимает весь буфер, событие уже не помещается
	require.Eventually(t, func() bool { return len(slow.send) == 1 }, time.Second, 5*time.Millisecond)
	NewHubNotifier(hub).ProjectCreated(&models.Project{Title: "Overflow"})
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	first, ok := <-slow.send
	require.True(t, ok)
	assert.Contains(t, string(first), string(EventRoomJoined))
	_, ok = <-slow.send
	assert.False(t, ok, "send channel must be closed")
}

func TestDecodePayload_UnknownEvent(t *testing.T) {
	_, err := DecodePayload(&Frame{Event: "chat:message"})
	assert.Error(t, err)

	payload, err := DecodePayload(&Frame{Event: EventPong})
	require.NoError(t, err)
	assert.Nil(t, payload)
}
