package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_backend/internal/auth"
	"portfolio_backend/internal/config"
	"portfolio_backend/internal/email"
	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories/repotest"
	"portfolio_backend/internal/services"
	"portfolio_backend/internal/storage"
	"portfolio_backend/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T, env string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
server:
  env: ` + env + `
database:
  url: postgres://unused
jwt:
  secret: app-test-secret-0123456789
storage:
  type: local
  base_path: ` + t.TempDir() + `
first_admin:
  email: Admin@Example.com
  password: passw0rd!
`))
	require.NoError(t, err)
	return cfg
}

func memoryDeps(t *testing.T, cfg *config.Config, hub *ws.Hub) (Deps, *repotest.UserRepository) {
	t.Helper()
	store, err := storage.NewLocalStorage(storage.Config{BasePath: cfg.Storage.BasePath, BaseURL: cfg.Storage.BaseURL})
	require.NoError(t, err)

	users := repotest.NewUserRepository()
	return Deps{
		Repos: services.Repositories{
			Users:          users,
			RefreshTokens:  repotest.NewRefreshTokenRepository(),
			Uploads:        repotest.NewUploadRepository(),
			Skills:         repotest.NewContentRepository[models.Skill](),
			Experiences:    repotest.NewContentRepository[models.Experience](),
			Educations:     repotest.NewContentRepository[models.Education](),
			Certifications: repotest.NewContentRepository[models.Certification](),
			Projects:       repotest.NewContentRepository[models.Project](),
		},
		Storage: store,
		Mailer:  email.NewLogProvider(email.NewTemplateManager()),
		Hub:     hub,
	}, users
}

func serve(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, router http.Handler, emailAddr, password string) string {
	t.Helper()
	w := serve(router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": emailAddr, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token
}

func TestSeedFirstAdmin(t *testing.T) {
	cfg := testConfig(t, "test")
	users := repotest.NewUserRepository()

	require.NoError(t, seedFirstAdmin(nil, users, cfg))
	admin, err := users.FindByEmail(nil, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, admin.Role)
	assert.Equal(t, models.UserStatusActive, admin.Status)
	assert.True(t, admin.IsVerified)
	assert.True(t, auth.CheckPasswordHash("passw0rd!", admin.PasswordHash))

	// повторный запуск ничего не меняет
	require.NoError(t, seedFirstAdmin(nil, users, cfg))
	count, err := users.CountByRole(nil, models.UserRoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSeedFirstAdmin_SkipsWithoutCredentials(t *testing.T) {
	cfg := testConfig(t, "test")
	cfg.FirstAdmin.Password = ""
	users := repotest.NewUserRepository()

	require.NoError(t, seedFirstAdmin(nil, users, cfg))
	count, err := users.CountByRole(nil, models.UserRoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSeedFirstAdmin_RejectsWeakPassword(t *testing.T) {
	cfg := testConfig(t, "test")
	cfg.FirstAdmin.Password = "short"

	assert.Error(t, seedFirstAdmin(nil, repotest.NewUserRepository(), cfg))
}

func TestSetupRouter_WiresAPI(t *testing.T) {
	cfg := testConfig(t, "test")
	deps, users := memoryDeps(t, cfg, nil)
	require.NoError(t, seedFirstAdmin(nil, users, cfg))
	router := SetupRouter(cfg, nil, deps)

	token := loginToken(t, router, "admin@example.com", "passw0rd!")

	w := serve(router, http.MethodPost, "/api/v1/skills", token, map[string]string{"name": "Go", "category": "backend"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(router, http.MethodGet, "/api/v1/skills", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Success bool           `json:"success"`
		Count   int            `json:"count"`
		Data    []models.Skill `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.True(t, list.Success)
	assert.Equal(t, 1, list.Count)

	w = serve(router, http.MethodGet, "/api/v1/users", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// без хаба /ws не регистрируется
	w = serve(router, http.MethodGet, "/ws", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRouter_HealthReportsRelayClients(t *testing.T) {
	cfg := testConfig(t, "test")
	hub := ws.NewHub(ws.HubConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	deps, _ := memoryDeps(t, cfg, hub)
	router := SetupRouter(cfg, nil, deps)

	w := serve(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "down", body["database"])
	assert.EqualValues(t, 0, body["relayClients"])

	w = serve(router, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetupRouter_SwaggerOnlyOutsideProduction(t *testing.T) {
	dev := testConfig(t, "development")
	deps, _ := memoryDeps(t, dev, nil)
	w := serve(SetupRouter(dev, nil, deps), http.MethodGet, "/swagger/doc.json", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	prod := testConfig(t, "production")
	deps, _ = memoryDeps(t, prod, nil)
	w = serve(SetupRouter(prod, nil, deps), http.MethodGet, "/swagger/doc.json", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRouter_CORSPreflight(t *testing.T) {
	cfg := testConfig(t, "test")
	deps, _ := memoryDeps(t, cfg, nil)
	router := SetupRouter(cfg, nil, deps)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/skills", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestNewMailer_FallsBackToLog(t *testing.T) {
	cfg := testConfig(t, "test")
	mailer, err := newMailer(cfg)
	require.NoError(t, err)
	_, ok := mailer.(*email.LogProvider)
	assert.True(t, ok)
	assert.NoError(t, mailer.Close())

	// отсутствующий каталог шаблонов не мешает запуску
	cfg.Email.TemplatesDir = "/definitely/missing"
	_, err = newMailer(cfg)
	assert.NoError(t, err)
}
