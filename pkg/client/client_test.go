package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAPI - минимальный сервер с форматом ответов API
type stubAPI struct {
	*httptest.Server
	mux *http.ServeMux

	mu   sync.Mutex
	hits map[string]int
}

func newStubAPI(t *testing.T) *stubAPI {
	t.Helper()
	s := &stubAPI{mux: http.NewServeMux(), hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		s.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *stubAPI) count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

func (s *stubAPI) client(t *testing.T, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{BaseURL: s.URL, RetryInterval: time.Millisecond}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "code": code, "message": message})
}

func loginPayload(access, refresh string) map[string]any {
	return map[string]any{
		"token":        access,
		"refreshToken": refresh,
		"expiresAt":    time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		"user":         map[string]any{"id": "user-1", "email": "admin@example.com", "role": "admin"},
	}
}

func (s *stubAPI) handleLogin(access, refresh string) {
	s.mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, loginPayload(access, refresh))
	})
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "localhost:5000"})
	assert.Error(t, err)
}

func TestNew_DerivesRelayURL(t *testing.T) {
	c, err := New(Config{BaseURL: "https://api.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/ws", c.Relay().url)

	c, err = New(Config{BaseURL: "http://localhost:5000"})
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:5000/ws", c.Relay().url)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func TestClient_AssetURL(t *testing.T) {
	c, err := New(Config{BaseURL: "http://localhost:5000"})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/uploads/images/a.png", c.AssetURL("/uploads/images/a.png"))
	assert.Equal(t, "https://cdn.example.com/a.png", c.AssetURL("https://cdn.example.com/a.png"))
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		status   int
		kind     ErrorKind
		sentinel error
	}{
		{http.StatusBadRequest, KindValidation, ErrValidation},
		{http.StatusUnprocessableEntity, KindValidation, ErrValidation},
		{http.StatusUnauthorized, KindAuthentication, ErrAuthentication},
		{http.StatusForbidden, KindAuthorization, ErrAuthorization},
		{http.StatusNotFound, KindNotFound, ErrNotFound},
		{http.StatusConflict, KindConflict, ErrConflict},
		{http.StatusTooManyRequests, KindRateLimit, ErrRateLimit},
		{http.StatusInternalServerError, KindServer, ErrServer},
		{http.StatusBadGateway, KindServer, ErrServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			api := newStubAPI(t)
			api.mux.HandleFunc("/api/v1/skills", func(w http.ResponseWriter, r *http.Request) {
				writeFailure(w, tt.status, "SOME_CODE", "went wrong")
			})

			_, err := api.client(t, func(c *Config) { c.ReadAttempts = 1 }).Skills().List(context.Background(), nil)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.True(t, errors.Is(err, tt.sentinel))

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "went wrong", apiErr.Message)
			assert.Equal(t, "SOME_CODE", apiErr.Code)
		})
	}
}

func TestErrorTaxonomy_ValidationFields(t *testing.T) {
	api := newStubAPI(t)
	api.mux.HandleFunc("/api/v1/skills", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"code":"VALIDATION_FAILED","message":"Validation failed","errors":{"category":"Must be one of: frontend, backend"}}`)
	})

	_, err := api.client(t).Skills().Create(context.Background(), &CreateSkill{Name: "Go"})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Contains(t, apiErr.Fields, "category")
}

func TestErrorTaxonomy_NonJSONBody(t *testing.T) {
	api := newStubAPI(t)
	api.mux.HandleFunc("/api/v1/skills", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := api.client(t, func(c *Config) { c.ReadAttempts = 1 }).Skills().List(context.Background(), nil)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestErrorTaxonomy_NetworkAndTimeout(t *testing.T) {
	t.Run("no server", func(t *testing.T) {
		api := newStubAPI(t)
		c := api.client(t, func(c *Config) { c.ReadAttempts = 1 })
		api.Close()

		_, err := c.Skills().List(context.Background(), nil)
		assert.True(t, errors.Is(err, ErrNetwork), "got %v", err)
	})

	t.Run("timeout", func(t *testing.T) {
		api := newStubAPI(t)
		api.mux.HandleFunc("/api/v1/skills", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		c := api.client(t, func(c *Config) {
			c.Timeout = 50 * time.Millisecond
			c.ReadAttempts = 1
		})

		_, err := c.Skills().List(context.Background(), nil)
		assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	})
}

func TestRead_RetriesTransientFailures(t *testing.T) {
	api := newStubAPI(t)
	var calls atomic.Int32
	api.mux.HandleFunc("/api/v1/skills", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeFailure(w, http.StatusServiceUnavailable, "INTERNAL_ERROR", "try later")
			return
		}
		writeData(w, http.StatusOK, []map[string]any{{"id": "s1", "name": "Go", "category": "backend"}})
	})

	skills, err := api.client(t).Skills().List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, "Go", skills[0].Name)
	assert.Equal(t, 3, api.count(http.MethodGet, "/api/v1/skills"))
}

func TestRead_GivesUpAfterAttempts(t *testing.T) {
	api := newStubAPI(t)
	api.mux.HandleFunc("/api/v1/skills", func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusInternalServerError, "INTERNAL_ERROR", "boom")
	})

	_, err := api.client(t, func(c *Config) { c.ReadAttempts = 2 }).Skills().List(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrServer))
	assert.Equal(t, 2, api.count(http.MethodGet, "/api/v1/skills"))
}

func TestRead_DoesNotRetryClientErrors(t *testing.T) {
	api := newStubAPI(t)
	api.mux.HandleFunc("/api/v1/skills/missing", func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "NOT_FOUND", "Skill not found")
	})

	_, err := api.client(t).Skills().Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 1, api.count(http.MethodGet, "/api/v1/skills/missing"))
}

func TestWrite_IsNotRetried(t *testing.T) {
	api := newStubAPI(t)
	api.mux.HandleFunc("/api/v1/skills", func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusInternalServerError, "INTERNAL_ERROR", "boom")
	})

	_, err := api.client(t).Skills().Create(context.Background(), &CreateSkill{Name: "Go", Category: "backend"})
	assert.True(t, errors.Is(err, ErrServer))
	assert.Equal(t, 1, api.count(http.MethodPost, "/api/v1/skills"))
}

func TestCache_ServesReadsWithinTTL(t *testing.T) {
	api := newStubAPI(t)
	api.mux.HandleFunc("/api/v1/skills", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeData(w, http.StatusCreated, map[string]any{"id": "s2", "name": "Rust", "category": "backend"})
			return
		}
		writeData(w, http.StatusOK, []map[string]any{{"id": "s1", "name": "Go", "category": "backend"}})
	})
	c := api.client(t)
	now := time.Now()
	c.Cache().now = func() time.Time { return now }
	ctx := context.Background()

	_, err := c.Skills().List(ctx, nil)
	require.NoError(t, err)
	_, err = c.Skills().List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, api.count(http.MethodGet, "/api/v1/skills"))

	// другой набор фильтров - отдельный ключ
	_, err = c.Skills().List(ctx, &ListOptions{Filters: map[string]string{"category": "backend"}})
	require.NoError(t, err)
	assert.Equal(t, 2, api.count(http.MethodGet, "/api/v1/skills"))

	_, err = c.Skills().Create(ctx, &CreateSkill{Name: "Rust", Category: "backend"})
	require.NoError(t, err)
	_, err = c.Skills().List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, api.count(http.MethodGet, "/api/v1/skills"))

	now = now.Add(DefaultCacheTTL)
	_, err = c.Skills().List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, api.count(http.MethodGet, "/api/v1/skills"))
}

func TestCache_InvalidateOnlyTouchesEntity(t *testing.T) {
	cache := NewCache(time.Minute)
	cache.Set("skills", 1)
	cache.Set("skills/abc", 2)
	cache.Set("skills?category=backend", 3)
	cache.Set("projects", 4)

	cache.Invalidate("skills")

	for _, key := range []string{"skills", "skills/abc", "skills?category=backend"} {
		_, ok := cache.Get(key)
		assert.False(t, ok, key)
	}
	v, ok := cache.Get("projects")
	assert.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestCache_DisabledWithNegativeTTL(t *testing.T) {
	cache := NewCache(-1)
	cache.Set("skills", 1)
	_, ok := cache.Get("skills")
	assert.False(t, ok)
}

func TestSession_RefreshesOnceOn401(t *testing.T) {
	api := newStubAPI(t)
	api.handleLogin("access-1", "refresh-1")
	api.mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.RefreshToken != "refresh-1" {
			writeFailure(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}
		writeData(w, http.StatusOK, loginPayload("access-2", "refresh-2"))
	})
	api.mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			writeFailure(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}
		writeData(w, http.StatusOK, map[string]any{"id": "user-1", "role": "admin"})
	})

	c := api.client(t)
	ctx := context.Background()
	_, err := c.Login(ctx, "admin@example.com", "passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, c.Session().State())
	assert.Equal(t, "admin", c.Role())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", me.ID)
	assert.Equal(t, 1, api.count(http.MethodPost, "/api/v1/auth/refresh"))
	assert.Equal(t, 2, api.count(http.MethodGet, "/api/v1/auth/me"))
	assert.Equal(t, "refresh-2", c.Session().refreshToken())
	assert.Equal(t, "user-1", c.Session().UserID())
}

func TestSession_ExpiresWhenRefreshFails(t *testing.T) {
	api := newStubAPI(t)
	api.handleLogin("access-1", "refresh-1")
	api.mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
	})
	api.mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
	})

	c := api.client(t)
	ctx := context.Background()
	_, err := c.Login(ctx, "admin@example.com", "passw0rd!")
	require.NoError(t, err)
	c.Cache().Set("skills", []Skill{})

	_, err = c.Me(ctx)
	assert.True(t, errors.Is(err, ErrAuthentication))
	assert.Equal(t, StateExpired, c.Session().State())
	assert.False(t, c.IsAuthenticated())
	assert.Empty(t, c.Role())
	_, cached := c.Cache().Get("skills")
	assert.False(t, cached)

	// без токена повторного refresh уже нет
	_, err = c.Me(ctx)
	assert.True(t, errors.Is(err, ErrAuthentication))
	assert.Equal(t, 1, api.count(http.MethodPost, "/api/v1/auth/refresh"))
}

func TestSession_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	api := newStubAPI(t)
	api.handleLogin("access-1", "refresh-1")

	var used atomic.Int32
	api.mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		// refresh токен одноразовый, как на сервере
		if body.RefreshToken != "refresh-1" || used.Add(1) > 1 {
			writeFailure(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}
		writeData(w, http.StatusOK, loginPayload("access-2", "refresh-2"))
	})

	// оба запроса получают 401 одновременно
	var stale atomic.Int32
	bothStale := make(chan struct{})
	protected := func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			if stale.Add(1) == 2 {
				close(bothStale)
			}
			select {
			case <-bothStale:
			case <-time.After(2 * time.Second):
			}
			writeFailure(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}
		writeData(w, http.StatusOK, []any{})
	}
	api.mux.HandleFunc("/api/v1/skills", protected)
	api.mux.HandleFunc("/api/v1/projects", protected)

	c := api.client(t, func(c *Config) { c.ReadAttempts = 1 })
	ctx := context.Background()
	_, err := c.Login(ctx, "admin@example.com", "passw0rd!")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = c.Skills().List(ctx, nil)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = c.Projects().List(ctx, nil)
	}()
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, 1, api.count(http.MethodPost, "/api/v1/auth/refresh"))
	assert.Equal(t, StateAuthenticated, c.Session().State())
	assert.Equal(t, "refresh-2", c.Session().refreshToken())
}

func TestSession_StaleRefreshFailureKeepsRotatedSession(t *testing.T) {
	api := newStubAPI(t)
	api.handleLogin("access-1", "refresh-1")
	api.mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
	})

	c := api.client(t)
	_, err := c.Login(context.Background(), "admin@example.com", "passw0rd!")
	require.NoError(t, err)

	// сессия уже сменила пару, отказ по старому refresh токену ее не трогает
	require.NoError(t, c.Session().rotated("refresh-1", Tokens{AccessToken: "access-2", RefreshToken: "refresh-2"}))
	assert.False(t, c.Session().expireIf("refresh-1"))
	assert.Equal(t, StateAuthenticated, c.Session().State())

	assert.True(t, c.Session().expireIf("refresh-2"))
	assert.Equal(t, StateExpired, c.Session().State())
}

func TestSession_AnonymousRequestsSkipRefresh(t *testing.T) {
	api := newStubAPI(t)
	api.mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	})

	c := api.client(t)
	_, err := c.Me(context.Background())
	assert.True(t, errors.Is(err, ErrAuthentication))
	assert.Equal(t, StateAnonymous, c.Session().State())
	assert.Zero(t, api.count(http.MethodPost, "/api/v1/auth/refresh"))
}

func TestLogout_RevokesLocallyEvenWhenServerFails(t *testing.T) {
	api := newStubAPI(t)
	api.handleLogin("access-1", "refresh-1")
	var gotRefresh string
	api.mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotRefresh = body.RefreshToken
		writeFailure(w, http.StatusInternalServerError, "INTERNAL_ERROR", "boom")
	})

	c := api.client(t)
	ctx := context.Background()
	_, err := c.Login(ctx, "admin@example.com", "passw0rd!")
	require.NoError(t, err)

	err = c.Logout(ctx)
	assert.True(t, errors.Is(err, ErrServer))
	assert.Equal(t, "refresh-1", gotRefresh)
	assert.Equal(t, StateRevoked, c.Session().State())
	assert.Empty(t, c.Session().accessToken())
}

func TestFileTokenStore_PersistsSession(t *testing.T) {
	api := newStubAPI(t)
	api.handleLogin("access-1", "refresh-1")
	api.mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, nil)
	})
	path := filepath.Join(t.TempDir(), "session", "tokens.json")
	ctx := context.Background()

	first := api.client(t, func(c *Config) { c.TokenFile = path })
	_, err := first.Login(ctx, "admin@example.com", "passw0rd!")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second := api.client(t, func(c *Config) { c.TokenFile = path })
	assert.True(t, second.IsAuthenticated())
	assert.Equal(t, "admin", second.Role())
	assert.Equal(t, "access-1", second.Session().accessToken())

	require.NoError(t, second.Logout(ctx))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	third := api.client(t, func(c *Config) { c.TokenFile = path })
	assert.Equal(t, StateAnonymous, third.Session().State())
}

func TestFileTokenStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(Config{BaseURL: "http://localhost:5000", TokenFile: path})
	assert.Error(t, err)
}

func TestUpload_RejectsBeforeSending(t *testing.T) {
	api := newStubAPI(t)
	c := api.client(t)
	ctx := context.Background()

	_, err := c.Upload(ctx, UploadImage, "big.png", strings.NewReader(strings.Repeat("a", MaxUploadSize+1)))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = c.Upload(ctx, UploadCV, "empty.pdf", strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = c.Upload(ctx, UploadKind("video"), "a.mp4", strings.NewReader("data"))
	assert.True(t, errors.Is(err, ErrValidation))

	assert.Zero(t, api.count(http.MethodPost, "/api/v1/uploads/image"))
	assert.Zero(t, api.count(http.MethodPost, "/api/v1/uploads/cv"))
}

func TestUpload_SendsDetectedContentType(t *testing.T) {
	api := newStubAPI(t)
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

	api.mux.HandleFunc("/api/v1/uploads/cv", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			writeFailure(w, http.StatusBadRequest, "VALIDATION_FAILED", "No file provided")
			return
		}
		defer file.Close()
		assert.Equal(t, "cv.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		writeData(w, http.StatusCreated, map[string]any{
			"id": "u1", "kind": "cv", "path": "/uploads/cvs/cv.pdf", "size": header.Size, "mimeType": "application/pdf",
		})
	})

	c := api.client(t)
	c.Cache().Set("uploads", []Upload{})

	upload, err := c.Upload(context.Background(), UploadCV, "/tmp/cv.pdf", strings.NewReader(string(pdf)))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/cvs/cv.pdf", upload.Path)
	assert.Equal(t, api.URL+"/uploads/cvs/cv.pdf", c.AssetURL(upload.Path))
	_, cached := c.Cache().Get("uploads")
	assert.False(t, cached)
}
