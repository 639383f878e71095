package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultTimeout        = 15 * time.Second
	DefaultCacheTTL       = 5 * time.Minute
	DefaultReadAttempts   = 3
	DefaultRetryInterval  = 200 * time.Millisecond
	DefaultReconnectTries = 10
	DefaultReconnectDelay = time.Second
	defaultClientType     = "go-sdk"
	defaultClientVersion  = "1.0.0"
	apiPrefix             = "/api/v1"
	maxResponseBody       = 10 << 20
)

// Config - параметры клиента. Обязателен только BaseURL.
type Config struct {
	BaseURL string
	// RelayURL по умолчанию ws(s)://<host>/ws
	RelayURL string

	Timeout    time.Duration
	HTTPClient *http.Client

	// TokenFile включает сохранение токенов на диск
	TokenFile  string
	TokenStore TokenStore

	CacheTTL      time.Duration
	ReadAttempts  int
	RetryInterval time.Duration

	ReconnectAttempts int
	ReconnectDelay    time.Duration

	ClientType    string
	ClientVersion string

	Logger *slog.Logger
}

// Client - точка входа SDK
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
	cache      *Cache
	relay      *Relay
	logger     *slog.Logger

	// refreshMu - одновременно идет не больше одного обновления токенов
	refreshMu sync.Mutex

	readAttempts  int
	retryInterval time.Duration
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: invalid base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.ReadAttempts <= 0 {
		cfg.ReadAttempts = DefaultReadAttempts
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = DefaultReconnectTries
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.ClientType == "" {
		cfg.ClientType = defaultClientType
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = defaultClientVersion
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RelayURL == "" {
		cfg.RelayURL = relayURLFor(base)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	clone := *httpClient
	clone.Timeout = cfg.Timeout

	store := cfg.TokenStore
	if store == nil && cfg.TokenFile != "" {
		store = NewFileTokenStore(cfg.TokenFile)
	}
	session, err := newSession(store)
	if err != nil {
		return nil, fmt.Errorf("client: load session: %w", err)
	}

	c := &Client{
		baseURL:       base.String(),
		httpClient:    &clone,
		session:       session,
		cache:         NewCache(cfg.CacheTTL),
		logger:        cfg.Logger,
		readAttempts:  cfg.ReadAttempts,
		retryInterval: cfg.RetryInterval,
	}
	c.relay = newRelay(c, cfg)
	return c, nil
}

func relayURLFor(base *url.URL) string {
	u := *base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}

// Close останавливает relay и освобождает соединения
func (c *Client) Close() error {
	err := c.relay.Close()
	c.httpClient.CloseIdleConnections()
	c.cache.Clear()
	return err
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Cache() *Cache {
	return c.cache
}

func (c *Client) Relay() *Relay {
	return c.relay
}

// AssetURL превращает относительный путь загрузки в полный URL
func (c *Client) AssetURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// request - повторяемый запрос: тело хранится в памяти
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	noRefresh   bool
}

func jsonRequest(method, path string, payload any) (*request, error) {
	req := &request{method: method, path: path}
	if payload == nil {
		return req, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}
	req.body = body
	req.contentType = "application/json"
	return req, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Count   *int64          `json:"count"`
}

// send выполняет запрос; при 401 один раз обновляет токен и повторяет
func (c *Client) send(ctx context.Context, req *request, out any) error {
	token := c.session.accessToken()
	err := c.execute(ctx, req, token, out)
	if err == nil || token == "" || req.noRefresh || KindOf(err) != KindAuthentication {
		return err
	}

	if renewErr := c.renew(ctx, token); renewErr != nil {
		c.logger.Debug("session refresh failed", "error", renewErr)
		return err
	}
	return c.execute(ctx, req, c.session.accessToken(), out)
}

func (c *Client) execute(ctx context.Context, req *request, token string, out any) error {
	target := c.baseURL + apiPrefix + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return transportError(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return parseErrorResponse(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &Error{Kind: KindServer, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindServer, StatusCode: resp.StatusCode, Message: "unexpected response data", Err: err}
	}
	return nil
}

func transportError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	return &Error{Kind: KindNetwork, Message: "no response from server", Err: err}
}

// read - кэшируемое чтение с повторами
func read[T any](ctx context.Context, c *Client, key string, req *request) (T, error) {
	if cached, ok := c.cache.Get(key); ok {
		if value, ok := cached.(T); ok {
			return value, nil
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = 0

	attempt := 0
	value, err := backoff.RetryWithData(func() (T, error) {
		attempt++
		var out T
		err := c.send(ctx, req, &out)
		if err != nil && !retryable(err) {
			return out, backoff.Permanent(err)
		}
		if err != nil {
			c.logger.Debug("read failed, retrying", "path", req.path, "attempt", attempt, "error", err)
		}
		return out, err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.readAttempts-1)), ctx))
	if err != nil {
		var zero T
		return zero, err
	}

	c.cache.Set(key, value)
	return value, nil
}

// write - без повторов, инвалидирует сущность при успехе
func write[T any](ctx context.Context, c *Client, entity string, req *request) (T, error) {
	var out T
	if err := c.send(ctx, req, &out); err != nil {
		return out, err
	}
	if entity != "" {
		c.cache.Invalidate(entity)
	}
	return out, nil
}
