package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State - состояние сессии
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
	StateExpired       State = "expired"
	StateRevoked       State = "revoked"
)

// Tokens - то, что сохраняет TokenStore
type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	UserID       string    `json:"userId"`
	Role         string    `json:"role"`
}

// TokenStore сохраняет токены между запусками
type TokenStore interface {
	Load() (*Tokens, error)
	Save(tokens *Tokens) error
	Clear() error
}

// FileTokenStore хранит токены в JSON файле с правами 0600
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Load() (*Tokens, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tokens Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return &tokens, nil
}

func (s *FileTokenStore) Save(tokens *Tokens) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Session хранит токены клиента.
// anonymous → authenticated → expired | revoked; из expired и revoked
// снова можно войти через Login.
type Session struct {
	mu     sync.RWMutex
	state  State
	tokens Tokens
	store  TokenStore
}

func newSession(store TokenStore) (*Session, error) {
	s := &Session{state: StateAnonymous, store: store}
	if store == nil {
		return s, nil
	}

	tokens, err := store.Load()
	if err != nil {
		return nil, err
	}
	if tokens != nil && tokens.AccessToken != "" {
		s.tokens = *tokens
		s.state = StateAuthenticated
	}
	return s, nil
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated {
		return ""
	}
	return s.tokens.Role
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated {
		return ""
	}
	return s.tokens.UserID
}

func (s *Session) accessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated {
		return ""
	}
	return s.tokens.AccessToken
}

func (s *Session) refreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.RefreshToken
}

func (s *Session) authenticate(tokens Tokens) error {
	s.mu.Lock()
	s.tokens = tokens
	s.state = StateAuthenticated
	s.mu.Unlock()

	if s.store != nil {
		return s.store.Save(&tokens)
	}
	return nil
}

// rotated обновляет токены только если сессия не была закрыта за время refresh
func (s *Session) rotated(previousRefresh string, tokens Tokens) error {
	s.mu.Lock()
	if s.tokens.RefreshToken != previousRefresh {
		s.mu.Unlock()
		return nil
	}
	if tokens.UserID == "" {
		tokens.UserID, tokens.Role = s.tokens.UserID, s.tokens.Role
	}
	s.tokens = tokens
	s.state = StateAuthenticated
	s.mu.Unlock()

	if s.store != nil {
		return s.store.Save(&tokens)
	}
	return nil
}

// expireIf закрывает сессию, только если она все еще держит refresh токен
func (s *Session) expireIf(refreshToken string) bool {
	s.mu.Lock()
	if s.state != StateAuthenticated || s.tokens.RefreshToken != refreshToken {
		s.mu.Unlock()
		return false
	}
	s.tokens = Tokens{}
	s.state = StateExpired
	s.mu.Unlock()

	if s.store != nil {
		_ = s.store.Clear()
	}
	return true
}

func (s *Session) revoke() {
	s.end(StateRevoked)
}

func (s *Session) end(state State) {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.state = state
	s.mu.Unlock()

	if s.store != nil {
		_ = s.store.Clear()
	}
}
