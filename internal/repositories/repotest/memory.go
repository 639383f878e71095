// Package repotest содержит репозитории в памяти для unit-тестов сервисов и хэндлеров.
package repotest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories"

	"gorm.io/gorm"
)

// ContentRepository хранит документы в памяти в порядке создания
type ContentRepository[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string

	// FailNext заставляет следующий вызов записи вернуть ошибку
	FailNext error
}

func NewContentRepository[T any]() *ContentRepository[T] {
	return &ContentRepository[T]{items: make(map[string]T)}
}

var _ repositories.ContentRepository[models.Skill] = (*ContentRepository[models.Skill])(nil)

func (r *ContentRepository[T]) takeFailure() error {
	err := r.FailNext
	r.FailNext = nil
	return err
}

func (r *ContentRepository[T]) FindAll(_ *gorm.DB, opts repositories.ListOptions) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]T, 0, len(r.order))
	for _, id := range r.order {
		item := r.items[id]
		if matches(item, opts.Filters) {
			result = append(result, item)
		}
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return []T{}, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (r *ContentRepository[T]) Count(db *gorm.DB, opts repositories.ListOptions) (int64, error) {
	items, err := r.FindAll(db, repositories.ListOptions{Filters: opts.Filters})
	return int64(len(items)), err
}

func (r *ContentRepository[T]) FindByID(_ *gorm.DB, id string) (*T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &item, nil
}

func (r *ContentRepository[T]) Create(_ *gorm.DB, entity *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.takeFailure(); err != nil {
		return err
	}

	doc := any(entity).(models.Versioned)
	if err := doc.BeforeCreate(nil); err != nil {
		return err
	}
	now := time.Now().UTC()
	doc.Base().CreatedAt = now
	doc.Base().UpdatedAt = now

	if _, exists := r.items[doc.GetID()]; exists {
		return repositories.ErrAlreadyExists
	}
	r.items[doc.GetID()] = *entity
	r.order = append(r.order, doc.GetID())
	return nil
}

func (r *ContentRepository[T]) Update(_ *gorm.DB, entity *T, expectedVersion *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.takeFailure(); err != nil {
		return err
	}

	doc := any(entity).(models.Versioned)
	stored, ok := r.items[doc.GetID()]
	if !ok {
		return repositories.ErrNotFound
	}

	current := any(&stored).(models.Versioned)
	if expectedVersion != nil && *expectedVersion != current.GetVersion() {
		return repositories.ErrVersionConflict
	}

	doc.SetVersion(current.GetVersion() + 1)
	doc.Base().CreatedAt = current.Base().CreatedAt
	doc.Base().UpdatedAt = time.Now().UTC()
	r.items[doc.GetID()] = *entity
	return nil
}

func (r *ContentRepository[T]) Delete(_ *gorm.DB, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.items[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len - количество документов
func (r *ContentRepository[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// matches сравнивает фильтры (snake_case колонки) с JSON представлением документа
func matches(item any, filters map[string]interface{}) bool {
	if len(filters) == 0 {
		return true
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return false
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}

	for col, want := range filters {
		got, ok := fields[snakeToCamel(col)]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func snakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// UserRepository - пользователи в памяти
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]models.User)}
}

var _ repositories.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) find(pred func(u models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if pred(u) {
			user := u
			return &user, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *UserRepository) FindByID(_ *gorm.DB, id string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *UserRepository) FindByEmail(_ *gorm.DB, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *UserRepository) FindByVerificationToken(_ *gorm.DB, tokenHash string) (*models.User, error) {
	return r.find(func(u models.User) bool {
		return u.VerificationToken != nil && *u.VerificationToken == tokenHash
	})
}

func (r *UserRepository) FindByResetToken(_ *gorm.DB, tokenHash string) (*models.User, error) {
	return r.find(func(u models.User) bool {
		return u.ResetToken != nil && *u.ResetToken == tokenHash
	})
}

func (r *UserRepository) FindWithFilter(_ *gorm.DB, filter repositories.UserFilter) ([]models.User, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.User, 0)
	search := strings.ToLower(filter.Search)
	for _, u := range r.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Email+" "+u.FirstName+" "+u.LastName), search) {
			continue
		}
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	total := int64(len(result))
	if filter.Offset > 0 && filter.Offset < len(result) {
		result = result[filter.Offset:]
	} else if filter.Offset >= len(result) && filter.Offset > 0 {
		result = []models.User{}
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, total, nil
}

func (r *UserRepository) Create(_ *gorm.DB, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserAlreadyExists
		}
	}
	if err := user.BeforeCreate(nil); err != nil {
		return err
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) Update(_ *gorm.DB, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	for id, u := range r.users {
		if id != user.ID && u.Email == user.Email {
			return repositories.ErrUserAlreadyExists
		}
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) Delete(_ *gorm.DB, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) CountByRole(_ *gorm.DB, role models.UserRole) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, u := range r.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func (r *UserRepository) ClearExpiredTokens(_ *gorm.DB, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for id, u := range r.users {
		changed := false
		if u.VerificationToken != nil && u.VerificationTokenExp != nil && u.VerificationTokenExp.Before(now) {
			u.VerificationToken, u.VerificationTokenExp = nil, nil
			changed = true
		}
		if u.ResetToken != nil && u.ResetTokenExp != nil && u.ResetTokenExp.Before(now) {
			u.ResetToken, u.ResetTokenExp = nil, nil
			changed = true
		}
		if changed {
			r.users[id] = u
			affected++
		}
	}
	return affected, nil
}

// RefreshTokenRepository - refresh токены в памяти
type RefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{tokens: make(map[string]models.RefreshToken)}
}

var _ repositories.RefreshTokenRepository = (*RefreshTokenRepository)(nil)

func (r *RefreshTokenRepository) Create(_ *gorm.DB, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := token.BeforeCreate(nil); err != nil {
		return err
	}
	r.tokens[token.Token] = *token
	return nil
}

func (r *RefreshTokenRepository) FindByToken(_ *gorm.DB, tokenHash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, repositories.ErrRefreshTokenNotFound
	}
	return &token, nil
}

func (r *RefreshTokenRepository) DeleteByToken(_ *gorm.DB, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[tokenHash]; !ok {
		return repositories.ErrRefreshTokenNotFound
	}
	delete(r.tokens, tokenHash)
	return nil
}

func (r *RefreshTokenRepository) Consume(_ *gorm.DB, tokenHash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, repositories.ErrRefreshTokenNotFound
	}
	delete(r.tokens, tokenHash)
	return &token, nil
}

func (r *RefreshTokenRepository) DeleteByUserID(_ *gorm.DB, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, key)
		}
	}
	return nil
}

func (r *RefreshTokenRepository) CleanExpired(_ *gorm.DB, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for key, t := range r.tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.tokens, key)
			removed++
		}
	}
	return removed, nil
}

// Len - количество активных токенов
func (r *RefreshTokenRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// UploadRepository - записи о файлах в памяти
type UploadRepository struct {
	mu       sync.Mutex
	uploads  map[string]models.Upload
	FailNext error
}

func NewUploadRepository() *UploadRepository {
	return &UploadRepository{uploads: make(map[string]models.Upload)}
}

var _ repositories.UploadRepository = (*UploadRepository)(nil)

func (r *UploadRepository) Create(_ *gorm.DB, upload *models.Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailNext; err != nil {
		r.FailNext = nil
		return err
	}
	if err := upload.BeforeCreate(nil); err != nil {
		return err
	}
	upload.CreatedAt = time.Now().UTC()
	r.uploads[upload.ID] = *upload
	return nil
}

func (r *UploadRepository) FindByID(_ *gorm.DB, id string) (*models.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, repositories.ErrUploadNotFound
	}
	return &u, nil
}

func (r *UploadRepository) FindByPath(_ *gorm.DB, path string) (*models.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.uploads {
		if u.Path == path {
			found := u
			return &found, nil
		}
	}
	return nil, repositories.ErrUploadNotFound
}

func (r *UploadRepository) FindAll(_ *gorm.DB, kind string, limit, offset int) ([]models.Upload, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]models.Upload, 0)
	for _, u := range r.uploads {
		if kind == "" || u.Kind == kind {
			result = append(result, u)
		}
	}
	total := int64(len(result))
	if offset >= len(result) {
		result = result[:0]
	} else if offset > 0 {
		result = result[offset:]
	}
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, total, nil
}

func (r *UploadRepository) Delete(_ *gorm.DB, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uploads[id]; !ok {
		return repositories.ErrUploadNotFound
	}
	delete(r.uploads, id)
	return nil
}

// Len - количество записей
func (r *UploadRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.uploads)
}
