package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidPath = errors.New("invalid file path")
)

// Storage - хранилище загруженных файлов. Пути всегда относительные,
// через "/", например "images/01J....png".
type Storage interface {
	Save(ctx context.Context, path string, reader io.Reader, contentType string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete не считает ошибкой отсутствие файла
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	// GetURL возвращает публичный URL файла
	GetURL(path string) string
	GetSize(ctx context.Context, path string) (int64, error)
	// Name - идентификатор провайдера, сохраняется в записи Upload
	Name() string
}

type Config struct {
	Type      string // local, s3, cloudflare_r2
	BasePath  string // для local
	BaseURL   string // публичный префикс URL
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // для R2 или совместимого S3
}

func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(cfg)
	case "s3":
		return NewS3Storage(cfg)
	case "cloudflare_r2":
		return NewCloudflareR2Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// CleanPath нормализует относительный путь и запрещает выход за корень хранилища
func CleanPath(p string) (string, error) {
	p = strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func joinURL(base, p string) string {
	return strings.TrimRight(base, "/") + "/" + p
}
