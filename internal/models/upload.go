package models

import (
	"strings"

	"gorm.io/datatypes"
)

// UploadsRoute - относительный путь, под которым API раздает загруженные файлы
const UploadsRoute = "/uploads/"

// Upload - учет сохраненного файла (изображение или CV)
type Upload struct {
	BaseModel
	UserID          string            `gorm:"type:uuid;not null;index" json:"userId"`
	Kind            string            `gorm:"type:varchar(10);not null" json:"kind"` // image, cv
	Path            string            `gorm:"not null;uniqueIndex" json:"path"`
	URL             string            `json:"url"`
	OriginalName    string            `json:"originalName"`
	MimeType        string            `json:"mimeType"`
	Size            int64             `json:"size"`
	ThumbnailPath   *string           `json:"thumbnailPath,omitempty"`
	StorageProvider string            `gorm:"type:varchar(20);not null;default:'local'" json:"storageProvider"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// PublicPath - путь файла относительно адреса API
func (u *Upload) PublicPath() string {
	return UploadPublicPath(u.Path)
}

func UploadPublicPath(key string) string {
	return UploadsRoute + strings.TrimLeft(key, "/")
}
