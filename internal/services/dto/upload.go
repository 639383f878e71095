package dto

import (
	"time"

	"portfolio_backend/internal/models"
)

// UploadResponse - ответ на загрузку файла
type UploadResponse struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Path          string    `json:"path"`
	URL           string    `json:"url"`
	OriginalName  string    `json:"originalName"`
	Size          int64     `json:"size"`
	MimeType      string    `json:"mimeType"`
	ThumbnailPath *string   `json:"thumbnailPath,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewUploadResponse отдает пути вида /uploads/<key>; в базе хранится только ключ storage
func NewUploadResponse(u *models.Upload) *UploadResponse {
	resp := &UploadResponse{
		ID:           u.ID,
		Kind:         u.Kind,
		Path:         u.PublicPath(),
		URL:          u.URL,
		OriginalName: u.OriginalName,
		Size:         u.Size,
		MimeType:     u.MimeType,
		CreatedAt:    u.CreatedAt,
	}
	if u.ThumbnailPath != nil {
		thumb := models.UploadPublicPath(*u.ThumbnailPath)
		resp.ThumbnailPath = &thumb
	}
	return resp
}

// UploadListQuery - без limit возвращаются все записи, как и в остальных списках
type UploadListQuery struct {
	Kind   string `form:"kind" validate:"omitempty,is-upload-kind"`
	Limit  int    `form:"limit" validate:"omitempty,min=0,max=100"`
	Offset int    `form:"offset" validate:"omitempty,min=0"`
}
