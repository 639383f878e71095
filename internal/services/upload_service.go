package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"strings"
	"sync"
	"time"

	"portfolio_backend/internal/config"
	"portfolio_backend/internal/imageprocessor"
	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories"
	"portfolio_backend/internal/services/dto"
	"portfolio_backend/internal/storage"
	"portfolio_backend/pkg/apperrors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UploadService принимает изображения и CV, проверяет размер и тип по содержимому,
// сохраняет файл в storage и запись Upload в базе
type UploadService struct {
	repo     repositories.UploadRepository
	storage  storage.Storage
	policies map[config.UploadKind]config.FilePolicy
	images   *imageprocessor.Processor // nil - без миниатюр
	names    *fileNamer
}

func NewUploadService(
	repo repositories.UploadRepository,
	store storage.Storage,
	policies map[config.UploadKind]config.FilePolicy,
	images *imageprocessor.Processor,
) *UploadService {
	return &UploadService{
		repo:     repo,
		storage:  store,
		policies: policies,
		images:   images,
		names:    newFileNamer(),
	}
}

func (s *UploadService) Policy(kind config.UploadKind) (config.FilePolicy, bool) {
	p, ok := s.policies[kind]
	return p, ok
}

func (s *UploadService) Upload(ctx context.Context, db *gorm.DB, userID string, kind config.UploadKind, header *multipart.FileHeader) (*dto.UploadResponse, error) {
	policy, ok := s.policies[kind]
	if !ok {
		return nil, apperrors.ValidationError(map[string]string{"kind": "Must be one of: image, cv"})
	}
	if header == nil {
		return nil, apperrors.ErrMissingFile
	}
	if policy.MaxSize > 0 && header.Size > policy.MaxSize {
		return nil, apperrors.ErrFileTooLarge
	}

	declared := declaredType(header)
	if declared != "" && !policy.Allows(declared) {
		return nil, apperrors.ErrInvalidFileType
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperrors.ErrMissingFile.WithError(err)
	}
	defer file.Close()

	data, err := readLimited(file, policy.MaxSize)
	if err != nil {
		return nil, err
	}

	detected := mimetype.Detect(data)
	contentType := baseMediaType(detected.String())
	if !policy.Allows(contentType) {
		return nil, apperrors.ErrInvalidFileType
	}

	key := path.Join(policy.Directory, s.names.next()+detected.Extension())
	if err := s.storage.Save(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, apperrors.InternalError(err)
	}

	upload := &models.Upload{
		UserID:          userID,
		Kind:            string(kind),
		Path:            key,
		URL:             s.storage.GetURL(key),
		OriginalName:    path.Base(strings.ReplaceAll(header.Filename, "\\", "/")),
		MimeType:        contentType,
		Size:            int64(len(data)),
		StorageProvider: s.storage.Name(),
		Metadata:        datatypes.JSONMap{},
	}

	if kind == config.UploadKindImage && s.images != nil {
		s.attachThumbnail(ctx, upload, data)
	}

	if err := s.repo.Create(db, upload); err != nil {
		s.removeFiles(ctx, upload)
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "file uploaded", "kind", kind, "path", key, "size", upload.Size)
	return dto.NewUploadResponse(upload), nil
}

// attachThumbnail - ошибка миниатюры не отменяет загрузку
func (s *UploadService) attachThumbnail(ctx context.Context, upload *models.Upload, data []byte) {
	thumb, err := s.images.Thumbnail(bytes.NewReader(data), imageprocessor.SizeThumbnail)
	if err != nil {
		logger.CtxWithError(ctx, "failed to create thumbnail", err, "path", upload.Path)
		return
	}

	dir, file := path.Split(upload.Path)
	thumbKey := path.Join(dir, "thumbs", strings.TrimSuffix(file, path.Ext(file))+thumb.Extension)
	if err := s.storage.Save(ctx, thumbKey, bytes.NewReader(thumb.Data), thumb.ContentType); err != nil {
		logger.CtxWithError(ctx, "failed to store thumbnail", err, "path", thumbKey)
		return
	}

	upload.ThumbnailPath = &thumbKey
	upload.Metadata["thumbnailUrl"] = s.storage.GetURL(thumbKey)
	if w, h, err := imageprocessor.Dimensions(bytes.NewReader(data)); err == nil {
		upload.Metadata["width"] = w
		upload.Metadata["height"] = h
	}
}

func (s *UploadService) GetByID(db *gorm.DB, id string) (*dto.UploadResponse, error) {
	upload, err := s.repo.FindByID(db, id)
	if err != nil {
		return nil, mapRepoError(err, "Upload")
	}
	return dto.NewUploadResponse(upload), nil
}

func (s *UploadService) List(db *gorm.DB, query dto.UploadListQuery) ([]*dto.UploadResponse, int64, error) {
	uploads, total, err := s.repo.FindAll(db, query.Kind, query.Limit, query.Offset)
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}

	result := make([]*dto.UploadResponse, 0, len(uploads))
	for i := range uploads {
		result = append(result, dto.NewUploadResponse(&uploads[i]))
	}
	return result, total, nil
}

// Delete удаляет запись и файлы. Ошибка удаления файла только логируется.
func (s *UploadService) Delete(ctx context.Context, db *gorm.DB, id string) error {
	upload, err := s.repo.FindByID(db, id)
	if err != nil {
		return mapRepoError(err, "Upload")
	}
	if err := s.repo.Delete(db, upload.ID); err != nil {
		return mapRepoError(err, "Upload")
	}
	s.removeFiles(ctx, upload)
	return nil
}

// uploadKey переводит ссылку на файл в ключ storage. Ссылки на внешние
// ресурсы дают ok=false.
func (s *UploadService) uploadKey(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	var rest string
	switch {
	case ref == "":
		return "", false
	case strings.HasPrefix(ref, models.UploadsRoute):
		rest = strings.TrimPrefix(ref, models.UploadsRoute)
	case strings.HasPrefix(ref, s.storage.GetURL("")):
		rest = strings.TrimPrefix(ref, s.storage.GetURL(""))
	default:
		return "", false
	}
	key, err := storage.CleanPath(rest)
	if err != nil || key == "" {
		return "", true
	}
	return key, true
}

// ResolveOwned проверяет, что ссылка указывает на загрузку пользователя userID
// вида kind. Для внешних URL возвращает nil без ошибки.
func (s *UploadService) ResolveOwned(db *gorm.DB, userID string, kind config.UploadKind, ref string) (*models.Upload, error) {
	key, managed := s.uploadKey(ref)
	if !managed {
		return nil, nil
	}
	if key == "" {
		return nil, apperrors.ErrUploadNotOwned
	}

	upload, err := s.repo.FindByPath(db, key)
	switch {
	case errors.Is(err, repositories.ErrUploadNotFound):
		return nil, apperrors.ErrUploadNotOwned
	case err != nil:
		return nil, apperrors.InternalError(err)
	}
	if upload.UserID != userID || upload.Kind != string(kind) {
		return nil, apperrors.ErrUploadNotOwned
	}
	return upload, nil
}

// DeleteOwned удаляет файл, только если он принадлежит userID и имеет вид kind.
// Внешние и чужие ссылки не трогаются.
func (s *UploadService) DeleteOwned(ctx context.Context, db *gorm.DB, userID string, kind config.UploadKind, ref string) error {
	upload, err := s.ResolveOwned(db, userID, kind, ref)
	switch {
	case errors.Is(err, apperrors.ErrUploadNotOwned):
		logger.CtxWarn(ctx, "skip removing file not owned by user", "user_id", userID, "ref", ref)
		return nil
	case err != nil:
		return err
	case upload == nil:
		return nil
	}
	return s.Delete(ctx, db, upload.ID)
}

func (s *UploadService) removeFiles(ctx context.Context, upload *models.Upload) {
	if err := s.storage.Delete(ctx, upload.Path); err != nil {
		logger.CtxWithError(ctx, "failed to delete file", err, "path", upload.Path)
	}
	if upload.ThumbnailPath != nil {
		if err := s.storage.Delete(ctx, *upload.ThumbnailPath); err != nil {
			logger.CtxWithError(ctx, "failed to delete thumbnail", err, "path", *upload.ThumbnailPath)
		}
	}
}

// readLimited читает не больше maxSize байт, иначе ErrFileTooLarge
func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, apperrors.ErrMissingFile.WithError(err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, apperrors.ErrMissingFile.WithError(err)
	}
	if int64(len(data)) > maxSize {
		return nil, apperrors.ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, apperrors.ErrMissingFile
	}
	return data, nil
}

// declaredType - Content-Type части multipart; octet-stream считается неуказанным
func declaredType(header *multipart.FileHeader) string {
	ct := baseMediaType(header.Header.Get("Content-Type"))
	if ct == "application/octet-stream" {
		return ""
	}
	return ct
}

func baseMediaType(ct string) string {
	if ct == "" {
		return ""
	}
	media, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return media
}

// fileNamer выдает монотонные ULID для имен файлов
type fileNamer struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newFileNamer() *fileNamer {
	return &fileNamer{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (n *fileNamer) next() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now().UTC()), n.entropy).String())
}
