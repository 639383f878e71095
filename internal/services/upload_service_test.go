package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"portfolio_backend/internal/config"
	"portfolio_backend/internal/imageprocessor"
	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories/repotest"
	"portfolio_backend/internal/services/dto"
	"portfolio_backend/internal/storage"
	"portfolio_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxSize = 64 << 10

type uploadFixture struct {
	svc   *UploadService
	repo  *repotest.UploadRepository
	store *storage.LocalStorage
	dir   string
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(storage.Config{BasePath: dir})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Upload.MaxSize = testMaxSize
	cfg.Upload.ImageTypes = []string{"image/jpeg", "image/png", "image/webp"}
	cfg.Upload.DocumentTypes = []string{"application/pdf"}

	repo := repotest.NewUploadRepository()
	return &uploadFixture{
		svc:   NewUploadService(repo, store, cfg.FilePolicies(), imageprocessor.NewProcessor(80)),
		repo:  repo,
		store: store,
		dir:   dir,
	}
}

// countFiles - число файлов в хранилище (без временных)
func (f *uploadFixture) countFiles(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.Walk(f.dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

func fileHeader(t *testing.T, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func TestUploadService_ImageWithThumbnail(t *testing.T) {
	f := newUploadFixture(t)

	resp, err := f.svc.Upload(context.Background(), nil, "user-1", config.UploadKindImage, fileHeader(t, "cover.png", "image/png", pngBytes(t, 900, 300)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Path, "/uploads/images/"), resp.Path)
	assert.True(t, strings.HasSuffix(resp.Path, ".png"), resp.Path)
	assert.Equal(t, resp.Path, resp.URL)
	assert.Equal(t, "image/png", resp.MimeType)
	assert.Equal(t, "cover.png", resp.OriginalName)
	require.NotNil(t, resp.ThumbnailPath)
	assert.True(t, strings.HasPrefix(*resp.ThumbnailPath, "/uploads/images/thumbs/"), *resp.ThumbnailPath)

	exists, err := f.store.Exists(context.Background(), strings.TrimPrefix(resp.Path, models.UploadsRoute))
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 2, f.countFiles(t))
	assert.Equal(t, 1, f.repo.Len())
}

func TestUploadService_CV(t *testing.T) {
	f := newUploadFixture(t)

	resp, err := f.svc.Upload(context.Background(), nil, "user-1", config.UploadKindCV, fileHeader(t, "cv.pdf", "application/pdf", pdfBytes))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Path, "/uploads/cvs/"), resp.Path)
	assert.Equal(t, "application/pdf", resp.MimeType)
	assert.Nil(t, resp.ThumbnailPath)
}

func TestUploadService_RejectsAndPersistsNothing(t *testing.T) {
	tests := []struct {
		name   string
		kind   config.UploadKind
		header func(t *testing.T) *multipart.FileHeader
		want   *apperrors.AppError
	}{
		{
			name:   "too large",
			kind:   config.UploadKindCV,
			header: func(t *testing.T) *multipart.FileHeader { return fileHeader(t, "big.pdf", "application/pdf", bytes.Repeat([]byte("a"), testMaxSize+1)) },
			want:   apperrors.ErrFileTooLarge,
		},
		{
			name:   "declared type not allowed",
			kind:   config.UploadKindImage,
			header: func(t *testing.T) *multipart.FileHeader { return fileHeader(t, "x.gif", "image/gif", []byte("GIF89a....")) },
			want:   apperrors.ErrInvalidFileType,
		},
		{
			name:   "content does not match",
			kind:   config.UploadKindImage,
			header: func(t *testing.T) *multipart.FileHeader { return fileHeader(t, "evil.png", "image/png", []byte("<html>not an image</html>")) },
			want:   apperrors.ErrInvalidFileType,
		},
		{
			name:   "pdf as image",
			kind:   config.UploadKindImage,
			header: func(t *testing.T) *multipart.FileHeader { return fileHeader(t, "cv.png", "", pdfBytes) },
			want:   apperrors.ErrInvalidFileType,
		},
		{
			name:   "missing file",
			kind:   config.UploadKindCV,
			header: func(t *testing.T) *multipart.FileHeader { return nil },
			want:   apperrors.ErrMissingFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUploadFixture(t)

			_, err := f.svc.Upload(context.Background(), nil, "user-1", tt.kind, tt.header(t))
			assert.ErrorIs(t, err, tt.want)
			requireStatus(t, err, http.StatusBadRequest)

			assert.Equal(t, 0, f.countFiles(t))
			assert.Equal(t, 0, f.repo.Len())
		})
	}
}

func TestUploadService_UnknownKind(t *testing.T) {
	f := newUploadFixture(t)
	_, err := f.svc.Upload(context.Background(), nil, "user-1", config.UploadKind("video"), fileHeader(t, "a.pdf", "", pdfBytes))
	requireStatus(t, err, http.StatusBadRequest)
}

func TestUploadService_DBFailureRemovesFile(t *testing.T) {
	f := newUploadFixture(t)
	f.repo.FailNext = assert.AnError

	_, err := f.svc.Upload(context.Background(), nil, "user-1", config.UploadKindImage, fileHeader(t, "a.png", "image/png", pngBytes(t, 10, 10)))
	requireStatus(t, err, http.StatusInternalServerError)
	assert.Equal(t, 0, f.countFiles(t))
}

func TestUploadService_Delete(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	img, err := f.svc.Upload(ctx, nil, "user-1", config.UploadKindImage, fileHeader(t, "a.png", "image/png", pngBytes(t, 600, 600)))
	require.NoError(t, err)
	require.Equal(t, 2, f.countFiles(t))

	require.NoError(t, f.svc.Delete(ctx, nil, img.ID))
	assert.Equal(t, 0, f.countFiles(t))

	_, err = f.svc.GetByID(nil, img.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestUploadService_ResolveOwned(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	cv, err := f.svc.Upload(ctx, nil, "user-1", config.UploadKindCV, fileHeader(t, "cv.pdf", "application/pdf", pdfBytes))
	require.NoError(t, err)

	upload, err := f.svc.ResolveOwned(nil, "user-1", config.UploadKindCV, cv.Path)
	require.NoError(t, err)
	assert.Equal(t, cv.ID, upload.ID)

	upload, err = f.svc.ResolveOwned(nil, "user-1", config.UploadKindCV, "https://cdn.example.com/cv.pdf")
	require.NoError(t, err)
	assert.Nil(t, upload)

	tests := []struct {
		name   string
		userID string
		kind   config.UploadKind
		ref    string
	}{
		{name: "other user", userID: "user-2", kind: config.UploadKindCV, ref: cv.Path},
		{name: "wrong kind", userID: "user-1", kind: config.UploadKindImage, ref: cv.Path},
		{name: "unknown file", userID: "user-1", kind: config.UploadKindCV, ref: "/uploads/cvs/missing.pdf"},
		{name: "traversal", userID: "user-1", kind: config.UploadKindCV, ref: "/uploads/../config.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ResolveOwned(nil, tt.userID, tt.kind, tt.ref)
			assert.ErrorIs(t, err, apperrors.ErrUploadNotOwned)
		})
	}
}

func TestUploadService_DeleteOwned(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	cv, err := f.svc.Upload(ctx, nil, "user-1", config.UploadKindCV, fileHeader(t, "cv.pdf", "application/pdf", pdfBytes))
	require.NoError(t, err)

	// чужой файл и внешний URL не удаляются
	require.NoError(t, f.svc.DeleteOwned(ctx, nil, "user-2", config.UploadKindCV, cv.Path))
	require.NoError(t, f.svc.DeleteOwned(ctx, nil, "user-1", config.UploadKindCV, "https://cdn.example.com/cv.pdf"))
	assert.Equal(t, 1, f.countFiles(t))
	assert.Equal(t, 1, f.repo.Len())

	require.NoError(t, f.svc.DeleteOwned(ctx, nil, "user-1", config.UploadKindCV, cv.URL))
	assert.Equal(t, 0, f.countFiles(t))
	assert.Equal(t, 0, f.repo.Len())
}

func TestUploadService_ListLimitOffset(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Upload(ctx, nil, "u", config.UploadKindCV, fileHeader(t, "cv.pdf", "", pdfBytes))
		require.NoError(t, err)
	}

	items, total, err := f.svc.List(nil, dto.UploadListQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 1)

	items, _, err = f.svc.List(nil, dto.UploadListQuery{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUploadService_List(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, nil, "u", config.UploadKindCV, fileHeader(t, "cv.pdf", "", pdfBytes))
	require.NoError(t, err)
	_, err = f.svc.Upload(ctx, nil, "u", config.UploadKindImage, fileHeader(t, "a.png", "", pngBytes(t, 4, 4)))
	require.NoError(t, err)

	items, total, err := f.svc.List(nil, dto.UploadListQuery{Kind: "cv"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "cv", items[0].Kind)
}
