package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"portfolio_backend/internal/services/dto"
)

type Upload = dto.UploadResponse

// UploadKind - назначение файла
type UploadKind string

const (
	UploadImage UploadKind = "image"
	UploadCV    UploadKind = "cv"
)

// MaxUploadSize совпадает с лимитом сервера
const MaxUploadSize = 5 << 20

// Upload отправляет файл; сервер возвращает путь, который разрешается через AssetURL.
// Превышение лимита отклоняется до отправки.
func (c *Client) Upload(ctx context.Context, kind UploadKind, filename string, r io.Reader) (*Upload, error) {
	if kind != UploadImage && kind != UploadCV {
		return nil, &Error{Kind: KindValidation, Message: fmt.Sprintf("unknown upload kind %q", kind)}
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("client: read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, &Error{Kind: KindValidation, Message: "File size exceeds the allowed limit", Fields: map[string]string{"file": "too large"}}
	}
	if len(data) == 0 {
		return nil, &Error{Kind: KindValidation, Message: "No file provided", Fields: map[string]string{"file": "empty"}}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(filename))))
	header.Set("Content-Type", mimetype.Detect(data).String())
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := &request{
		method:      http.MethodPost,
		path:        "/uploads/" + string(kind),
		body:        body.Bytes(),
		contentType: writer.FormDataContentType(),
	}
	return write[*Upload](ctx, c, EntityUploads, req)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
