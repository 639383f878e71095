package handlers

import (
	"errors"
	"net/http"

	"portfolio_backend/internal/config"
	"portfolio_backend/internal/middleware"
	"portfolio_backend/internal/services"
	"portfolio_backend/internal/services/dto"
	"portfolio_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// запас на заголовки multipart сверх лимита файла
const multipartOverhead = 64 << 10

type UploadHandler struct {
	*BaseHandler
	uploadService *services.UploadService
}

func NewUploadHandler(base *BaseHandler, uploadService *services.UploadService) *UploadHandler {
	return &UploadHandler{
		BaseHandler:   base,
		uploadService: uploadService,
	}
}

func (h *UploadHandler) RegisterRoutes(rg *gin.RouterGroup, authn *middleware.Authenticator) {
	uploads := rg.Group("/uploads")
	uploads.Use(authn.AuthMiddleware())
	{
		uploads.POST("/image", h.upload(config.UploadKindImage))
		uploads.POST("/cv", h.upload(config.UploadKindCV))

		admin := uploads.Group("")
		admin.Use(middleware.AdminOnly())
		admin.GET("", h.ListUploads)
		admin.GET("/:id", h.GetUpload)
		admin.DELETE("/:id", h.DeleteUpload)
	}
}

// upload godoc
// @Summary Загрузить файл
// @Description multipart поле "file". Изображения: jpeg, png, webp. CV: pdf. Не больше 5 MB.
// @Tags uploads
// @Security BearerAuth
// @Accept multipart/form-data
// @Param kind path string true "image | cv"
// @Param file formData file true "Файл"
// @Success 201 {object} Response{data=dto.UploadResponse}
// @Failure 400 {object} apperrors.AppError
// @Router /api/v1/uploads/{kind} [post]
func (h *UploadHandler) upload(kind config.UploadKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.GetAndAuthorizeUserID(c)
		if !ok {
			return
		}

		if policy, ok := h.uploadService.Policy(kind); ok && policy.MaxSize > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, policy.MaxSize+multipartOverhead)
		}

		header, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				h.HandleServiceError(c, apperrors.ErrFileTooLarge)
			case errors.Is(err, http.ErrMissingFile):
				h.HandleServiceError(c, apperrors.ErrMissingFile)
			default:
				h.HandleServiceError(c, apperrors.NewBadRequestError("Invalid multipart form: "+err.Error()))
			}
			return
		}

		resp, err := h.uploadService.Upload(c.Request.Context(), h.GetDB(c), userID, kind, header)
		if err != nil {
			h.HandleServiceError(c, err)
			return
		}
		respond(c, http.StatusCreated, resp)
	}
}

func (h *UploadHandler) ListUploads(c *gin.Context) {
	var query dto.UploadListQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	uploads, total, err := h.uploadService.List(h.GetDB(c), query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respondList(c, uploads, total)
}

func (h *UploadHandler) GetUpload(c *gin.Context) {
	upload, err := h.uploadService.GetByID(h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, upload)
}

func (h *UploadHandler) DeleteUpload(c *gin.Context) {
	if err := h.uploadService.Delete(c.Request.Context(), h.GetDB(c), c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respondDeleted(c)
}
