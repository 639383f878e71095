package handlers

import (
	"net/http"
	"strconv"

	"portfolio_backend/internal/middleware"
	"portfolio_backend/internal/models"
	"portfolio_backend/internal/services"
	"portfolio_backend/internal/services/dto"
	"portfolio_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type filterKind int

const (
	filterString filterKind = iota
	filterBool
)

// listFilter - query параметр, по которому можно фильтровать список
type listFilter struct {
	column string
	kind   filterKind
}

// ContentHandler - CRUD одной сущности портфолио.
// Чтение публичное, запись только для администратора.
type ContentHandler[T any] struct {
	*BaseHandler
	service   services.ContentService[T]
	path      string
	newCreate func() dto.CreatePayload[T]
	newUpdate func() dto.UpdatePayload[T]
	filters   map[string]listFilter
}

func NewSkillHandler(base *BaseHandler, service services.ContentService[models.Skill]) *ContentHandler[models.Skill] {
	return &ContentHandler[models.Skill]{
		BaseHandler: base,
		service:     service,
		path:        "/skills",
		newCreate:   func() dto.CreatePayload[models.Skill] { return &dto.CreateSkillRequest{} },
		newUpdate:   func() dto.UpdatePayload[models.Skill] { return &dto.UpdateSkillRequest{} },
		filters: map[string]listFilter{
			"category": {column: "category"},
			"level":    {column: "level"},
		},
	}
}

func NewExperienceHandler(base *BaseHandler, service services.ContentService[models.Experience]) *ContentHandler[models.Experience] {
	return &ContentHandler[models.Experience]{
		BaseHandler: base,
		service:     service,
		path:        "/experiences",
		newCreate:   func() dto.CreatePayload[models.Experience] { return &dto.CreateExperienceRequest{} },
		newUpdate:   func() dto.UpdatePayload[models.Experience] { return &dto.UpdateExperienceRequest{} },
		filters:     map[string]listFilter{"company": {column: "company"}},
	}
}

func NewEducationHandler(base *BaseHandler, service services.ContentService[models.Education]) *ContentHandler[models.Education] {
	return &ContentHandler[models.Education]{
		BaseHandler: base,
		service:     service,
		path:        "/educations",
		newCreate:   func() dto.CreatePayload[models.Education] { return &dto.CreateEducationRequest{} },
		newUpdate:   func() dto.UpdatePayload[models.Education] { return &dto.UpdateEducationRequest{} },
		filters:     map[string]listFilter{"institution": {column: "institution"}},
	}
}

func NewCertificationHandler(base *BaseHandler, service services.ContentService[models.Certification]) *ContentHandler[models.Certification] {
	return &ContentHandler[models.Certification]{
		BaseHandler: base,
		service:     service,
		path:        "/certifications",
		newCreate:   func() dto.CreatePayload[models.Certification] { return &dto.CreateCertificationRequest{} },
		newUpdate:   func() dto.UpdatePayload[models.Certification] { return &dto.UpdateCertificationRequest{} },
		filters:     map[string]listFilter{"issuer": {column: "issuer"}},
	}
}

func NewProjectHandler(base *BaseHandler, service services.ContentService[models.Project]) *ContentHandler[models.Project] {
	return &ContentHandler[models.Project]{
		BaseHandler: base,
		service:     service,
		path:        "/projects",
		newCreate:   func() dto.CreatePayload[models.Project] { return &dto.CreateProjectRequest{} },
		newUpdate:   func() dto.UpdatePayload[models.Project] { return &dto.UpdateProjectRequest{} },
		filters:     map[string]listFilter{"featured": {column: "featured", kind: filterBool}},
	}
}

// RegisterRoutes: GET публичные, POST/PUT/DELETE за auth guard + admin
func (h *ContentHandler[T]) RegisterRoutes(rg *gin.RouterGroup, authn *middleware.Authenticator) {
	group := rg.Group(h.path)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
	}

	admin := rg.Group(h.path)
	admin.Use(authn.AuthMiddleware(), middleware.AdminOnly())
	{
		admin.POST("", h.Create)
		admin.PUT("/:id", h.Update)
		admin.DELETE("/:id", h.Delete)
	}
}

func (h *ContentHandler[T]) List(c *gin.Context) {
	query, err := h.listQuery(c)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	items, total, err := h.service.List(h.GetDB(c), query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respondList(c, items, total)
}

func (h *ContentHandler[T]) Get(c *gin.Context) {
	item, err := h.service.GetByID(h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (h *ContentHandler[T]) Create(c *gin.Context) {
	req := h.newCreate()
	if !h.BindAndValidate_JSON(c, req) {
		return
	}

	item, err := h.service.Create(h.GetDB(c), req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respond(c, http.StatusCreated, item)
}

func (h *ContentHandler[T]) Update(c *gin.Context) {
	req := h.newUpdate()
	if !h.BindAndValidate_JSON(c, req) {
		return
	}

	item, err := h.service.Update(h.GetDB(c), c.Param("id"), req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (h *ContentHandler[T]) Delete(c *gin.Context) {
	if err := h.service.Delete(h.GetDB(c), c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respondDeleted(c)
}

func (h *ContentHandler[T]) listQuery(c *gin.Context) (dto.ListQuery, error) {
	limit, offset, err := ParseLimitOffset(c)
	if err != nil {
		return dto.ListQuery{}, err
	}

	query := dto.ListQuery{Limit: limit, Offset: offset}
	for param, f := range h.filters {
		raw, ok := c.GetQuery(param)
		if !ok || raw == "" {
			continue
		}
		if query.Filters == nil {
			query.Filters = make(map[string]interface{}, len(h.filters))
		}

		switch f.kind {
		case filterBool:
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return dto.ListQuery{}, apperrors.ValidationError(map[string]string{param: "Must be true or false"})
			}
			query.Filters[f.column] = v
		default:
			query.Filters[f.column] = raw
		}
	}
	return query, nil
}
