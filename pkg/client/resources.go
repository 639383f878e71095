package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"portfolio_backend/internal/models"
	"portfolio_backend/internal/services/dto"
)

type (
	Skill               = models.Skill
	CreateSkill         = dto.CreateSkillRequest
	UpdateSkill         = dto.UpdateSkillRequest
	Experience          = models.Experience
	CreateExperience    = dto.CreateExperienceRequest
	UpdateExperience    = dto.UpdateExperienceRequest
	Education           = models.Education
	CreateEducation     = dto.CreateEducationRequest
	UpdateEducation     = dto.UpdateEducationRequest
	Certification       = models.Certification
	CreateCertification = dto.CreateCertificationRequest
	UpdateCertification = dto.UpdateCertificationRequest
	Project             = models.Project
	CreateProject       = dto.CreateProjectRequest
	UpdateProject       = dto.UpdateProjectRequest
	CreateUser          = dto.CreateUserRequest
	UpdateUser          = dto.UpdateUserRequest
)

// Ключи кэша по сущностям
const (
	EntitySkills         = "skills"
	EntityExperiences    = "experiences"
	EntityEducations     = "educations"
	EntityCertifications = "certifications"
	EntityProjects       = "projects"
	EntityUsers          = "users"
	EntityUploads        = "uploads"
)

// ListOptions - фильтры и пагинация списка. Пустые поля не передаются.
type ListOptions struct {
	Filters map[string]string
	Limit   int
	Offset  int
}

func (o *ListOptions) values() url.Values {
	if o == nil {
		return nil
	}
	q := url.Values{}
	for k, v := range o.Filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}

// Resource - типизированный CRUD одной сущности.
// Возвращаемые значения разделяются с кэшем, их нельзя изменять.
type Resource[T any, C any, U any] struct {
	client *Client
	entity string
}

func newResource[T any, C any, U any](c *Client, entity string) *Resource[T, C, U] {
	return &Resource[T, C, U]{client: c, entity: entity}
}

func (r *Resource[T, C, U]) path(id string) string {
	if id == "" {
		return "/" + r.entity
	}
	return "/" + r.entity + "/" + url.PathEscape(id)
}

func (r *Resource[T, C, U]) List(ctx context.Context, opts *ListOptions) ([]T, error) {
	req := &request{method: http.MethodGet, path: r.path(""), query: opts.values()}
	key := r.entity
	if len(req.query) > 0 {
		key += "?" + req.query.Encode()
	}
	return read[[]T](ctx, r.client, key, req)
}

func (r *Resource[T, C, U]) Get(ctx context.Context, id string) (*T, error) {
	req := &request{method: http.MethodGet, path: r.path(id)}
	return read[*T](ctx, r.client, r.entity+"/"+id, req)
}

func (r *Resource[T, C, U]) Create(ctx context.Context, payload *C) (*T, error) {
	req, err := jsonRequest(http.MethodPost, r.path(""), payload)
	if err != nil {
		return nil, err
	}
	return write[*T](ctx, r.client, r.entity, req)
}

// Update передает только заполненные поля payload
func (r *Resource[T, C, U]) Update(ctx context.Context, id string, payload *U) (*T, error) {
	req, err := jsonRequest(http.MethodPut, r.path(id), payload)
	if err != nil {
		return nil, err
	}
	return write[*T](ctx, r.client, r.entity, req)
}

func (r *Resource[T, C, U]) Delete(ctx context.Context, id string) error {
	req := &request{method: http.MethodDelete, path: r.path(id)}
	_, err := write[struct{}](ctx, r.client, r.entity, req)
	return err
}

func (c *Client) Skills() *Resource[Skill, CreateSkill, UpdateSkill] {
	return newResource[Skill, CreateSkill, UpdateSkill](c, EntitySkills)
}

func (c *Client) Experiences() *Resource[Experience, CreateExperience, UpdateExperience] {
	return newResource[Experience, CreateExperience, UpdateExperience](c, EntityExperiences)
}

func (c *Client) Educations() *Resource[Education, CreateEducation, UpdateEducation] {
	return newResource[Education, CreateEducation, UpdateEducation](c, EntityEducations)
}

func (c *Client) Certifications() *Resource[Certification, CreateCertification, UpdateCertification] {
	return newResource[Certification, CreateCertification, UpdateCertification](c, EntityCertifications)
}

func (c *Client) Projects() *Resource[Project, CreateProject, UpdateProject] {
	return newResource[Project, CreateProject, UpdateProject](c, EntityProjects)
}

// Users - только для админов
func (c *Client) Users() *Resource[User, CreateUser, UpdateUser] {
	return newResource[User, CreateUser, UpdateUser](c, EntityUsers)
}
