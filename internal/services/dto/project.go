package dto

import (
	"strings"

	"portfolio_backend/internal/models"
)

type CreateProjectRequest struct {
	Title        string   `json:"title" validate:"required,notblank,max=150"`
	Description  string   `json:"description" validate:"required,notblank,max=5000"`
	ImageURL     string   `json:"imageUrl" validate:"required,is-asset-url"`
	Technologies []string `json:"technologies" validate:"omitempty,max=50,dive,max=50"`
	GithubURL    *string  `json:"githubUrl" validate:"omitempty,url"`
	DemoURL      *string  `json:"demoUrl" validate:"omitempty,url"`
	Featured     bool     `json:"featured"`
}

func (r *CreateProjectRequest) ToModel() *models.Project {
	return &models.Project{
		Title:        strings.TrimSpace(r.Title),
		Description:  strings.TrimSpace(r.Description),
		ImageURL:     strings.TrimSpace(r.ImageURL),
		Technologies: cleanTags(r.Technologies),
		GithubURL:    optionalString(r.GithubURL),
		DemoURL:      optionalString(r.DemoURL),
		Featured:     r.Featured,
	}
}

type UpdateProjectRequest struct {
	Title        *string   `json:"title" validate:"omitnil,notblank,max=150"`
	Description  *string   `json:"description" validate:"omitnil,notblank,max=5000"`
	ImageURL     *string   `json:"imageUrl" validate:"omitnil,notblank,is-asset-url"`
	Technologies *[]string `json:"technologies" validate:"omitnil,max=50,dive,max=50"`
	GithubURL    *string   `json:"githubUrl" validate:"omitempty,url"`
	DemoURL      *string   `json:"demoUrl" validate:"omitempty,url"`
	Featured     *bool     `json:"featured"`
	Version      *int      `json:"version" validate:"omitnil,min=1"`
}

func (r *UpdateProjectRequest) ApplyTo(p *models.Project) {
	if r.Title != nil {
		p.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		p.Description = strings.TrimSpace(*r.Description)
	}
	if r.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*r.ImageURL)
	}
	if r.Technologies != nil {
		p.Technologies = cleanTags(*r.Technologies)
	}
	if r.GithubURL != nil {
		p.GithubURL = optionalString(r.GithubURL)
	}
	if r.DemoURL != nil {
		p.DemoURL = optionalString(r.DemoURL)
	}
	if r.Featured != nil {
		p.Featured = *r.Featured
	}
}

func (r *UpdateProjectRequest) ExpectedVersion() *int {
	return r.Version
}
