package dto

import (
	"strings"

	"portfolio_backend/internal/models"
)

type CreateExperienceRequest struct {
	Title        string   `json:"title" validate:"required,notblank,max=150"`
	Company      string   `json:"company" validate:"required,notblank,max=150"`
	Location     *string  `json:"location" validate:"omitempty,max=150"`
	StartDate    Date     `json:"startDate" validate:"required"`
	EndDate      *Date    `json:"endDate"`
	Description  *string  `json:"description" validate:"omitempty,max=5000"`
	Technologies []string `json:"technologies" validate:"omitempty,max=50,dive,max=50"`
}

func (r *CreateExperienceRequest) ToModel() *models.Experience {
	return &models.Experience{
		Title:        strings.TrimSpace(r.Title),
		Company:      strings.TrimSpace(r.Company),
		Location:     optionalString(r.Location),
		StartDate:    r.StartDate.Time,
		EndDate:      timePtr(r.EndDate),
		Description:  optionalString(r.Description),
		Technologies: cleanTags(r.Technologies),
	}
}

// UpdateExperienceRequest: endDate = "" делает опыт текущим
type UpdateExperienceRequest struct {
	Title        *string   `json:"title" validate:"omitnil,notblank,max=150"`
	Company      *string   `json:"company" validate:"omitnil,notblank,max=150"`
	Location     *string   `json:"location" validate:"omitempty,max=150"`
	StartDate    *Date     `json:"startDate"`
	EndDate      *Date     `json:"endDate"`
	Description  *string   `json:"description" validate:"omitempty,max=5000"`
	Technologies *[]string `json:"technologies" validate:"omitnil,max=50,dive,max=50"`
	Version      *int      `json:"version" validate:"omitnil,min=1"`
}

func (r *UpdateExperienceRequest) ApplyTo(e *models.Experience) {
	if r.Title != nil {
		e.Title = strings.TrimSpace(*r.Title)
	}
	if r.Company != nil {
		e.Company = strings.TrimSpace(*r.Company)
	}
	if r.Location != nil {
		e.Location = optionalString(r.Location)
	}
	if r.StartDate != nil && !r.StartDate.IsZero() {
		e.StartDate = r.StartDate.Time
	}
	if r.EndDate != nil {
		e.EndDate = timePtr(r.EndDate)
	}
	if r.Description != nil {
		e.Description = optionalString(r.Description)
	}
	if r.Technologies != nil {
		e.Technologies = cleanTags(*r.Technologies)
	}
}

func (r *UpdateExperienceRequest) ExpectedVersion() *int {
	return r.Version
}
