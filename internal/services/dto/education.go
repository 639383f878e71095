package dto

import (
	"strings"

	"portfolio_backend/internal/models"
)

type CreateEducationRequest struct {
	Degree      string  `json:"degree" validate:"required,notblank,max=150"`
	Institution string  `json:"institution" validate:"required,notblank,max=150"`
	StartDate   Date    `json:"startDate" validate:"required"`
	EndDate     *Date   `json:"endDate"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

func (r *CreateEducationRequest) ToModel() *models.Education {
	return &models.Education{
		Degree:      strings.TrimSpace(r.Degree),
		Institution: strings.TrimSpace(r.Institution),
		StartDate:   r.StartDate.Time,
		EndDate:     timePtr(r.EndDate),
		Description: optionalString(r.Description),
	}
}

type UpdateEducationRequest struct {
	Degree      *string `json:"degree" validate:"omitnil,notblank,max=150"`
	Institution *string `json:"institution" validate:"omitnil,notblank,max=150"`
	StartDate   *Date   `json:"startDate"`
	EndDate     *Date   `json:"endDate"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Version     *int    `json:"version" validate:"omitnil,min=1"`
}

func (r *UpdateEducationRequest) ApplyTo(e *models.Education) {
	if r.Degree != nil {
		e.Degree = strings.TrimSpace(*r.Degree)
	}
	if r.Institution != nil {
		e.Institution = strings.TrimSpace(*r.Institution)
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
}

func (r *UpdateEducationRequest) ExpectedVersion() *int {
	return r.Version
}
