package dto

import (
	"strings"

	"portfolio_backend/internal/models"
)

type CreateCertificationRequest struct {
	Title         string  `json:"title" validate:"required,notblank,max=150"`
	Issuer        string  `json:"issuer" validate:"required,notblank,max=150"`
	Date          Date    `json:"date" validate:"required"`
	CredentialURL string  `json:"credentialUrl" validate:"required,url"`
	ImageURL      *string `json:"imageUrl" validate:"omitempty,is-asset-url"`
}

func (r *CreateCertificationRequest) ToModel() *models.Certification {
	return &models.Certification{
		Title:         strings.TrimSpace(r.Title),
		Issuer:        strings.TrimSpace(r.Issuer),
		Date:          r.Date.Time,
		CredentialURL: strings.TrimSpace(r.CredentialURL),
		ImageURL:      optionalString(r.ImageURL),
	}
}

type UpdateCertificationRequest struct {
	Title         *string `json:"title" validate:"omitnil,notblank,max=150"`
	Issuer        *string `json:"issuer" validate:"omitnil,notblank,max=150"`
	Date          *Date   `json:"date"`
	CredentialURL *string `json:"credentialUrl" validate:"omitnil,url"`
	ImageURL      *string `json:"imageUrl" validate:"omitempty,is-asset-url"`
	Version       *int    `json:"version" validate:"omitnil,min=1"`
}

func (r *UpdateCertificationRequest) ApplyTo(c *models.Certification) {
	if r.Title != nil {
		c.Title = strings.TrimSpace(*r.Title)
	}
	if r.Issuer != nil {
		c.Issuer = strings.TrimSpace(*r.Issuer)
	}
	if r.Date != nil && !r.Date.IsZero() {
		c.Date = r.Date.Time
	}
	if r.CredentialURL != nil {
		c.CredentialURL = strings.TrimSpace(*r.CredentialURL)
	}
	if r.ImageURL != nil {
		c.ImageURL = optionalString(r.ImageURL)
	}
}

func (r *UpdateCertificationRequest) ExpectedVersion() *int {
	return r.Version
}
