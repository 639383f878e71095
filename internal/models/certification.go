package models

import "time"

type Certification struct {
	BaseModel
	Title         string    `gorm:"not null" json:"title"`
	Issuer        string    `gorm:"not null" json:"issuer"`
	Date          time.Time `gorm:"not null;index" json:"date"`
	CredentialURL string    `gorm:"not null" json:"credentialUrl"`
	ImageURL      *string   `json:"imageUrl,omitempty"`
}
