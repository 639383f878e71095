package models

import "github.com/lib/pq"

type Project struct {
	BaseModel
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `gorm:"type:text;not null" json:"description"`
	ImageURL     string         `gorm:"not null" json:"imageUrl"`
	Technologies pq.StringArray `gorm:"type:text[]" json:"technologies"`
	GithubURL    *string        `json:"githubUrl,omitempty"`
	DemoURL      *string        `json:"demoUrl,omitempty"`
	Featured     bool           `gorm:"not null;index" json:"featured"`
}
