package models

import (
	"time"

	"github.com/lib/pq"
)

// Experience - опыт работы. EndDate == nil означает "по настоящее время".
type Experience struct {
	BaseModel
	Title        string         `gorm:"not null" json:"title"`
	Company      string         `gorm:"not null" json:"company"`
	Location     *string        `json:"location,omitempty"`
	StartDate    time.Time      `gorm:"not null;index" json:"startDate"`
	EndDate      *time.Time     `json:"endDate,omitempty"`
	Description  *string        `gorm:"type:text" json:"description,omitempty"`
	Technologies pq.StringArray `gorm:"type:text[]" json:"technologies"`
}

func (e *Experience) IsOngoing() bool {
	return e.EndDate == nil
}

func (e *Experience) Period() (time.Time, *time.Time) {
	return e.StartDate, e.EndDate
}
