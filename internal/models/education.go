package models

import "time"

type Education struct {
	BaseModel
	Degree      string     `gorm:"not null" json:"degree"`
	Institution string     `gorm:"not null" json:"institution"`
	StartDate   time.Time  `gorm:"not null;index" json:"startDate"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
}

func (e *Education) Period() (time.Time, *time.Time) {
	return e.StartDate, e.EndDate
}
