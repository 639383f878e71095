package models

type Skill struct {
	BaseModel
	Name     string        `gorm:"not null" json:"name"`
	Level    *SkillLevel   `gorm:"type:varchar(20)" json:"level,omitempty"`
	Category SkillCategory `gorm:"type:varchar(20);not null;index" json:"category"`
}
