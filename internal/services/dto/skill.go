package dto

import (
	"strings"

	"portfolio_backend/internal/models"
)

type CreateSkillRequest struct {
	Name     string  `json:"name" validate:"required,notblank,max=100"`
	Level    *string `json:"level" validate:"omitempty,is-skill-level"`
	Category string  `json:"category" validate:"required,is-skill-category"`
}

func (r *CreateSkillRequest) ToModel() *models.Skill {
	skill := &models.Skill{
		Name:     strings.TrimSpace(r.Name),
		Category: models.SkillCategory(r.Category),
	}
	if level := optionalString(r.Level); level != nil {
		l := models.SkillLevel(*level)
		skill.Level = &l
	}
	return skill
}

type UpdateSkillRequest struct {
	Name     *string `json:"name" validate:"omitnil,notblank,max=100"`
	Level    *string `json:"level" validate:"omitempty,is-skill-level"`
	Category *string `json:"category" validate:"omitnil,is-skill-category,notblank"`
	Version  *int    `json:"version" validate:"omitnil,min=1"`
}

func (r *UpdateSkillRequest) ApplyTo(s *models.Skill) {
	if r.Name != nil {
		s.Name = strings.TrimSpace(*r.Name)
	}
	if r.Level != nil {
		if level := optionalString(r.Level); level != nil {
			l := models.SkillLevel(*level)
			s.Level = &l
		} else {
			s.Level = nil
		}
	}
	if r.Category != nil {
		s.Category = models.SkillCategory(*r.Category)
	}
}

func (r *UpdateSkillRequest) ExpectedVersion() *int {
	return r.Version
}
