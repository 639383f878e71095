package dto

import (
	"strings"
	"time"

	"portfolio_backend/internal/models"
)

type SocialLinks struct {
	Github   *string `json:"github,omitempty" validate:"omitempty,url"`
	Linkedin *string `json:"linkedin,omitempty" validate:"omitempty,url"`
	Twitter  *string `json:"twitter,omitempty" validate:"omitempty,url"`
}

// UserResponse - публичное представление пользователя, без хеша пароля и токенов
type UserResponse struct {
	ID           string      `json:"id"`
	FirstName    string      `json:"firstName"`
	LastName     string      `json:"lastName"`
	Email        string      `json:"email"`
	Role         string      `json:"role"`
	Status       string      `json:"status"`
	IsVerified   bool        `json:"isVerified"`
	ProfileImage *string     `json:"profileImage,omitempty"`
	CVURL        *string     `json:"cvUrl,omitempty"`
	Social       SocialLinks `json:"social"`
	LastLoginAt  *time.Time  `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Version      int         `json:"version"`
}

func NewUserResponse(u *models.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Role:         string(u.Role),
		Status:       string(u.Status),
		IsVerified:   u.IsVerified,
		ProfileImage: u.ProfileImage,
		CVURL:        u.CVURL,
		Social: SocialLinks{
			Github:   u.Social.Github,
			Linkedin: u.Social.Linkedin,
			Twitter:  u.Social.Twitter,
		},
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		Version:     u.Version,
	}
}

func NewUserResponses(users []models.User) []*UserResponse {
	result := make([]*UserResponse, 0, len(users))
	for i := range users {
		result = append(result, NewUserResponse(&users[i]))
	}
	return result
}

// CreateUserRequest - создание пользователя администратором
type CreateUserRequest struct {
	FirstName string `json:"firstName" validate:"required,notblank,max=100"`
	LastName  string `json:"lastName" validate:"required,notblank,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Role      string `json:"role" validate:"omitempty,is-user-role"`
	Status    string `json:"status" validate:"omitempty,is-user-status"`
}

// UpdateUserRequest - частичное обновление пользователя администратором
type UpdateUserRequest struct {
	FirstName    *string      `json:"firstName" validate:"omitnil,notblank,max=100"`
	LastName     *string      `json:"lastName" validate:"omitnil,notblank,max=100"`
	Email        *string      `json:"email" validate:"omitnil,email,max=255"`
	Role         *string      `json:"role" validate:"omitnil,notblank,is-user-role"`
	Status       *string      `json:"status" validate:"omitnil,notblank,is-user-status"`
	IsVerified   *bool        `json:"isVerified"`
	ProfileImage *string      `json:"profileImage" validate:"omitempty,is-asset-url"`
	Social       *SocialLinks `json:"social"`
}

// UpdateProfileRequest - пользователь меняет свой профиль
type UpdateProfileRequest struct {
	FirstName    *string      `json:"firstName" validate:"omitnil,notblank,max=100"`
	LastName     *string      `json:"lastName" validate:"omitnil,notblank,max=100"`
	ProfileImage *string      `json:"profileImage" validate:"omitempty,is-asset-url"`
	Social       *SocialLinks `json:"social"`
}

func (r *UpdateProfileRequest) ApplyTo(u *models.User) {
	if r.FirstName != nil {
		u.FirstName = strings.TrimSpace(*r.FirstName)
	}
	if r.LastName != nil {
		u.LastName = strings.TrimSpace(*r.LastName)
	}
	if r.ProfileImage != nil {
		u.ProfileImage = optionalString(r.ProfileImage)
	}
	if r.Social != nil {
		applySocial(&u.Social, r.Social)
	}
}

func (r *UpdateUserRequest) ApplyTo(u *models.User) {
	profile := UpdateProfileRequest{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		ProfileImage: r.ProfileImage,
		Social:       r.Social,
	}
	profile.ApplyTo(u)

	if r.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	if r.Role != nil {
		u.Role = models.UserRole(*r.Role)
	}
	if r.Status != nil {
		u.Status = models.UserStatus(*r.Status)
	}
	if r.IsVerified != nil {
		u.IsVerified = *r.IsVerified
	}
}

func applySocial(dst *models.SocialLinks, src *SocialLinks) {
	if src.Github != nil {
		dst.Github = optionalString(src.Github)
	}
	if src.Linkedin != nil {
		dst.Linkedin = optionalString(src.Linkedin)
	}
	if src.Twitter != nil {
		dst.Twitter = optionalString(src.Twitter)
	}
}

// UpdateCVRequest - ссылка на загруженный CV ("" удаляет)
type UpdateCVRequest struct {
	CVURL *string `json:"cvUrl" validate:"required,is-asset-url"`
}

type UserListQuery struct {
	Role   string `form:"role" validate:"omitempty,is-user-role"`
	Status string `form:"status" validate:"omitempty,is-user-status"`
	Search string `form:"search" validate:"omitempty,max=100"`
	Limit  int    `form:"limit" validate:"omitempty,min=0,max=100"`
	Offset int    `form:"offset" validate:"omitempty,min=0"`
}
