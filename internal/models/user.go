package models

import "time"

type SocialLinks struct {
	Github   *string `json:"github,omitempty"`
	Linkedin *string `json:"linkedin,omitempty"`
	Twitter  *string `json:"twitter,omitempty"`
}

type User struct {
	BaseModel
	FirstName    string      `gorm:"not null"`
	LastName     string      `gorm:"not null"`
	Email        string      `gorm:"uniqueIndex;not null"`
	PasswordHash string      `gorm:"not null"`
	Role         UserRole    `gorm:"type:varchar(20);not null;default:'user'"`
	Status       UserStatus  `gorm:"type:varchar(20);not null;default:'pending'"`
	IsVerified   bool        `gorm:"not null;default:false"`
	ProfileImage *string
	CVURL        *string     `gorm:"column:cv_url"`
	Social       SocialLinks `gorm:"embedded;embeddedPrefix:social_"`

	LoginAttempts int `gorm:"not null;default:0"`
	LockUntil     *time.Time
	LastLoginAt   *time.Time

	// Токены из писем хранятся в виде sha256
	VerificationToken    *string `gorm:"index"`
	VerificationTokenExp *time.Time
	ResetToken           *string `gorm:"index"`
	ResetTokenExp        *time.Time

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsLocked - вход временно заблокирован после серии неудачных попыток
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"type:uuid;not null;index"`
	Token     string    `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
}
