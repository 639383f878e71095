package models

type UserStatus string
type UserRole string
type SkillLevel string
type SkillCategory string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"

	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"

	SkillLevelBeginner     SkillLevel = "Beginner"
	SkillLevelIntermediate SkillLevel = "Intermediate"
	SkillLevelConfirmed    SkillLevel = "Confirmed"
	SkillLevelExpert       SkillLevel = "Expert"

	SkillCategoryFrontend SkillCategory = "frontend"
	SkillCategoryBackend  SkillCategory = "backend"
	SkillCategoryDatabase SkillCategory = "database"
	SkillCategoryDevOps   SkillCategory = "devops"
	SkillCategoryOther    SkillCategory = "other"
)

var (
	UserRoles       = []UserRole{UserRoleUser, UserRoleAdmin}
	UserStatuses    = []UserStatus{UserStatusPending, UserStatusActive, UserStatusSuspended, UserStatusBanned}
	SkillLevels     = []SkillLevel{SkillLevelBeginner, SkillLevelIntermediate, SkillLevelConfirmed, SkillLevelExpert}
	SkillCategories = []SkillCategory{SkillCategoryFrontend, SkillCategoryBackend, SkillCategoryDatabase, SkillCategoryDevOps, SkillCategoryOther}
)

func (r UserRole) IsValid() bool {
	for _, v := range UserRoles {
		if v == r {
			return true
		}
	}
	return false
}

func (s UserStatus) IsValid() bool {
	for _, v := range UserStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanAuthenticate - может ли пользователь с этим статусом пройти auth guard
func (s UserStatus) CanAuthenticate() bool {
	return s != UserStatusSuspended && s != UserStatusBanned
}

func (l SkillLevel) IsValid() bool {
	for _, v := range SkillLevels {
		if v == l {
			return true
		}
	}
	return false
}

func (c SkillCategory) IsValid() bool {
	for _, v := range SkillCategories {
		if v == c {
			return true
		}
	}
	return false
}
