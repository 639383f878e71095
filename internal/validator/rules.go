package validator

import (
	"log"
	"net/url"
	"strings"

	"portfolio_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// UploadsPrefix - относительный путь, под которым раздаются загруженные файлы
const UploadsPrefix = models.UploadsRoute

// registerCustomRules регистрирует все кастомные функции валидации
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-user-status", validateUserStatus)
	mustRegister("is-skill-level", validateSkillLevel)
	mustRegister("is-skill-category", validateSkillCategory)
	mustRegister("is-upload-kind", validateUploadKind)
	mustRegister("is-asset-url", validateAssetURL)
	mustRegister("notblank", validateNotBlank)
}

// Пустые значения пропускаются: для них есть 'required'

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.UserRole(value).IsValid()
}

func validateUserStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.UserStatus(value).IsValid()
}

func validateSkillLevel(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.SkillLevel(value).IsValid()
}

func validateSkillCategory(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.SkillCategory(value).IsValid()
}

func validateUploadKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "image", "cv":
		return true
	default:
		return false
	}
}

// validateAssetURL: абсолютный http(s) URL или путь, возвращенный загрузчиком
func validateAssetURL(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	if strings.HasPrefix(value, UploadsPrefix) {
		return !strings.Contains(value, "..")
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
