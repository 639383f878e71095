package apperrors

import (
	"fmt"
	"net/http"
)

// ErrNotFound оборачивает ошибку репозитория в 404
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists - 409
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrVersionConflict - документ изменен другим запросом
func ErrVersionConflict(err error, domain string) *AppError {
	return Wrap(err, CodeVersionConflict, domain, "The document was modified by another request", http.StatusConflict)
}

// ErrInvalidOperation - 400
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrEntityNotFound - 404 с именем сущности в тексте
func ErrEntityNotFound(entity string, err error) *AppError {
	return Wrap(err, CodeNotFound, entity, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// --- Auth ---

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

// ErrInvalidLinkToken - ссылка из письма (подтверждение, сброс) недействительна
var ErrInvalidLinkToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired link",
	http.StatusBadRequest,
)

var ErrUserSuspended = New(
	CodeUnauthorized,
	"auth",
	"Your account has been suspended",
	http.StatusUnauthorized,
)

var ErrUserBanned = New(
	CodeUnauthorized,
	"auth",
	"Your account has been banned",
	http.StatusUnauthorized,
)

var ErrUserNotVerified = New(
	CodeForbidden,
	"auth",
	"Please verify your email address",
	http.StatusForbidden,
)

var ErrAccountLocked = New(
	CodeAccountLocked,
	"auth",
	"Too many failed login attempts, try again later",
	http.StatusTooManyRequests,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password is too weak. Minimum 8 characters required.",
	http.StatusBadRequest,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// ErrCannotModifySelf - админ не может удалить или понизить себя
var ErrCannotModifySelf = New(
	CodeForbidden,
	"users",
	"Operation on self is not allowed",
	http.StatusForbidden,
)

// --- Uploads ---

var ErrFileTooLarge = New(
	CodeValidationFailed,
	"upload",
	"File size exceeds the allowed limit",
	http.StatusBadRequest,
)

var ErrInvalidFileType = New(
	CodeValidationFailed,
	"upload",
	"The provided file type is not allowed",
	http.StatusBadRequest,
)

var ErrMissingFile = New(
	CodeValidationFailed,
	"upload",
	"No file provided",
	http.StatusBadRequest,
)

// ErrUploadNotOwned - ссылка не указывает на собственный загруженный файл нужного типа
var ErrUploadNotOwned = New(
	CodeForbidden,
	"upload",
	"The file must be one of your own uploads of the matching kind",
	http.StatusForbidden,
)
