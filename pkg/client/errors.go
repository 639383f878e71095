package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind классифицирует ошибку SDK
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindRateLimit      ErrorKind = "rate_limit"
	KindServer         ErrorKind = "server"
	KindNetwork        ErrorKind = "network"
	KindTimeout        ErrorKind = "timeout"
)

// Error - ошибка запроса к API.
// errors.Is сравнивает по Kind, поэтому работает с ErrNotFound и т.п.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels для errors.Is
var (
	ErrValidation     = &Error{Kind: KindValidation, Message: "invalid request"}
	ErrAuthentication = &Error{Kind: KindAuthentication, Message: "not authenticated"}
	ErrAuthorization  = &Error{Kind: KindAuthorization, Message: "not allowed"}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict       = &Error{Kind: KindConflict, Message: "conflict"}
	ErrRateLimit      = &Error{Kind: KindRateLimit, Message: "too many requests"}
	ErrServer         = &Error{Kind: KindServer, Message: "server error"}
	ErrNetwork        = &Error{Kind: KindNetwork, Message: "network error"}
	ErrTimeout        = &Error{Kind: KindTimeout, Message: "request timed out"}
)

// KindOf возвращает Kind ошибки или "" для чужих ошибок
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

// parseErrorResponse разбирает {success:false, message, code, errors}
func parseErrorResponse(status int, body []byte) *Error {
	apiErr := &Error{Kind: kindForStatus(status), StatusCode: status}

	var payload struct {
		Message string            `json:"message"`
		Code    string            `json:"code"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
		apiErr.Code = payload.Code
		apiErr.Fields = payload.Errors
		return apiErr
	}

	apiErr.Message = http.StatusText(status)
	return apiErr
}

// retryable - только идемпотентные чтения и только для временных сбоев
func retryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindTimeout, KindServer:
		return true
	default:
		return false
	}
}
