package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWithDetails_DoesNotMutatePredefined(t *testing.T) {
	withDetails := ErrFileTooLarge.WithDetails(map[string]string{"file": "too big"})

	assert.Nil(t, ErrFileTooLarge.Details)
	assert.NotNil(t, withDetails.Details)
	assert.True(t, errors.Is(withDetails, ErrFileTooLarge))
}

func TestWrappedAppErrorIsFound(t *testing.T) {
	err := fmt.Errorf("service: %w", ErrInvalidCredentials)

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, appErr.HTTPCode)
	assert.True(t, Is(err, ErrInvalidCredentials))
}

func TestHandleError_WritesEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", ValidationError(map[string]string{"name": "This field is required"}), http.StatusBadRequest, string(CodeValidationFailed)},
		{"unprocessable", UnprocessableError("bad", nil), http.StatusUnprocessableEntity, string(CodeUnprocessable)},
		{"unauthorized", NewUnauthorizedError("no token"), http.StatusUnauthorized, string(CodeUnauthorized)},
		{"forbidden", NewForbiddenError("admins only"), http.StatusForbidden, string(CodeForbidden)},
		{"not found", NewNotFoundError("skill", "Skill not found"), http.StatusNotFound, string(CodeNotFound)},
		{"rate limit", RateLimitError("slow down"), http.StatusTooManyRequests, string(CodeRateLimited)},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, string(CodeInternalError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestHandleError_ValidationListsFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	HandleError(c, ValidationError(map[string]string{"category": "Must be one of: frontend, backend"}))

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "category")
}

func TestHandleError_HidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleError(c, errors.New("pq: connection refused"))

	assert.NotContains(t, w.Body.String(), "connection refused")
}
