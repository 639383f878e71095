package services

import (
	"testing"

	"portfolio_backend/internal/models"
	"portfolio_backend/pkg/apperrors"

	"github.com/stretchr/testify/require"
)

func requireStatus(t *testing.T, err error, status int) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	require.Equal(t, status, appErr.HTTPCode, appErr.Message)
	return appErr
}


type recordedEvent struct {
	name string
	old  *models.Project
	doc  *models.Project
}

type recordingEvents struct {
	events []recordedEvent
}

func (r *recordingEvents) ProjectCreated(p *models.Project) {
	r.events = append(r.events, recordedEvent{name: "created", doc: p})
}

func (r *recordingEvents) ProjectUpdated(old, p *models.Project) {
	r.events = append(r.events, recordedEvent{name: "updated", old: old, doc: p})
}

func (r *recordingEvents) ProjectDeleted(p *models.Project) {
	r.events = append(r.events, recordedEvent{name: "deleted", doc: p})
}

func ptr[T any](v T) *T {
	return &v
}
