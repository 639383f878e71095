package ws

import (
	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/models"
)

// HubNotifier публикует изменения проектов в комнату projects
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) ProjectCreated(project *models.Project) {
	n.publish(EventProjectCreated, ProjectCreatedPayload{Project: project})
}

func (n *HubNotifier) ProjectUpdated(old, updated *models.Project) {
	n.publish(EventProjectUpdated, ProjectUpdatedPayload{Old: old, New: updated})
}

func (n *HubNotifier) ProjectDeleted(project *models.Project) {
	n.publish(EventProjectDeleted, ProjectDeletedPayload{ID: project.ID, Project: project})
}

func (n *HubNotifier) publish(event EventName, payload any) {
	frame, err := NewFrame(event, RoomProjects, payload)
	if err != nil {
		logger.Error("relay notifier marshal failed", "event", event, "error", err)
		return
	}
	n.hub.BroadcastToRoom(RoomProjects, frame)
}
