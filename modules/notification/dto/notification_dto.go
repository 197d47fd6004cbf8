package dto

import (
	"time"

	"github.com/google/uuid"
)

// Notification types emitted by the sync engine.
const (
	TypeSyncFailed              = "sync_failed"
	TypeReconnectRequired       = "reconnect_required"
	TypeIntegrationDisconnected = "integration_disconnected"
)

type NotificationResponse struct {
	ID        uuid.UUID              `json:"id"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
}

type MarkAsReadRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

type CreateNotificationRequest struct {
	UserID  uuid.UUID              `json:"user_id"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Type    string                 `json:"type"`
	Data    map[string]interface{} `json:"data"`
}
