package dto

import (
	"time"

	"github.com/noah-isme/gema-intern-api/internal/models"
)

// NotificationCreateRequest describes the payload to create a notification.
type NotificationCreateRequest struct {
	UserID string                 `json:"user_id" validate:"required,max=64"`
	Title  string                 `json:"title" validate:"required,min=1,max=255"`
	Body   string                 `json:"body" validate:"required,min=1,max=2000"`
	Type   string                 `json:"type" validate:"required,oneof=log_approved log_revision_requested new_feedback badge_earned level_up general"`
	Data   map[string]interface{} `json:"data"`
}

// NotificationInboxRequest pages through the caller's notifications.
type NotificationInboxRequest struct {
	Limit      int  `query:"limit" validate:"gte=0,lte=100"`
	Offset     int  `query:"offset" validate:"gte=0"`
	UnreadOnly bool `query:"unread"`
}

// NotificationInboxResponse is one inbox page plus the unread total.
type NotificationInboxResponse struct {
	Items  []NotificationResponse `json:"items"`
	Unread int64                  `json:"unread"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint                   `json:"id"`
	UserID    string                 `json:"user_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Title:     model.Title,
		Body:      model.Body,
		Data:      metadataFromJSON(model.Data),
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
