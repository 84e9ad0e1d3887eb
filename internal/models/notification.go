package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types delivered to users.
const (
	NotificationTypeLogApproved          = "log_approved"
	NotificationTypeLogRevisionRequested = "log_revision_requested"
	NotificationTypeNewFeedback          = "new_feedback"
	NotificationTypeBadgeEarned          = "badge_earned"
	NotificationTypeLevelUp              = "level_up"
	NotificationTypeGeneral              = "general"
)

// Notification represents an in-app notification targeted to a specific user.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    string            `gorm:"size:64;index" json:"user_id"`
	Type      string            `gorm:"size:64" json:"type"`
	Title     string            `gorm:"size:255" json:"title"`
	Body      string            `gorm:"type:text" json:"body"`
	Data      datatypes.JSONMap `gorm:"type:json" json:"data"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
