package models

import "time"

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationTypeMessage        NotificationType = "message"
	NotificationTypeProgressUpdate NotificationType = "progress_update"
	NotificationTypeSafetyAlert    NotificationType = "safety_alert"
	NotificationTypeSystem         NotificationType = "system"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeMessage, NotificationTypeProgressUpdate, NotificationTypeSafetyAlert, NotificationTypeSystem:
		return true
	}
	return false
}

// Notification is a per-user notice scoped to a project.
type Notification struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	ProjectID        string           `json:"project_id"`
	NotificationType NotificationType `json:"notification_type"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	Metadata         map[string]any   `json:"metadata"`
	IsRead           bool             `json:"is_read"`
	CreatedAt        time.Time        `json:"created_at"`
}

// NewNotification carries the fields of a notification insert.
type NewNotification struct {
	UserID           string
	ProjectID        string
	NotificationType NotificationType
	Title            string
	Content          string
	Metadata         map[string]any
}

// NotificationPatch lists the mutable notification fields. Nil fields are left untouched.
type NotificationPatch struct {
	IsRead *bool
}
