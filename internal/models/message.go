package models

import "time"

// MessageType is the payload kind of a chat message.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeVoice MessageType = "voice"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeVoice, MessageTypeImage, MessageTypeFile:
		return true
	}
	return false
}

// Location is a point with an optional human-readable address.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// MessageMetadata holds the optional attachments of a message.
type MessageMetadata struct {
	Location *Location `json:"location,omitempty"`
	FileURL  string    `json:"file_url,omitempty"`
	FileName string    `json:"file_name,omitempty"`
}

// Message represents a message posted in a project chat group.
type Message struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	GroupID     string          `json:"group_id"`
	SenderID    string          `json:"sender_id"`
	SenderName  string          `json:"sender_name"`
	SenderRole  UserRole        `json:"sender_role"`
	MessageType MessageType     `json:"message_type"`
	Content     string          `json:"content"`
	Metadata    MessageMetadata `json:"metadata"`
	IsRead      bool            `json:"is_read"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewMessage carries the fields of a message insert.
type NewMessage struct {
	ProjectID   string
	GroupID     string
	SenderID    string
	SenderName  string
	SenderRole  UserRole
	MessageType MessageType
	Content     string
	Metadata    MessageMetadata
}
