package models

import "time"

// GroupType classifies a project chat group.
type GroupType string

const (
	GroupTypeProject   GroupType = "project"
	GroupTypeTeam      GroupType = "team"
	GroupTypeSafety    GroupType = "safety"
	GroupTypeQuality   GroupType = "quality"
	GroupTypeLogistics GroupType = "logistics"
	GroupTypeAdmin     GroupType = "admin"
)

// Valid reports whether t is a known group type.
func (t GroupType) Valid() bool {
	switch t {
	case GroupTypeProject, GroupTypeTeam, GroupTypeSafety, GroupTypeQuality, GroupTypeLogistics, GroupTypeAdmin:
		return true
	}
	return false
}

// DefaultGroupName is the name of the group every project is bootstrapped with.
const DefaultGroupName = "general"

// GroupMember is one entry of a chat group's member list.
type GroupMember struct {
	UserID   string    `json:"user_id"`
	Role     UserRole  `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	IsAdmin  bool      `json:"is_admin"`
}

// ChatGroup represents a project chat group.
type ChatGroup struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"project_id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	GroupType   GroupType     `json:"group_type"`
	Members     []GroupMember `json:"members"`
	IsDefault   bool          `json:"is_default"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	UnreadCount int           `json:"unread_count"`
}

// HasMember reports whether userID is listed in the group.
func (g ChatGroup) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// NewChatGroup carries the caller-supplied fields of a group insert.
type NewChatGroup struct {
	ProjectID   string
	Name        string
	Description *string
	GroupType   GroupType
	Members     []GroupMember
	CreatedBy   string
}
