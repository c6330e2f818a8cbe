package communication

import (
	"project-comms/internal/models"
)

// Snapshot is the read-only view handed to presentation clients. Its slices
// must not be modified.
type Snapshot struct {
	ProjectID             string                  `json:"project_id"`
	UserID                string                  `json:"user_id"`
	Messages              []models.Message        `json:"messages"`
	ChatGroups            []models.ChatGroup      `json:"chat_groups"`
	Notifications         []models.Notification   `json:"notifications"`
	ProgressReports       []models.ProgressReport `json:"progress_reports"`
	SafetyAlerts          []models.SafetyAlert    `json:"safety_alerts"`
	Loading               bool                    `json:"loading"`
	Error                 string                  `json:"error,omitempty"`
	Status                Status                  `json:"status"`
	RealtimeConnected     bool                    `json:"realtime_connected"`
	UnreadNotifications   int                     `json:"unread_notifications"`
	UrgentSafetyAlerts    []models.SafetyAlert    `json:"urgent_safety_alerts"`
	RecentProgressReports []models.ProgressReport `json:"recent_progress_reports"`
	Version               uint64                  `json:"version"`
}

func (m *Manager) snapshotLocked() Snapshot {
	s := m.st
	return Snapshot{
		ProjectID:             m.id.ProjectID,
		UserID:                m.id.UserID,
		Messages:              orEmpty(s.messages),
		ChatGroups:            groupsWithUnread(s.groups, s.messages, m.id.UserID),
		Notifications:         orEmpty(s.notifications),
		ProgressReports:       orEmpty(s.reports),
		SafetyAlerts:          orEmpty(s.alerts),
		Loading:               s.status == StatusLoading,
		Error:                 s.errMsg,
		Status:                s.status,
		RealtimeConnected:     s.realtimeConnected,
		UnreadNotifications:   unreadNotifications(s.notifications, m.id.UserID),
		UrgentSafetyAlerts:    urgentSafetyAlerts(s.alerts),
		RecentProgressReports: recentProgressReports(s.reports, m.opts.RecentReports),
		Version:               m.version,
	}
}

// unreadNotifications counts the unread notifications addressed to userID.
func unreadNotifications(items []models.Notification, userID string) int {
	n := 0
	for _, item := range items {
		if !item.IsRead && item.UserID == userID {
			n++
		}
	}
	return n
}

func urgentSafetyAlerts(alerts []models.SafetyAlert) []models.SafetyAlert {
	out := []models.SafetyAlert{}
	for _, a := range alerts {
		if a.Urgent() {
			out = append(out, a)
		}
	}
	return out
}

// recentProgressReports returns the first n reports; reports are kept newest first.
func recentProgressReports(reports []models.ProgressReport, n int) []models.ProgressReport {
	if len(reports) < n {
		n = len(reports)
	}
	return orEmpty(reports[:n:n])
}

// groupsWithUnread copies groups with UnreadCount set to the unread messages
// not sent by userID.
func groupsWithUnread(groups []models.ChatGroup, messages []models.Message, userID string) []models.ChatGroup {
	unread := make(map[string]int)
	for _, msg := range messages {
		if !msg.IsRead && msg.SenderID != userID {
			unread[msg.GroupID]++
		}
	}
	out := make([]models.ChatGroup, len(groups))
	for i, g := range groups {
		g.UnreadCount = unread[g.ID]
		out[i] = g
	}
	return out
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
