package models

import "encoding/json"

// EventType is the kind of row change carried by a realtime event.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Tables that emit realtime events.
const (
	TableMessages      = "messages"
	TableNotifications = "notifications"
)

// RealtimeEvent is the change envelope published on a project channel.
type RealtimeEvent struct {
	Type  EventType       `json:"eventType"`
	Table string          `json:"table"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}
