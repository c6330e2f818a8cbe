package communication

import (
	"log"

	"project-comms/internal/models"
	"project-comms/internal/repositories"
)

// ChangePublisher fans row changes out to the project's subscribers. It is set
// when no database trigger announces writes, as with the in-process broker.
type ChangePublisher interface {
	Publish(projectID string, ev models.RealtimeEvent) int
}

func (m *Manager) publishMessage(typ models.EventType, msg models.Message) {
	if m.deps.Changes == nil {
		return
	}
	raw, err := repositories.EncodeMessage(msg)
	m.publishChange(models.TableMessages, typ, raw, err)
}

func (m *Manager) publishNotification(typ models.EventType, n models.Notification) {
	if m.deps.Changes == nil {
		return
	}
	raw, err := repositories.EncodeNotification(n)
	m.publishChange(models.TableNotifications, typ, raw, err)
}

func (m *Manager) publishChange(table string, typ models.EventType, raw []byte, err error) {
	if err != nil {
		log.Printf("realtime change not published project_id=%s table=%s: %v", m.id.ProjectID, table, err)
		return
	}
	m.deps.Changes.Publish(m.id.ProjectID, models.RealtimeEvent{Type: typ, Table: table, New: raw})
}
