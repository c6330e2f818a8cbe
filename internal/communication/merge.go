package communication

import (
	"log"

	"project-comms/internal/models"
	"project-comms/internal/observability"
	"project-comms/internal/realtime"
	"project-comms/internal/repositories"
)

func (m *Manager) listen(sub *realtime.Subscription) {
	defer m.wg.Done()
	defer sub.Close()
	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-sub.Events():
			m.applyEvent(ev)
		case st := <-sub.Status():
			m.handleStatus(st)
		}
	}
}

// reloadLoop runs one full load per queued reload request.
func (m *Manager) reloadLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reload:
			_ = m.Load(m.ctx)
		}
	}
}

func (m *Manager) requestReload() {
	select {
	case m.reload <- struct{}{}:
	default:
	}
}

func (m *Manager) handleStatus(st realtime.Status) {
	log.Printf("realtime status project_id=%s user_id=%s status=%s", m.id.ProjectID, m.id.UserID, st)
	switch st {
	case realtime.StatusConnected:
		m.setRealtimeConnected(true)
	case realtime.StatusDisconnected:
		m.setRealtimeConnected(false)
	case realtime.StatusReconnected:
		m.setRealtimeConnected(true)
		m.requestReload()
	case realtime.StatusResync:
		m.requestReload()
	}
}

func (m *Manager) setRealtimeConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.st.realtimeConnected == connected {
		return
	}
	m.st.realtimeConnected = connected
	m.publishLocked()
}

// applyEvent merges one change event into the cache.
func (m *Manager) applyEvent(ev models.RealtimeEvent) {
	var err error
	applied := false
	switch ev.Table {
	case models.TableMessages:
		applied, err = m.applyMessageEvent(ev)
	case models.TableNotifications:
		applied, err = m.applyNotificationEvent(ev)
	}
	outcome := "ignored"
	switch {
	case err != nil:
		outcome = "malformed"
		log.Printf("realtime event dropped project_id=%s table=%s event_type=%s: %v", m.id.ProjectID, ev.Table, ev.Type, err)
	case applied:
		outcome = "applied"
	}
	observability.IncRealtimeEvent(ev.Table, string(ev.Type), outcome)
}

func (m *Manager) applyMessageEvent(ev models.RealtimeEvent) (bool, error) {
	switch ev.Type {
	case models.EventInsert, models.EventUpdate:
		msg, err := repositories.DecodeMessage(ev.New)
		if err != nil {
			return false, err
		}
		if msg.ProjectID != m.id.ProjectID {
			return false, nil
		}
		if ev.Type == models.EventInsert {
			m.mutate(CollectionMessages, appendMessage(msg))
		} else {
			m.mutate(CollectionMessages, patchMessage(msg))
		}
		return true, nil
	case models.EventDelete:
		id, err := repositories.DecodeRowID(models.TableMessages, ev.Old)
		if err != nil {
			return false, err
		}
		m.mutate(CollectionMessages, removeMessage(id))
		return true, nil
	}
	return false, nil
}

func (m *Manager) applyNotificationEvent(ev models.RealtimeEvent) (bool, error) {
	switch ev.Type {
	case models.EventInsert, models.EventUpdate:
		n, err := repositories.DecodeNotification(ev.New)
		if err != nil {
			return false, err
		}
		if n.ProjectID != m.id.ProjectID {
			return false, nil
		}
		if ev.Type == models.EventInsert {
			m.mutate(CollectionNotifications, prependNotification(n))
		} else {
			m.mutate(CollectionNotifications, patchNotification(n))
		}
		return true, nil
	case models.EventDelete:
		id, err := repositories.DecodeRowID(models.TableNotifications, ev.Old)
		if err != nil {
			return false, err
		}
		m.mutate(CollectionNotifications, removeNotification(id))
		return true, nil
	}
	return false, nil
}

// Replayable collection mutations. Inserts skip ids already present.

func appendMessage(msg models.Message) op {
	return func(s *state) bool {
		var ok bool
		s.messages, ok = insertByID(s.messages, msg, messageID, false)
		return ok
	}
}

func patchMessage(msg models.Message) op {
	return func(s *state) bool {
		var ok bool
		s.messages, ok = updateByID(s.messages, msg.ID, messageID, func(existing *models.Message) {
			existing.Content = msg.Content
			existing.UpdatedAt = msg.UpdatedAt
		})
		return ok
	}
}

func removeMessage(id string) op {
	return func(s *state) bool {
		var ok bool
		s.messages, ok = removeByID(s.messages, id, messageID)
		return ok
	}
}

func prependNotification(n models.Notification) op {
	return func(s *state) bool {
		var ok bool
		s.notifications, ok = insertByID(s.notifications, n, notificationID, true)
		return ok
	}
}

func patchNotification(n models.Notification) op {
	return func(s *state) bool {
		var ok bool
		s.notifications, ok = updateByID(s.notifications, n.ID, notificationID, func(existing *models.Notification) {
			existing.IsRead = n.IsRead
		})
		return ok
	}
}

func removeNotification(id string) op {
	return func(s *state) bool {
		var ok bool
		s.notifications, ok = removeByID(s.notifications, id, notificationID)
		return ok
	}
}

func appendGroup(g models.ChatGroup) op {
	return func(s *state) bool {
		var ok bool
		s.groups, ok = insertByID(s.groups, g, groupID, false)
		return ok
	}
}

func prependReport(r models.ProgressReport) op {
	return func(s *state) bool {
		var ok bool
		s.reports, ok = insertByID(s.reports, r, reportID, true)
		return ok
	}
}

func prependAlert(a models.SafetyAlert) op {
	return func(s *state) bool {
		var ok bool
		s.alerts, ok = insertByID(s.alerts, a, alertID, true)
		return ok
	}
}

func messageID(m models.Message) string           { return m.ID }
func notificationID(n models.Notification) string { return n.ID }
func groupID(g models.ChatGroup) string           { return g.ID }
func reportID(r models.ProgressReport) string     { return r.ID }
func alertID(a models.SafetyAlert) string         { return a.ID }

// insertByID returns a new slice with item added unless its id is already present.
func insertByID[T any](items []T, item T, idOf func(T) string, prepend bool) ([]T, bool) {
	id := idOf(item)
	for _, existing := range items {
		if idOf(existing) == id {
			return items, false
		}
	}
	out := make([]T, 0, len(items)+1)
	if prepend {
		out = append(out, item)
		return append(out, items...), true
	}
	out = append(out, items...)
	return append(out, item), true
}

// updateByID returns a new slice with apply run on the element with id.
func updateByID[T any](items []T, id string, idOf func(T) string, apply func(*T)) ([]T, bool) {
	for i, existing := range items {
		if idOf(existing) != id {
			continue
		}
		out := make([]T, len(items))
		copy(out, items)
		apply(&out[i])
		return out, true
	}
	return items, false
}

// removeByID returns a new slice without the element with id.
func removeByID[T any](items []T, id string, idOf func(T) string) ([]T, bool) {
	for i, existing := range items {
		if idOf(existing) != id {
			continue
		}
		out := make([]T, 0, len(items)-1)
		out = append(out, items[:i]...)
		return append(out, items[i+1:]...), true
	}
	return items, false
}
