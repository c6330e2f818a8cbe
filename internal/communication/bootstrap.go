package communication

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"project-comms/internal/models"
	"project-comms/internal/observability"
)

// Collection names one cached collection.
type Collection string

const (
	CollectionMessages        Collection = "messages"
	CollectionChatGroups      Collection = "chat_groups"
	CollectionNotifications   Collection = "notifications"
	CollectionProgressReports Collection = "progress_reports"
	CollectionSafetyAlerts    Collection = "safety_alerts"
)

var collectionLabels = map[Collection]string{
	CollectionMessages:        "messages",
	CollectionChatGroups:      "chat groups",
	CollectionNotifications:   "notifications",
	CollectionProgressReports: "progress reports",
	CollectionSafetyAlerts:    "safety alerts",
}

// ParseCollection maps a collection name, accepting dashes for underscores.
func ParseCollection(name string) (Collection, bool) {
	c := Collection(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	_, ok := collectionLabels[c]
	return c, ok
}

// Load fetches every collection. Chat groups, notifications, progress reports
// and safety alerts are fetched concurrently, creating the default group when
// the project has none; messages follow once groups exist. A failed fetch keeps
// the data of the others. The joined fetch errors are returned and summarised
// in the snapshot error.
func (m *Manager) Load(ctx context.Context) error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	if m.isClosed() {
		return ErrClosed
	}
	ctx, cancel := m.bind(ctx)
	defer cancel()

	ctx, span := m.tracer.Start(ctx, "communication.Load")
	span.SetAttributes(attribute.String("project_id", m.id.ProjectID), attribute.String("user_id", m.id.UserID))
	defer span.End()

	start := time.Now()
	m.update(func(s *state) {
		s.status = StatusLoading
		s.errMsg = ""
	})

	fetches := []struct {
		collection Collection
		fetch      func(context.Context) error
	}{
		{CollectionChatGroups, m.fetchChatGroups},
		{CollectionNotifications, m.fetchNotifications},
		{CollectionProgressReports, m.fetchProgressReports},
		{CollectionSafetyAlerts, m.fetchSafetyAlerts},
	}
	errs := make([]error, len(fetches)+1)
	var g errgroup.Group
	for i, f := range fetches {
		i, f := i, f
		g.Go(func() error {
			errs[i] = f.fetch(ctx)
			return nil
		})
	}
	_ = g.Wait()

	if m.hasGroups() {
		errs[len(fetches)] = m.fetchMessages(ctx)
	}

	if m.isClosed() {
		return ErrClosed
	}

	var failed []string
	for _, err := range errs {
		var fe *FetchError
		if errors.As(err, &fe) {
			failed = append(failed, collectionLabels[fe.Collection])
		}
	}
	err := errors.Join(errs...)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "partial load")
		log.Printf("communication load failed project_id=%s user_id=%s collections=%s: %v", m.id.ProjectID, m.id.UserID, strings.Join(failed, ","), err)
	}
	observability.ObserveBootstrap(outcome, time.Since(start))

	m.update(func(s *state) {
		if err != nil {
			s.status = StatusReadyWithError
			s.errMsg = loadErrorMessage(failed)
			return
		}
		s.status = StatusReady
		s.errMsg = ""
	})
	return err
}

func loadErrorMessage(failed []string) string {
	if len(failed) == 0 {
		return "Failed to load communication data."
	}
	return "Failed to load " + strings.Join(failed, ", ") + ". Showing the data that could be loaded."
}

// Refetch reloads one collection.
func (m *Manager) Refetch(ctx context.Context, c Collection) error {
	switch c {
	case CollectionMessages:
		return m.RefetchMessages(ctx)
	case CollectionChatGroups:
		return m.RefetchChatGroups(ctx)
	case CollectionNotifications:
		return m.RefetchNotifications(ctx)
	case CollectionProgressReports:
		return m.RefetchProgressReports(ctx)
	case CollectionSafetyAlerts:
		return m.RefetchSafetyAlerts(ctx)
	}
	return ErrUnknownCollection
}

func (m *Manager) RefetchMessages(ctx context.Context) error {
	return m.refetch(ctx, m.fetchMessages)
}

func (m *Manager) RefetchChatGroups(ctx context.Context) error {
	return m.refetch(ctx, m.fetchChatGroups)
}

func (m *Manager) RefetchNotifications(ctx context.Context) error {
	return m.refetch(ctx, m.fetchNotifications)
}

func (m *Manager) RefetchProgressReports(ctx context.Context) error {
	return m.refetch(ctx, m.fetchProgressReports)
}

func (m *Manager) RefetchSafetyAlerts(ctx context.Context) error {
	return m.refetch(ctx, m.fetchSafetyAlerts)
}

func (m *Manager) refetch(ctx context.Context, fetch func(context.Context) error) error {
	if m.isClosed() {
		return ErrClosed
	}
	ctx, cancel := m.bind(ctx)
	defer cancel()
	return fetch(ctx)
}

func (m *Manager) fetchChatGroups(ctx context.Context) error {
	finish := m.beginFetch(CollectionChatGroups)
	groups, err := m.deps.Groups.ListGroups(ctx, m.id.ProjectID)
	if err == nil && len(groups) == 0 {
		var group models.ChatGroup
		group, err = m.deps.Groups.CreateDefaultGroup(ctx, m.id.ProjectID, models.GroupMember{
			UserID:   m.id.UserID,
			Role:     m.id.Role,
			JoinedAt: time.Now().UTC(),
			IsAdmin:  true,
		})
		if err == nil {
			log.Printf("default chat group ready project_id=%s group_id=%s", m.id.ProjectID, group.ID)
			groups = []models.ChatGroup{group}
		}
	}
	if err != nil {
		finish(nil)
		return m.fetchFailed(CollectionChatGroups, err)
	}
	finish(func(s *state) { s.groups = groups })
	return nil
}

func (m *Manager) fetchMessages(ctx context.Context) error {
	finish := m.beginFetch(CollectionMessages)
	messages, err := m.deps.Messages.ListMessages(ctx, m.id.ProjectID, m.opts.MessageLimit)
	if err != nil {
		finish(nil)
		return m.fetchFailed(CollectionMessages, err)
	}
	finish(func(s *state) { s.messages = messages })
	return nil
}

func (m *Manager) fetchNotifications(ctx context.Context) error {
	finish := m.beginFetch(CollectionNotifications)
	notifications, err := m.deps.Notifications.ListNotifications(ctx, m.id.ProjectID, m.opts.NotificationLimit)
	if err != nil {
		finish(nil)
		return m.fetchFailed(CollectionNotifications, err)
	}
	finish(func(s *state) { s.notifications = notifications })
	return nil
}

func (m *Manager) fetchProgressReports(ctx context.Context) error {
	finish := m.beginFetch(CollectionProgressReports)
	reports, err := m.deps.Reports.ListProgressReports(ctx, m.id.ProjectID)
	if err != nil {
		finish(nil)
		return m.fetchFailed(CollectionProgressReports, err)
	}
	finish(func(s *state) { s.reports = reports })
	return nil
}

func (m *Manager) fetchSafetyAlerts(ctx context.Context) error {
	finish := m.beginFetch(CollectionSafetyAlerts)
	alerts, err := m.deps.Alerts.ListSafetyAlerts(ctx, m.id.ProjectID)
	if err != nil {
		finish(nil)
		return m.fetchFailed(CollectionSafetyAlerts, err)
	}
	finish(func(s *state) { s.alerts = alerts })
	return nil
}

func (m *Manager) fetchFailed(c Collection, err error) error {
	observability.IncCollectionFetchError(string(c))
	return &FetchError{Collection: c, Err: err}
}

func (m *Manager) hasGroups() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.groups) > 0
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
