package communication

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"project-comms/internal/idempotency"
	"project-comms/internal/models"
	"project-comms/internal/observability"
	"project-comms/internal/telemetry"
)

// SendMessageInput is a message to post. An empty GroupID targets the default group.
type SendMessageInput struct {
	GroupID         string
	MessageType     models.MessageType
	Content         string
	Metadata        models.MessageMetadata
	ClientMessageID string
}

type CreateChatGroupInput struct {
	Name        string
	Description *string
	GroupType   models.GroupType
	Members     []models.GroupMember
}

type ProgressReportInput struct {
	TaskName             string
	TaskDescription      string
	CompletionPercentage int
	Status               models.ReportStatus
	Location             *models.Location
	Photos               []string
	Notes                string
	HoursWorked          float64
	MaterialsUsed        string
	IssuesEncountered    string
	NextSteps            string
}

type SafetyAlertInput struct {
	Title               string
	Description         string
	SafetyLevel         models.SafetyLevel
	Category            string
	LocationDescription string
	LocationCoordinates *models.Coordinates
	Photos              []string
	ActionsTaken        string
	AssignedTo          *string
}

// NotificationInput is a notification to create. An empty UserID addresses the acting user.
type NotificationInput struct {
	UserID           string
	NotificationType models.NotificationType
	Title            string
	Content          string
	Metadata         map[string]any
}

// SendMessage persists a message and appends it to the cache.
func (m *Manager) SendMessage(ctx context.Context, in SendMessageInput) (models.Message, error) {
	ctx, span, done, err := m.startAction(ctx, ActionSendMessage)
	defer done()
	if err != nil {
		return models.Message{}, err
	}

	if in.MessageType == "" {
		in.MessageType = models.MessageTypeText
	}
	if !in.MessageType.Valid() {
		return models.Message{}, m.actionFailed(span, ActionSendMessage, fmt.Errorf("%w: message type %q", ErrInvalidInput, in.MessageType))
	}
	if len(in.Content) > MaxContentBytes {
		return models.Message{}, m.actionFailed(span, ActionSendMessage, fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidInput, MaxContentBytes))
	}
	group, ok := m.resolveGroup(in.GroupID)
	if !ok {
		return models.Message{}, m.actionFailed(span, ActionSendMessage, fmt.Errorf("%w: %q", ErrUnknownGroup, in.GroupID))
	}
	span.SetAttributes(attribute.String("group_id", group.ID))

	key := ""
	if in.ClientMessageID != "" && m.deps.Guard != nil {
		key = idempotency.Key(m.id.ProjectID, m.id.UserID, in.ClientMessageID)
		acquired, err := m.deps.Guard.Acquire(ctx, key)
		if err != nil {
			return models.Message{}, m.actionFailed(span, ActionSendMessage, err)
		}
		if !acquired {
			return models.Message{}, m.actionFailed(span, ActionSendMessage, ErrDuplicateSubmission)
		}
	}

	msg, err := m.deps.Messages.CreateMessage(ctx, models.NewMessage{
		ProjectID:   m.id.ProjectID,
		GroupID:     group.ID,
		SenderID:    m.id.UserID,
		SenderName:  m.id.UserName,
		SenderRole:  m.id.Role,
		MessageType: in.MessageType,
		Content:     in.Content,
		Metadata:    in.Metadata,
	})
	if err != nil {
		if key != "" {
			if relErr := m.deps.Guard.Release(context.WithoutCancel(ctx), key); relErr != nil {
				log.Printf("idempotency release failed project_id=%s key=%s: %v", m.id.ProjectID, key, relErr)
			}
		}
		return models.Message{}, m.actionFailed(span, ActionSendMessage, err)
	}

	m.mutate(CollectionMessages, appendMessage(msg))
	m.publishMessage(models.EventInsert, msg)
	m.emit(ctx, "", telemetry.EventMessageCreated, msg)
	return msg, nil
}

// CreateChatGroup persists a group with the acting user as admin member.
func (m *Manager) CreateChatGroup(ctx context.Context, in CreateChatGroupInput) (models.ChatGroup, error) {
	ctx, span, done, err := m.startAction(ctx, ActionCreateChatGroup)
	defer done()
	if err != nil {
		return models.ChatGroup{}, err
	}

	if in.GroupType == "" {
		in.GroupType = models.GroupTypeTeam
	}
	if !in.GroupType.Valid() {
		return models.ChatGroup{}, m.actionFailed(span, ActionCreateChatGroup, fmt.Errorf("%w: group type %q", ErrInvalidInput, in.GroupType))
	}

	group, err := m.deps.Groups.CreateGroup(ctx, models.NewChatGroup{
		ProjectID:   m.id.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		GroupType:   in.GroupType,
		Members:     in.Members,
		CreatedBy:   m.id.UserID,
	})
	if err != nil {
		return models.ChatGroup{}, m.actionFailed(span, ActionCreateChatGroup, err)
	}

	m.mutate(CollectionChatGroups, appendGroup(group))
	return group, nil
}

// CreateProgressReport persists a report and a progress_update notification.
// When only the notification fails, the report is returned with the error.
func (m *Manager) CreateProgressReport(ctx context.Context, in ProgressReportInput) (models.ProgressReport, error) {
	ctx, span, done, err := m.startAction(ctx, ActionCreateProgress)
	defer done()
	if err != nil {
		return models.ProgressReport{}, err
	}

	if in.CompletionPercentage < 0 || in.CompletionPercentage > 100 {
		return models.ProgressReport{}, m.actionFailed(span, ActionCreateProgress, fmt.Errorf("%w: completion percentage %d", ErrInvalidInput, in.CompletionPercentage))
	}
	if in.Status == "" {
		in.Status = models.ReportStatusInProgress
	}
	if !in.Status.Valid() {
		return models.ProgressReport{}, m.actionFailed(span, ActionCreateProgress, fmt.Errorf("%w: status %q", ErrInvalidInput, in.Status))
	}

	report, err := m.deps.Reports.CreateProgressReport(ctx, models.NewProgressReport{
		ProjectID:            m.id.ProjectID,
		TaskName:             in.TaskName,
		TaskDescription:      in.TaskDescription,
		CompletionPercentage: in.CompletionPercentage,
		Status:               in.Status,
		ReporterID:           m.id.UserID,
		ReporterName:         m.id.UserName,
		ReporterRole:         m.id.Role,
		Location:             in.Location,
		Photos:               in.Photos,
		Notes:                in.Notes,
		HoursWorked:          in.HoursWorked,
		MaterialsUsed:        in.MaterialsUsed,
		IssuesEncountered:    in.IssuesEncountered,
		NextSteps:            in.NextSteps,
	})
	if err != nil {
		return models.ProgressReport{}, m.actionFailed(span, ActionCreateProgress, err)
	}
	m.mutate(CollectionProgressReports, prependReport(report))
	m.emit(ctx, "", telemetry.EventProgressReportCreated, report)

	_, err = m.notify(ctx, models.NewNotification{
		UserID:           m.id.UserID,
		ProjectID:        m.id.ProjectID,
		NotificationType: models.NotificationTypeProgressUpdate,
		Title:            "Progress update: " + report.TaskName,
		Content:          fmt.Sprintf("%s reported %d%% completion.", m.reporterName(), report.CompletionPercentage),
		Metadata: map[string]any{
			"progress_report_id":    report.ID,
			"completion_percentage": report.CompletionPercentage,
		},
	})
	if err != nil {
		return report, m.actionFailed(span, ActionCreateProgress, fmt.Errorf("notify: %w", err))
	}
	return report, nil
}

// CreateSafetyAlert persists an open alert and a safety_alert notification.
// When only the notification fails, the alert is returned with the error.
func (m *Manager) CreateSafetyAlert(ctx context.Context, in SafetyAlertInput) (models.SafetyAlert, error) {
	ctx, span, done, err := m.startAction(ctx, ActionCreateSafetyAlert)
	defer done()
	if err != nil {
		return models.SafetyAlert{}, err
	}

	if !in.SafetyLevel.Valid() {
		return models.SafetyAlert{}, m.actionFailed(span, ActionCreateSafetyAlert, fmt.Errorf("%w: safety level %q", ErrInvalidInput, in.SafetyLevel))
	}

	alert, err := m.deps.Alerts.CreateSafetyAlert(ctx, models.NewSafetyAlert{
		ProjectID:           m.id.ProjectID,
		ReporterID:          m.id.UserID,
		ReporterName:        m.id.UserName,
		ReporterRole:        m.id.Role,
		Title:               in.Title,
		Description:         in.Description,
		SafetyLevel:         in.SafetyLevel,
		Category:            in.Category,
		LocationDescription: in.LocationDescription,
		LocationCoordinates: in.LocationCoordinates,
		Photos:              in.Photos,
		ActionsTaken:        in.ActionsTaken,
		AssignedTo:          in.AssignedTo,
	})
	if err != nil {
		return models.SafetyAlert{}, m.actionFailed(span, ActionCreateSafetyAlert, err)
	}
	m.mutate(CollectionSafetyAlerts, prependAlert(alert))

	routingKey := ""
	if alert.SafetyLevel == models.SafetyLevelCritical {
		routingKey = "safety_alert.critical"
	}
	m.emit(ctx, routingKey, telemetry.EventSafetyAlertCreated, alert)

	_, err = m.notify(ctx, models.NewNotification{
		UserID:           m.id.UserID,
		ProjectID:        m.id.ProjectID,
		NotificationType: models.NotificationTypeSafetyAlert,
		Title:            "Safety alert: " + alert.Title,
		Content:          fmt.Sprintf("%s level alert reported by %s.", alert.SafetyLevel, m.reporterName()),
		Metadata: map[string]any{
			"safety_alert_id": alert.ID,
			"safety_level":    string(alert.SafetyLevel),
		},
	})
	if err != nil {
		return alert, m.actionFailed(span, ActionCreateSafetyAlert, fmt.Errorf("notify: %w", err))
	}
	return alert, nil
}

// CreateNotification persists a notification and prepends it to the cache.
func (m *Manager) CreateNotification(ctx context.Context, in NotificationInput) (models.Notification, error) {
	ctx, span, done, err := m.startAction(ctx, ActionCreateNotification)
	defer done()
	if err != nil {
		return models.Notification{}, err
	}

	if in.NotificationType == "" {
		in.NotificationType = models.NotificationTypeSystem
	}
	if !in.NotificationType.Valid() {
		return models.Notification{}, m.actionFailed(span, ActionCreateNotification, fmt.Errorf("%w: notification type %q", ErrInvalidInput, in.NotificationType))
	}
	if len(in.Content) > MaxContentBytes {
		return models.Notification{}, m.actionFailed(span, ActionCreateNotification, fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidInput, MaxContentBytes))
	}
	if in.UserID == "" {
		in.UserID = m.id.UserID
	}

	n, err := m.notify(ctx, models.NewNotification{
		UserID:           in.UserID,
		ProjectID:        m.id.ProjectID,
		NotificationType: in.NotificationType,
		Title:            in.Title,
		Content:          in.Content,
		Metadata:         in.Metadata,
	})
	if err != nil {
		return models.Notification{}, m.actionFailed(span, ActionCreateNotification, err)
	}
	return n, nil
}

// MarkNotificationAsRead flags one of the acting user's notifications in the project as read.
func (m *Manager) MarkNotificationAsRead(ctx context.Context, id string) (models.Notification, error) {
	ctx, span, done, err := m.startAction(ctx, ActionMarkNotificationRead)
	defer done()
	if err != nil {
		return models.Notification{}, err
	}

	read := true
	n, err := m.deps.Notifications.UpdateNotification(ctx, m.id.ProjectID, m.id.UserID, id, models.NotificationPatch{IsRead: &read})
	if err != nil {
		return models.Notification{}, m.actionFailed(span, ActionMarkNotificationRead, err)
	}
	m.mutate(CollectionNotifications, patchNotification(n))
	m.publishNotification(models.EventUpdate, n)
	return n, nil
}

// MarkAllNotificationsAsRead flags every notification of the acting user in the project as read.
func (m *Manager) MarkAllNotificationsAsRead(ctx context.Context) (int, error) {
	ctx, span, done, err := m.startAction(ctx, ActionMarkAllRead)
	defer done()
	if err != nil {
		return 0, err
	}

	updated, err := m.deps.Notifications.MarkAllRead(ctx, m.id.ProjectID, m.id.UserID)
	if err != nil {
		return 0, m.actionFailed(span, ActionMarkAllRead, err)
	}
	for _, n := range updated {
		m.mutate(CollectionNotifications, patchNotification(n))
		m.publishNotification(models.EventUpdate, n)
	}
	return len(updated), nil
}

func (m *Manager) notify(ctx context.Context, in models.NewNotification) (models.Notification, error) {
	n, err := m.deps.Notifications.CreateNotification(ctx, in)
	if err != nil {
		return models.Notification{}, err
	}
	m.mutate(CollectionNotifications, prependNotification(n))
	m.publishNotification(models.EventInsert, n)
	m.emit(ctx, "", telemetry.EventNotificationCreated, n)
	return n, nil
}

func (m *Manager) resolveGroup(id string) (models.ChatGroup, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		for _, g := range m.st.groups {
			if g.IsDefault {
				return g, true
			}
		}
		if len(m.st.groups) > 0 {
			return m.st.groups[0], true
		}
		return models.ChatGroup{}, false
	}
	for _, g := range m.st.groups {
		if g.ID == id {
			return g, true
		}
	}
	return models.ChatGroup{}, false
}

func (m *Manager) reporterName() string {
	if m.id.UserName != "" {
		return m.id.UserName
	}
	return m.id.UserID
}

// startAction opens the action span and ties ctx to the manager lifetime.
func (m *Manager) startAction(ctx context.Context, action string) (context.Context, trace.Span, func(), error) {
	ctx, cancel := m.bind(ctx)
	ctx, span := m.tracer.Start(ctx, "communication."+action)
	span.SetAttributes(attribute.String("project_id", m.id.ProjectID), attribute.String("user_id", m.id.UserID))
	done := func() {
		span.End()
		cancel()
	}
	if m.isClosed() {
		return ctx, span, done, m.actionFailed(span, action, ErrClosed)
	}
	return ctx, span, done, nil
}

func (m *Manager) actionFailed(span trace.Span, action string, err error) error {
	if m.isClosed() && errors.Is(err, context.Canceled) {
		err = ErrClosed
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, action)
	observability.IncActionError(action)
	log.Printf("communication action failed action=%s project_id=%s user_id=%s: %v", action, m.id.ProjectID, m.id.UserID, err)
	return &ActionError{Action: action, Err: err}
}

func (m *Manager) emit(ctx context.Context, routingKey, eventType string, payload any) {
	if m.deps.Emitter == nil {
		return
	}
	_ = m.deps.Emitter.Emit(context.WithoutCancel(ctx), routingKey, eventType, m.id.ProjectID, m.id.UserID, payload)
}
