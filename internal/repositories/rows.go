package repositories

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"project-comms/internal/models"
)

// jsonColumn stores a value in a json/jsonb column and decodes it from realtime payloads.
type jsonColumn[T any] struct {
	V T
}

func (c *jsonColumn[T]) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		var zero T
		c.V = zero
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	return json.Unmarshal(raw, &c.V)
}

func (c jsonColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(c.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *jsonColumn[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &c.V)
}

func (c jsonColumn[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.V)
}

const groupColumns = `id, project_id, name, description, group_type, members, is_default, created_by, created_at, updated_at`

type groupRow struct {
	ID          string                           `db:"id" json:"id"`
	ProjectID   string                           `db:"project_id" json:"project_id"`
	Name        string                           `db:"name" json:"name"`
	Description *string                          `db:"description" json:"description"`
	GroupType   string                           `db:"group_type" json:"group_type"`
	Members     jsonColumn[[]models.GroupMember] `db:"members" json:"members"`
	IsDefault   bool                             `db:"is_default" json:"is_default"`
	CreatedBy   string                           `db:"created_by" json:"created_by"`
	CreatedAt   time.Time                        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time                        `db:"updated_at" json:"updated_at"`
}

func rowToGroup(r groupRow) (models.ChatGroup, error) {
	if err := requireFields("chat_groups", map[string]string{"id": r.ID, "project_id": r.ProjectID}); err != nil {
		return models.ChatGroup{}, err
	}
	groupType := models.GroupType(r.GroupType)
	if !groupType.Valid() {
		return models.ChatGroup{}, &RowError{Table: "chat_groups", Field: "group_type", Reason: fmt.Sprintf("unknown value %q", r.GroupType)}
	}
	members := r.Members.V
	if members == nil {
		members = []models.GroupMember{}
	}
	return models.ChatGroup{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Name:        r.Name,
		Description: r.Description,
		GroupType:   groupType,
		Members:     members,
		IsDefault:   r.IsDefault,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

const messageColumns = `id, project_id, group_id, sender_id, sender_name, sender_role, message_type, content, metadata, is_read, created_at, updated_at`

type messageRow struct {
	ID          string                             `db:"id" json:"id"`
	ProjectID   string                             `db:"project_id" json:"project_id"`
	GroupID     string                             `db:"group_id" json:"group_id"`
	SenderID    string                             `db:"sender_id" json:"sender_id"`
	SenderName  string                             `db:"sender_name" json:"sender_name"`
	SenderRole  string                             `db:"sender_role" json:"sender_role"`
	MessageType string                             `db:"message_type" json:"message_type"`
	Content     string                             `db:"content" json:"content"`
	Metadata    jsonColumn[models.MessageMetadata] `db:"metadata" json:"metadata"`
	IsRead      bool                               `db:"is_read" json:"is_read"`
	CreatedAt   time.Time                          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time                          `db:"updated_at" json:"updated_at"`
}

func rowToMessage(r messageRow) (models.Message, error) {
	if err := requireFields("messages", map[string]string{"id": r.ID, "project_id": r.ProjectID, "group_id": r.GroupID}); err != nil {
		return models.Message{}, err
	}
	messageType := models.MessageType(r.MessageType)
	if !messageType.Valid() {
		return models.Message{}, &RowError{Table: "messages", Field: "message_type", Reason: fmt.Sprintf("unknown value %q", r.MessageType)}
	}
	role, err := parseRole("messages", "sender_role", r.SenderRole)
	if err != nil {
		return models.Message{}, err
	}
	return models.Message{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		GroupID:     r.GroupID,
		SenderID:    r.SenderID,
		SenderName:  r.SenderName,
		SenderRole:  role,
		MessageType: messageType,
		Content:     r.Content,
		Metadata:    r.Metadata.V,
		IsRead:      r.IsRead,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

const notificationColumns = `id, user_id, project_id, notification_type, title, content, metadata, is_read, created_at`

type notificationRow struct {
	ID               string                     `db:"id" json:"id"`
	UserID           string                     `db:"user_id" json:"user_id"`
	ProjectID        string                     `db:"project_id" json:"project_id"`
	NotificationType string                     `db:"notification_type" json:"notification_type"`
	Title            string                     `db:"title" json:"title"`
	Content          string                     `db:"content" json:"content"`
	Metadata         jsonColumn[map[string]any] `db:"metadata" json:"metadata"`
	IsRead           bool                       `db:"is_read" json:"is_read"`
	CreatedAt        time.Time                  `db:"created_at" json:"created_at"`
}

func rowToNotification(r notificationRow) (models.Notification, error) {
	if err := requireFields("notifications", map[string]string{"id": r.ID, "project_id": r.ProjectID}); err != nil {
		return models.Notification{}, err
	}
	notificationType := models.NotificationType(r.NotificationType)
	if !notificationType.Valid() {
		return models.Notification{}, &RowError{Table: "notifications", Field: "notification_type", Reason: fmt.Sprintf("unknown value %q", r.NotificationType)}
	}
	metadata := r.Metadata.V
	if metadata == nil {
		metadata = map[string]any{}
	}
	return models.Notification{
		ID:               r.ID,
		UserID:           r.UserID,
		ProjectID:        r.ProjectID,
		NotificationType: notificationType,
		Title:            r.Title,
		Content:          r.Content,
		Metadata:         metadata,
		IsRead:           r.IsRead,
		CreatedAt:        r.CreatedAt,
	}, nil
}

const progressReportColumns = `id, project_id, task_name, task_description, completion_percentage, status, reporter_id, reporter_name, reporter_role,
	location, photos, notes, hours_worked, materials_used, issues_encountered, next_steps, created_at, updated_at`

type progressReportRow struct {
	ID                   string                       `db:"id" json:"id"`
	ProjectID            string                       `db:"project_id" json:"project_id"`
	TaskName             string                       `db:"task_name" json:"task_name"`
	TaskDescription      string                       `db:"task_description" json:"task_description"`
	CompletionPercentage int                          `db:"completion_percentage" json:"completion_percentage"`
	Status               string                       `db:"status" json:"status"`
	ReporterID           string                       `db:"reporter_id" json:"reporter_id"`
	ReporterName         string                       `db:"reporter_name" json:"reporter_name"`
	ReporterRole         string                       `db:"reporter_role" json:"reporter_role"`
	Location             jsonColumn[*models.Location] `db:"location" json:"location"`
	Photos               pq.StringArray               `db:"photos" json:"photos"`
	Notes                string                       `db:"notes" json:"notes"`
	HoursWorked          float64                      `db:"hours_worked" json:"hours_worked"`
	MaterialsUsed        string                       `db:"materials_used" json:"materials_used"`
	IssuesEncountered    string                       `db:"issues_encountered" json:"issues_encountered"`
	NextSteps            string                       `db:"next_steps" json:"next_steps"`
	CreatedAt            time.Time                    `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time                    `db:"updated_at" json:"updated_at"`
}

func rowToProgressReport(r progressReportRow) (models.ProgressReport, error) {
	if err := requireFields("progress_reports", map[string]string{"id": r.ID, "project_id": r.ProjectID}); err != nil {
		return models.ProgressReport{}, err
	}
	if r.CompletionPercentage < 0 || r.CompletionPercentage > 100 {
		return models.ProgressReport{}, &RowError{Table: "progress_reports", Field: "completion_percentage", Reason: fmt.Sprintf("out of range: %d", r.CompletionPercentage)}
	}
	status := models.ReportStatus(r.Status)
	if !status.Valid() {
		return models.ProgressReport{}, &RowError{Table: "progress_reports", Field: "status", Reason: fmt.Sprintf("unknown value %q", r.Status)}
	}
	role, err := parseRole("progress_reports", "reporter_role", r.ReporterRole)
	if err != nil {
		return models.ProgressReport{}, err
	}
	return models.ProgressReport{
		ID:                   r.ID,
		ProjectID:            r.ProjectID,
		TaskName:             r.TaskName,
		TaskDescription:      r.TaskDescription,
		CompletionPercentage: r.CompletionPercentage,
		Status:               status,
		ReporterID:           r.ReporterID,
		ReporterName:         r.ReporterName,
		ReporterRole:         role,
		Location:             r.Location.V,
		Photos:               stringsOrEmpty(r.Photos),
		Notes:                r.Notes,
		HoursWorked:          r.HoursWorked,
		MaterialsUsed:        r.MaterialsUsed,
		IssuesEncountered:    r.IssuesEncountered,
		NextSteps:            r.NextSteps,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}, nil
}

const safetyAlertColumns = `id, project_id, reporter_id, reporter_name, reporter_role, title, description, safety_level, category,
	location_description, location_coordinates, photos, actions_taken, status, assigned_to, resolution_notes, created_at, updated_at`

type safetyAlertRow struct {
	ID                  string                          `db:"id" json:"id"`
	ProjectID           string                          `db:"project_id" json:"project_id"`
	ReporterID          string                          `db:"reporter_id" json:"reporter_id"`
	ReporterName        string                          `db:"reporter_name" json:"reporter_name"`
	ReporterRole        string                          `db:"reporter_role" json:"reporter_role"`
	Title               string                          `db:"title" json:"title"`
	Description         string                          `db:"description" json:"description"`
	SafetyLevel         string                          `db:"safety_level" json:"safety_level"`
	Category            string                          `db:"category" json:"category"`
	LocationDescription string                          `db:"location_description" json:"location_description"`
	LocationCoordinates jsonColumn[*models.Coordinates] `db:"location_coordinates" json:"location_coordinates"`
	Photos              pq.StringArray                  `db:"photos" json:"photos"`
	ActionsTaken        string                          `db:"actions_taken" json:"actions_taken"`
	Status              string                          `db:"status" json:"status"`
	AssignedTo          *string                         `db:"assigned_to" json:"assigned_to"`
	ResolutionNotes     *string                         `db:"resolution_notes" json:"resolution_notes"`
	CreatedAt           time.Time                       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time                       `db:"updated_at" json:"updated_at"`
}

func rowToSafetyAlert(r safetyAlertRow) (models.SafetyAlert, error) {
	if err := requireFields("safety_alerts", map[string]string{"id": r.ID, "project_id": r.ProjectID}); err != nil {
		return models.SafetyAlert{}, err
	}
	level := models.SafetyLevel(r.SafetyLevel)
	if !level.Valid() {
		return models.SafetyAlert{}, &RowError{Table: "safety_alerts", Field: "safety_level", Reason: fmt.Sprintf("unknown value %q", r.SafetyLevel)}
	}
	status := models.AlertStatus(r.Status)
	if !status.Valid() {
		return models.SafetyAlert{}, &RowError{Table: "safety_alerts", Field: "status", Reason: fmt.Sprintf("unknown value %q", r.Status)}
	}
	role, err := parseRole("safety_alerts", "reporter_role", r.ReporterRole)
	if err != nil {
		return models.SafetyAlert{}, err
	}
	return models.SafetyAlert{
		ID:                  r.ID,
		ProjectID:           r.ProjectID,
		ReporterID:          r.ReporterID,
		ReporterName:        r.ReporterName,
		ReporterRole:        role,
		Title:               r.Title,
		Description:         r.Description,
		SafetyLevel:         level,
		Category:            r.Category,
		LocationDescription: r.LocationDescription,
		LocationCoordinates: r.LocationCoordinates.V,
		Photos:              stringsOrEmpty(r.Photos),
		ActionsTaken:        r.ActionsTaken,
		Status:              status,
		AssignedTo:          r.AssignedTo,
		ResolutionNotes:     r.ResolutionNotes,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}, nil
}

// DecodeMessage translates a realtime row payload into a Message.
func DecodeMessage(raw []byte) (models.Message, error) {
	var r messageRow
	if err := decodePayload("messages", raw, &r); err != nil {
		return models.Message{}, err
	}
	return rowToMessage(r)
}

// DecodeNotification translates a realtime row payload into a Notification.
func DecodeNotification(raw []byte) (models.Notification, error) {
	var r notificationRow
	if err := decodePayload("notifications", raw, &r); err != nil {
		return models.Notification{}, err
	}
	return rowToNotification(r)
}

// DecodeRowID extracts only the id of a realtime row payload, for deletes.
func DecodeRowID(table string, raw []byte) (string, error) {
	var r struct {
		ID string `json:"id"`
	}
	if err := decodePayload(table, raw, &r); err != nil {
		return "", err
	}
	if strings.TrimSpace(r.ID) == "" {
		return "", &RowError{Table: table, Field: "id", Reason: "is empty"}
	}
	return r.ID, nil
}

// EncodeMessage renders m as the row payload a change notification carries.
func EncodeMessage(m models.Message) ([]byte, error) {
	return json.Marshal(messageRow{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		GroupID:     m.GroupID,
		SenderID:    m.SenderID,
		SenderName:  m.SenderName,
		SenderRole:  string(m.SenderRole),
		MessageType: string(m.MessageType),
		Content:     m.Content,
		Metadata:    jsonColumn[models.MessageMetadata]{V: m.Metadata},
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	})
}

// EncodeNotification renders n as the row payload a change notification carries.
func EncodeNotification(n models.Notification) ([]byte, error) {
	return json.Marshal(notificationRow{
		ID:               n.ID,
		UserID:           n.UserID,
		ProjectID:        n.ProjectID,
		NotificationType: string(n.NotificationType),
		Title:            n.Title,
		Content:          n.Content,
		Metadata:         jsonColumn[map[string]any]{V: n.Metadata},
		IsRead:           n.IsRead,
		CreatedAt:        n.CreatedAt,
	})
}

func decodePayload(table string, raw []byte, out any) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return &RowError{Table: table, Field: "payload", Reason: "is empty"}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &RowError{Table: table, Field: "payload", Reason: err.Error()}
	}
	return nil
}

func requireFields(table string, fields map[string]string) error {
	for _, name := range []string{"id", "project_id", "group_id"} {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if strings.TrimSpace(value) == "" {
			return &RowError{Table: table, Field: name, Reason: "is empty"}
		}
	}
	return nil
}

func parseRole(table, field, raw string) (models.UserRole, error) {
	if raw == "" {
		return "", nil
	}
	role := models.UserRole(raw)
	if !role.Valid() {
		return "", &RowError{Table: table, Field: field, Reason: fmt.Sprintf("unknown value %q", raw)}
	}
	return role, nil
}

func stringsOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return []string(values)
}
