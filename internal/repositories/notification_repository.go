package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"project-comms/internal/models"
)

// NotificationRepository defines interactions for notifications.
type NotificationRepository interface {
	ListNotifications(ctx context.Context, projectID string, limit int) ([]models.Notification, error)
	CreateNotification(ctx context.Context, n models.NewNotification) (models.Notification, error)
	UpdateNotification(ctx context.Context, projectID, userID, id string, patch models.NotificationPatch) (models.Notification, error)
	MarkAllRead(ctx context.Context, projectID string, userID string) ([]models.Notification, error)
}

// NotificationRepo is a sqlx-backed repository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// ListNotifications returns the newest notifications of the project.
func (r *NotificationRepo) ListNotifications(ctx context.Context, projectID string, limit int) ([]models.Notification, error) {
	var rows []notificationRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+notificationColumns+` FROM notifications WHERE project_id=$1 ORDER BY created_at DESC LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, backendError("list notifications", err)
	}
	return notificationsFromRows("list notifications", rows)
}

// CreateNotification persists a notification, unread.
func (r *NotificationRepo) CreateNotification(ctx context.Context, n models.NewNotification) (models.Notification, error) {
	metadata := n.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	var row notificationRow
	err := r.db.QueryRowxContext(ctx, `INSERT INTO notifications (user_id, project_id, notification_type, title, content, metadata)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+notificationColumns,
		n.UserID, n.ProjectID, string(n.NotificationType), n.Title, n.Content, jsonColumn[map[string]any]{V: metadata}).
		StructScan(&row)
	if err != nil {
		return models.Notification{}, backendError("create notification", err)
	}
	created, err := rowToNotification(row)
	return created, backendError("create notification", err)
}

// UpdateNotification applies patch to a notification the user owns in the project
// and returns the stored row. Rows outside that scope report ErrNotFound.
func (r *NotificationRepo) UpdateNotification(ctx context.Context, projectID, userID, id string, patch models.NotificationPatch) (models.Notification, error) {
	var row notificationRow
	var err error
	if patch.IsRead == nil {
		err = r.db.GetContext(ctx, &row, `SELECT `+notificationColumns+` FROM notifications
        WHERE id=$1 AND project_id=$2 AND user_id=$3`, id, projectID, userID)
	} else {
		err = r.db.GetContext(ctx, &row, `UPDATE notifications SET is_read=$4
        WHERE id=$1 AND project_id=$2 AND user_id=$3
        RETURNING `+notificationColumns, id, projectID, userID, *patch.IsRead)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, backendError("update notification", ErrNotFound)
	}
	if err != nil {
		return models.Notification{}, backendError("update notification", err)
	}
	updated, err := rowToNotification(row)
	return updated, backendError("update notification", err)
}

// MarkAllRead marks every unread notification of the user in the project as read and returns them.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, projectID string, userID string) ([]models.Notification, error) {
	var rows []notificationRow
	err := r.db.SelectContext(ctx, &rows, `UPDATE notifications SET is_read=TRUE
        WHERE project_id=$1 AND user_id=$2 AND is_read=FALSE
        RETURNING `+notificationColumns, projectID, userID)
	if err != nil {
		return nil, backendError("mark notifications read", err)
	}
	return notificationsFromRows("mark notifications read", rows)
}

func notificationsFromRows(op string, rows []notificationRow) ([]models.Notification, error) {
	out := make([]models.Notification, 0, len(rows))
	for _, row := range rows {
		n, err := rowToNotification(row)
		if err != nil {
			return nil, backendError(op, err)
		}
		out = append(out, n)
	}
	return out, nil
}
