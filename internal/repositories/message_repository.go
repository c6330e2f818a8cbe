package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"project-comms/internal/models"
)

// MessageRepository defines interactions for project messages.
type MessageRepository interface {
	ListMessages(ctx context.Context, projectID string, limit int) ([]models.Message, error)
	CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// ListMessages returns the newest limit messages of the project in ascending creation order.
func (r *MessageRepo) ListMessages(ctx context.Context, projectID string, limit int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM (
            SELECT ` + messageColumns + ` FROM messages WHERE project_id=$1 ORDER BY created_at DESC LIMIT $2
        ) recent
        ORDER BY created_at ASC`
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, projectID, limit); err != nil {
		return nil, backendError("list messages", err)
	}
	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := rowToMessage(row)
		if err != nil {
			return nil, backendError("list messages", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// CreateMessage stores a message. The group must belong to the same project.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	var row messageRow
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (project_id, group_id, sender_id, sender_name, sender_role, message_type, content, metadata)
        SELECT g.project_id, g.id, $3::text, $4::text, $5::text, $6::text, $7::text, $8::jsonb FROM chat_groups g WHERE g.id=$2::text AND g.project_id=$1::text
        RETURNING `+messageColumns,
		msg.ProjectID, msg.GroupID, msg.SenderID, msg.SenderName, string(msg.SenderRole), string(msg.MessageType), msg.Content,
		jsonColumn[models.MessageMetadata]{V: msg.Metadata}).
		StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, backendError("create message", ErrNotFound)
	}
	if err != nil {
		return models.Message{}, backendError("create message", err)
	}
	created, err := rowToMessage(row)
	return created, backendError("create message", err)
}
