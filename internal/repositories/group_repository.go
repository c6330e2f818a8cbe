package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"project-comms/internal/models"
)

// GroupRepository abstracts chat group persistence.
type GroupRepository interface {
	ListGroups(ctx context.Context, projectID string) ([]models.ChatGroup, error)
	CreateGroup(ctx context.Context, group models.NewChatGroup) (models.ChatGroup, error)
	CreateDefaultGroup(ctx context.Context, projectID string, creator models.GroupMember) (models.ChatGroup, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// ListGroups returns the project's groups, oldest first.
func (r *GroupRepo) ListGroups(ctx context.Context, projectID string) ([]models.ChatGroup, error) {
	var rows []groupRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+groupColumns+` FROM chat_groups WHERE project_id=$1 ORDER BY created_at ASC`, projectID); err != nil {
		return nil, backendError("list chat groups", err)
	}
	groups := make([]models.ChatGroup, 0, len(rows))
	for _, row := range rows {
		group, err := rowToGroup(row)
		if err != nil {
			return nil, backendError("list chat groups", err)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// CreateGroup inserts a named group. The creator is always an admin member.
func (r *GroupRepo) CreateGroup(ctx context.Context, group models.NewChatGroup) (models.ChatGroup, error) {
	members := withCreator(group.Members, group.CreatedBy)
	var row groupRow
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_groups (project_id, name, description, group_type, members, created_by)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+groupColumns,
		group.ProjectID, group.Name, group.Description, string(group.GroupType), jsonColumn[[]models.GroupMember]{V: members}, group.CreatedBy).
		StructScan(&row)
	if err != nil {
		return models.ChatGroup{}, backendError("create chat group", err)
	}
	created, err := rowToGroup(row)
	return created, backendError("create chat group", err)
}

// CreateDefaultGroup creates the project's default group, or returns the existing one when another
// session created it first. A partial unique index keeps one default group per project.
func (r *GroupRepo) CreateDefaultGroup(ctx context.Context, projectID string, creator models.GroupMember) (models.ChatGroup, error) {
	if creator.JoinedAt.IsZero() {
		creator.JoinedAt = time.Now().UTC()
	}
	creator.IsAdmin = true
	description := "Project-wide discussion"

	var row groupRow
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_groups (project_id, name, description, group_type, members, is_default, created_by)
        VALUES ($1, $2, $3, $4, $5, TRUE, $6)
        ON CONFLICT (project_id) WHERE is_default DO NOTHING
        RETURNING `+groupColumns,
		projectID, models.DefaultGroupName, description, string(models.GroupTypeProject),
		jsonColumn[[]models.GroupMember]{V: []models.GroupMember{creator}}, creator.UserID).
		StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.db.GetContext(ctx, &row, `SELECT `+groupColumns+` FROM chat_groups WHERE project_id=$1 AND is_default`, projectID)
	}
	if err != nil {
		return models.ChatGroup{}, backendError("create default chat group", err)
	}
	group, err := rowToGroup(row)
	return group, backendError("create default chat group", err)
}

func withCreator(members []models.GroupMember, creatorID string) []models.GroupMember {
	out := make([]models.GroupMember, 0, len(members)+1)
	seen := map[string]struct{}{}
	now := time.Now().UTC()
	for _, m := range members {
		if m.UserID == "" {
			continue
		}
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		if m.JoinedAt.IsZero() {
			m.JoinedAt = now
		}
		if m.UserID == creatorID {
			m.IsAdmin = true
		}
		out = append(out, m)
	}
	if _, ok := seen[creatorID]; !ok && creatorID != "" {
		out = append([]models.GroupMember{{UserID: creatorID, JoinedAt: now, IsAdmin: true}}, out...)
	}
	return out
}
