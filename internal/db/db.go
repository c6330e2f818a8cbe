package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(connectCtx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(connectCtx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(ctx context.Context, db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS chat_groups (
            id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
            project_id TEXT NOT NULL,
            name TEXT NOT NULL,
            description TEXT,
            group_type TEXT NOT NULL DEFAULT 'project',
            members JSONB NOT NULL DEFAULT '[]'::jsonb,
            is_default BOOLEAN NOT NULL DEFAULT FALSE,
            created_by TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE UNIQUE INDEX IF NOT EXISTS chat_groups_one_default_per_project
            ON chat_groups (project_id) WHERE is_default;`,
	`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
            project_id TEXT NOT NULL,
            group_id TEXT NOT NULL REFERENCES chat_groups(id) ON DELETE CASCADE,
            sender_id TEXT NOT NULL,
            sender_name TEXT NOT NULL DEFAULT '',
            sender_role TEXT NOT NULL DEFAULT '',
            message_type TEXT NOT NULL DEFAULT 'text',
            content TEXT NOT NULL,
            metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS messages_project_created_idx ON messages (project_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS notifications (
            id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
            user_id TEXT NOT NULL,
            project_id TEXT NOT NULL,
            notification_type TEXT NOT NULL,
            title TEXT NOT NULL,
            content TEXT NOT NULL DEFAULT '',
            metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS notifications_project_created_idx ON notifications (project_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS progress_reports (
            id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
            project_id TEXT NOT NULL,
            task_name TEXT NOT NULL,
            task_description TEXT NOT NULL DEFAULT '',
            completion_percentage INT NOT NULL CHECK (completion_percentage BETWEEN 0 AND 100),
            status TEXT NOT NULL DEFAULT 'in_progress',
            reporter_id TEXT NOT NULL,
            reporter_name TEXT NOT NULL DEFAULT '',
            reporter_role TEXT NOT NULL DEFAULT '',
            location JSONB,
            photos TEXT[] NOT NULL DEFAULT '{}',
            notes TEXT NOT NULL DEFAULT '',
            hours_worked DOUBLE PRECISION NOT NULL DEFAULT 0,
            materials_used TEXT NOT NULL DEFAULT '',
            issues_encountered TEXT NOT NULL DEFAULT '',
            next_steps TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS safety_alerts (
            id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
            project_id TEXT NOT NULL,
            reporter_id TEXT NOT NULL,
            reporter_name TEXT NOT NULL DEFAULT '',
            reporter_role TEXT NOT NULL DEFAULT '',
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            safety_level TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT '',
            location_description TEXT NOT NULL DEFAULT '',
            location_coordinates JSONB,
            photos TEXT[] NOT NULL DEFAULT '{}',
            actions_taken TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'open',
            assigned_to TEXT,
            resolution_notes TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	// Change envelopes for the realtime listener, one channel per project.
	// pg_notify payloads are capped at 8000 bytes, so old rows carry only their id.
	`CREATE OR REPLACE FUNCTION notify_project_change() RETURNS trigger AS $$
        DECLARE
            project TEXT;
        BEGIN
            IF TG_OP = 'DELETE' THEN
                project := OLD.project_id;
            ELSE
                project := NEW.project_id;
            END IF;
            PERFORM pg_notify('project-' || project, json_build_object(
                'eventType', TG_OP,
                'table', TG_TABLE_NAME,
                'new', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE row_to_json(NEW) END,
                'old', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE json_build_object('id', OLD.id) END
            )::text);
            RETURN NULL;
        END;
        $$ LANGUAGE plpgsql;`,
	`DROP TRIGGER IF EXISTS messages_notify_change ON messages;`,
	`CREATE TRIGGER messages_notify_change AFTER INSERT OR UPDATE OR DELETE ON messages
            FOR EACH ROW EXECUTE FUNCTION notify_project_change();`,
	`DROP TRIGGER IF EXISTS notifications_notify_change ON notifications;`,
	`CREATE TRIGGER notifications_notify_change AFTER INSERT OR UPDATE OR DELETE ON notifications
            FOR EACH ROW EXECUTE FUNCTION notify_project_change();`,
}
