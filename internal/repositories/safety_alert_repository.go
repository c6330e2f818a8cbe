package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"project-comms/internal/models"
)

// SafetyAlertRepository defines interactions for safety alerts.
type SafetyAlertRepository interface {
	ListSafetyAlerts(ctx context.Context, projectID string) ([]models.SafetyAlert, error)
	CreateSafetyAlert(ctx context.Context, alert models.NewSafetyAlert) (models.SafetyAlert, error)
}

// SafetyAlertRepo is a sqlx-backed repository.
type SafetyAlertRepo struct {
	db *sqlx.DB
}

// NewSafetyAlertRepo constructs SafetyAlertRepo.
func NewSafetyAlertRepo(db *sqlx.DB) *SafetyAlertRepo {
	return &SafetyAlertRepo{db: db}
}

// ListSafetyAlerts returns the project's alerts, newest first.
func (r *SafetyAlertRepo) ListSafetyAlerts(ctx context.Context, projectID string) ([]models.SafetyAlert, error) {
	var rows []safetyAlertRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+safetyAlertColumns+` FROM safety_alerts WHERE project_id=$1 ORDER BY created_at DESC`, projectID); err != nil {
		return nil, backendError("list safety alerts", err)
	}
	alerts := make([]models.SafetyAlert, 0, len(rows))
	for _, row := range rows {
		alert, err := rowToSafetyAlert(row)
		if err != nil {
			return nil, backendError("list safety alerts", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// CreateSafetyAlert persists an alert in status open.
func (r *SafetyAlertRepo) CreateSafetyAlert(ctx context.Context, alert models.NewSafetyAlert) (models.SafetyAlert, error) {
	var row safetyAlertRow
	err := r.db.QueryRowxContext(ctx, `INSERT INTO safety_alerts (project_id, reporter_id, reporter_name, reporter_role, title, description,
            safety_level, category, location_description, location_coordinates, photos, actions_taken, status, assigned_to)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING `+safetyAlertColumns,
		alert.ProjectID, alert.ReporterID, alert.ReporterName, string(alert.ReporterRole), alert.Title, alert.Description,
		string(alert.SafetyLevel), alert.Category, alert.LocationDescription, jsonColumn[*models.Coordinates]{V: alert.LocationCoordinates},
		pq.StringArray(stringsOrEmpty(alert.Photos)), alert.ActionsTaken, string(models.AlertStatusOpen), alert.AssignedTo).
		StructScan(&row)
	if err != nil {
		return models.SafetyAlert{}, backendError("create safety alert", err)
	}
	created, err := rowToSafetyAlert(row)
	return created, backendError("create safety alert", err)
}
