package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"project-comms/internal/models"
)

// ProgressReportRepository defines interactions for progress reports.
type ProgressReportRepository interface {
	ListProgressReports(ctx context.Context, projectID string) ([]models.ProgressReport, error)
	CreateProgressReport(ctx context.Context, report models.NewProgressReport) (models.ProgressReport, error)
}

// ProgressReportRepo is a sqlx-backed repository.
type ProgressReportRepo struct {
	db *sqlx.DB
}

// NewProgressReportRepo constructs ProgressReportRepo.
func NewProgressReportRepo(db *sqlx.DB) *ProgressReportRepo {
	return &ProgressReportRepo{db: db}
}

// ListProgressReports returns the project's reports, newest first.
func (r *ProgressReportRepo) ListProgressReports(ctx context.Context, projectID string) ([]models.ProgressReport, error) {
	var rows []progressReportRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+progressReportColumns+` FROM progress_reports WHERE project_id=$1 ORDER BY created_at DESC`, projectID); err != nil {
		return nil, backendError("list progress reports", err)
	}
	reports := make([]models.ProgressReport, 0, len(rows))
	for _, row := range rows {
		report, err := rowToProgressReport(row)
		if err != nil {
			return nil, backendError("list progress reports", err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// CreateProgressReport persists a report.
func (r *ProgressReportRepo) CreateProgressReport(ctx context.Context, report models.NewProgressReport) (models.ProgressReport, error) {
	status := report.Status
	if status == "" {
		status = models.ReportStatusInProgress
	}
	var row progressReportRow
	err := r.db.QueryRowxContext(ctx, `INSERT INTO progress_reports (project_id, task_name, task_description, completion_percentage, status,
            reporter_id, reporter_name, reporter_role, location, photos, notes, hours_worked, materials_used, issues_encountered, next_steps)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING `+progressReportColumns,
		report.ProjectID, report.TaskName, report.TaskDescription, report.CompletionPercentage, string(status),
		report.ReporterID, report.ReporterName, string(report.ReporterRole), jsonColumn[*models.Location]{V: report.Location},
		pq.StringArray(stringsOrEmpty(report.Photos)), report.Notes, report.HoursWorked, report.MaterialsUsed, report.IssuesEncountered, report.NextSteps).
		StructScan(&row)
	if err != nil {
		return models.ProgressReport{}, backendError("create progress report", err)
	}
	created, err := rowToProgressReport(row)
	return created, backendError("create progress report", err)
}
