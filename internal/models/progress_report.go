package models

import "time"

// ReportStatus is the state of the task a progress report describes.
type ReportStatus string

const (
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusBlocked    ReportStatus = "blocked"
)

// Valid reports whether s is a known report status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusInProgress, ReportStatusCompleted, ReportStatusBlocked:
		return true
	}
	return false
}

// ProgressReport is a field report on a project task.
type ProgressReport struct {
	ID                   string       `json:"id"`
	ProjectID            string       `json:"project_id"`
	TaskName             string       `json:"task_name"`
	TaskDescription      string       `json:"task_description"`
	CompletionPercentage int          `json:"completion_percentage"`
	Status               ReportStatus `json:"status"`
	ReporterID           string       `json:"reporter_id"`
	ReporterName         string       `json:"reporter_name"`
	ReporterRole         UserRole     `json:"reporter_role"`
	Location             *Location    `json:"location,omitempty"`
	Photos               []string     `json:"photos"`
	Notes                string       `json:"notes"`
	HoursWorked          float64      `json:"hours_worked"`
	MaterialsUsed        string       `json:"materials_used"`
	IssuesEncountered    string       `json:"issues_encountered"`
	NextSteps            string       `json:"next_steps"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// NewProgressReport carries the fields of a progress report insert.
type NewProgressReport struct {
	ProjectID            string
	TaskName             string
	TaskDescription      string
	CompletionPercentage int
	Status               ReportStatus
	ReporterID           string
	ReporterName         string
	ReporterRole         UserRole
	Location             *Location
	Photos               []string
	Notes                string
	HoursWorked          float64
	MaterialsUsed        string
	IssuesEncountered    string
	NextSteps            string
}
