package models

import "time"

// SafetyLevel grades the severity of a safety alert.
type SafetyLevel string

const (
	SafetyLevelLow      SafetyLevel = "low"
	SafetyLevelMedium   SafetyLevel = "medium"
	SafetyLevelHigh     SafetyLevel = "high"
	SafetyLevelCritical SafetyLevel = "critical"
)

// Valid reports whether l is a known safety level.
func (l SafetyLevel) Valid() bool {
	switch l {
	case SafetyLevelLow, SafetyLevelMedium, SafetyLevelHigh, SafetyLevelCritical:
		return true
	}
	return false
}

// AlertStatus is the handling state of a safety alert.
type AlertStatus string

const (
	AlertStatusOpen          AlertStatus = "open"
	AlertStatusInvestigating AlertStatus = "investigating"
	AlertStatusResolved      AlertStatus = "resolved"
	AlertStatusClosed        AlertStatus = "closed"
)

// Valid reports whether s is a known alert status.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusOpen, AlertStatusInvestigating, AlertStatusResolved, AlertStatusClosed:
		return true
	}
	return false
}

// Coordinates is a bare lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SafetyAlert is a reported hazard or incident on a project site.
type SafetyAlert struct {
	ID                  string       `json:"id"`
	ProjectID           string       `json:"project_id"`
	ReporterID          string       `json:"reporter_id"`
	ReporterName        string       `json:"reporter_name"`
	ReporterRole        UserRole     `json:"reporter_role"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	SafetyLevel         SafetyLevel  `json:"safety_level"`
	Category            string       `json:"category"`
	LocationDescription string       `json:"location_description"`
	LocationCoordinates *Coordinates `json:"location_coordinates,omitempty"`
	Photos              []string     `json:"photos"`
	ActionsTaken        string       `json:"actions_taken"`
	Status              AlertStatus  `json:"status"`
	AssignedTo          *string      `json:"assigned_to,omitempty"`
	ResolutionNotes     *string      `json:"resolution_notes,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Urgent reports whether the alert is critical and still open.
func (a SafetyAlert) Urgent() bool {
	return a.SafetyLevel == SafetyLevelCritical && a.Status == AlertStatusOpen
}

// NewSafetyAlert carries the fields of a safety alert insert. Status is always open on creation.
type NewSafetyAlert struct {
	ProjectID           string
	ReporterID          string
	ReporterName        string
	ReporterRole        UserRole
	Title               string
	Description         string
	SafetyLevel         SafetyLevel
	Category            string
	LocationDescription string
	LocationCoordinates *Coordinates
	Photos              []string
	ActionsTaken        string
	AssignedTo          *string
}
