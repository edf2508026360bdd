package model

import "time"

// Report types
const (
	ReportTypeLost  = "lost"
	ReportTypeFound = "found"
)

// Report statuses. The engine only acts on active reports; anything else is
// stored for the record and never fans out.
const (
	ReportStatusActive   = "active"
	ReportStatusResolved = "resolved"
	ReportStatusArchived = "archived"
)

// Report is a snapshot of a report owned by the external reports subsystem,
// taken once at creation-event time. The engine never re-reads the source.
type Report struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	ReporterID  string     `json:"reporter_id"`
	Species     string     `json:"species"`
	PetName     string     `json:"pet_name"`
	Description string     `json:"description"`
	Address     string     `json:"address"`
	PhotoURL    string     `json:"photo_url"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HasLocation reports whether the snapshot carries coordinates.
func (r *Report) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// ValidReportType reports whether t is a known report type.
func ValidReportType(t string) bool {
	return t == ReportTypeLost || t == ReportTypeFound
}
