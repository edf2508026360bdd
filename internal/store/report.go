package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pawradar/pawradar/internal/model"
)

// ReportStore persists report snapshots taken at creation-event time. The
// creation event is delivered at least once, so Insert is idempotent.
type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// Insert stores the snapshot. Returns false if the report was already
// recorded (duplicate event delivery).
func (s *ReportStore) Insert(r *model.Report) (bool, error) {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.db.Exec(
		`INSERT INTO reports (id, type, reporter_id, species, pet_name, description, address, photo_url, latitude, longitude, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		r.ID, r.Type, r.ReporterID, r.Species, r.PetName, r.Description,
		r.Address, r.PhotoURL, r.Latitude, r.Longitude, r.Status, createdAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert report: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert report rows affected: %w", err)
	}
	return n > 0, nil
}

// Get returns the snapshot for a report id, or nil if unknown.
func (s *ReportStore) Get(id string) (*model.Report, error) {
	var r model.Report
	var lat, lng sql.NullFloat64

	err := s.db.QueryRow(
		`SELECT id, type, reporter_id, species, pet_name, description, address, photo_url, latitude, longitude, status, created_at
		 FROM reports WHERE id = ?`, id,
	).Scan(&r.ID, &r.Type, &r.ReporterID, &r.Species, &r.PetName, &r.Description,
		&r.Address, &r.PhotoURL, &lat, &lng, &r.Status, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	if lat.Valid {
		r.Latitude = &lat.Float64
	}
	if lng.Valid {
		r.Longitude = &lng.Float64
	}
	return &r, nil
}
