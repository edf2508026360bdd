package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pawradar/pawradar/internal/model"
)

// LocationStore holds the single latest known position per user.
type LocationStore struct {
	db *sql.DB
}

func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

// Upsert inserts or replaces the user's position. updated_at never moves
// backwards, even if a delayed write arrives with an older wall clock.
func (s *LocationStore) Upsert(userID string, lat, lng, accuracy float64) (*model.UserLocation, error) {
	if err := model.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO user_locations (user_id, latitude, longitude, accuracy_meters, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   latitude = excluded.latitude,
		   longitude = excluded.longitude,
		   accuracy_meters = excluded.accuracy_meters,
		   updated_at = MAX(updated_at, excluded.updated_at)`,
		userID, lat, lng, accuracy, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert location: %w", err)
	}

	return s.Get(userID)
}

// Get returns the user's latest position, or nil if none was ever recorded.
func (s *LocationStore) Get(userID string) (*model.UserLocation, error) {
	var loc model.UserLocation
	err := s.db.QueryRow(
		`SELECT user_id, latitude, longitude, accuracy_meters, updated_at
		 FROM user_locations WHERE user_id = ?`, userID,
	).Scan(&loc.UserID, &loc.Latitude, &loc.Longitude, &loc.AccuracyMeters, &loc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &loc, nil
}

// Delete removes the user's position (account removal path).
func (s *LocationStore) Delete(userID string) error {
	_, err := s.db.Exec(`DELETE FROM user_locations WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	return nil
}

// FreshLocation pairs a position with the owner's alert preference. When the
// user never saved a preference, defaults are filled in.
type FreshLocation struct {
	Location   model.UserLocation
	Preference model.AlertPreference
}

// ListFreshWithPreferences returns every position updated at or after the
// given cutoff, joined with its preference row. Stale positions are treated
// as absent by the eligibility query, so they are filtered here.
func (s *LocationStore) ListFreshWithPreferences(since time.Time) ([]FreshLocation, error) {
	rows, err := s.db.Query(
		`SELECT l.user_id, l.latitude, l.longitude, l.accuracy_meters, l.updated_at,
		        p.enabled, p.radius_meters, p.alert_types, p.species_filter,
		        p.quiet_start, p.quiet_end
		 FROM user_locations l
		 LEFT JOIN alert_preferences p ON p.user_id = l.user_id
		 WHERE l.updated_at >= ?`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list fresh locations: %w", err)
	}
	defer rows.Close()

	var out []FreshLocation
	for rows.Next() {
		var fl FreshLocation
		var enabled sql.NullInt64
		var radius sql.NullFloat64
		var alertTypes, speciesFilter sql.NullString
		var quietStart, quietEnd sql.NullString

		if err := rows.Scan(
			&fl.Location.UserID, &fl.Location.Latitude, &fl.Location.Longitude,
			&fl.Location.AccuracyMeters, &fl.Location.UpdatedAt,
			&enabled, &radius, &alertTypes, &speciesFilter, &quietStart, &quietEnd,
		); err != nil {
			return nil, fmt.Errorf("scan fresh location: %w", err)
		}

		if !enabled.Valid {
			// No preference row; assume defaults.
			fl.Preference = model.DefaultPreference(fl.Location.UserID)
		} else {
			fl.Preference = model.AlertPreference{
				UserID:        fl.Location.UserID,
				Enabled:       enabled.Int64 != 0,
				RadiusMeters:  radius.Float64,
				AlertTypes:    splitCSV(alertTypes.String),
				SpeciesFilter: splitCSV(speciesFilter.String),
			}
			if quietStart.Valid {
				fl.Preference.QuietStart = &quietStart.String
			}
			if quietEnd.Valid {
				fl.Preference.QuietEnd = &quietEnd.String
			}
		}
		out = append(out, fl)
	}
	return out, rows.Err()
}
