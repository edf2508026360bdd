package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pawradar/pawradar/internal/model"
)

// PreferenceStore holds each user's alert configuration. Rows are created
// lazily with defaults the first time a preference is read or written.
type PreferenceStore struct {
	db *sql.DB
}

func NewPreferenceStore(db *sql.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// GetOrCreate returns the user's preference, persisting defaults if the user
// never configured one.
func (s *PreferenceStore) GetOrCreate(userID string) (*model.AlertPreference, error) {
	pref, err := s.get(userID)
	if err != nil {
		return nil, err
	}
	if pref != nil {
		return pref, nil
	}

	def := model.DefaultPreference(userID)
	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO alert_preferences (user_id, enabled, radius_meters, alert_types, species_filter, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, boolToInt(def.Enabled), def.RadiusMeters,
		joinCSV(def.AlertTypes), joinCSV(def.SpeciesFilter), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create default preference: %w", err)
	}

	return s.get(userID)
}

// Update applies a partial update, creating the row with defaults first if
// absent. The merged result is validated before it is written.
func (s *PreferenceStore) Update(userID string, upd model.PreferenceUpdate) (*model.AlertPreference, error) {
	pref, err := s.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	upd.Apply(pref)
	if err := pref.Validate(); err != nil {
		return nil, err
	}

	var quietStart, quietEnd any
	if pref.QuietStart != nil {
		quietStart = *pref.QuietStart
	}
	if pref.QuietEnd != nil {
		quietEnd = *pref.QuietEnd
	}

	_, err = s.db.Exec(
		`UPDATE alert_preferences
		 SET enabled = ?, radius_meters = ?, alert_types = ?, species_filter = ?,
		     quiet_start = ?, quiet_end = ?, updated_at = ?
		 WHERE user_id = ?`,
		boolToInt(pref.Enabled), pref.RadiusMeters, joinCSV(pref.AlertTypes),
		joinCSV(pref.SpeciesFilter), quietStart, quietEnd, time.Now().UTC(), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update preference: %w", err)
	}

	return s.get(userID)
}

func (s *PreferenceStore) get(userID string) (*model.AlertPreference, error) {
	var pref model.AlertPreference
	var enabledInt int
	var alertTypes, speciesFilter string
	var quietStart, quietEnd sql.NullString

	err := s.db.QueryRow(
		`SELECT user_id, enabled, radius_meters, alert_types, species_filter,
		        quiet_start, quiet_end, created_at, updated_at
		 FROM alert_preferences WHERE user_id = ?`, userID,
	).Scan(&pref.UserID, &enabledInt, &pref.RadiusMeters, &alertTypes, &speciesFilter,
		&quietStart, &quietEnd, &pref.CreatedAt, &pref.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference: %w", err)
	}

	pref.Enabled = enabledInt != 0
	pref.AlertTypes = splitCSV(alertTypes)
	pref.SpeciesFilter = splitCSV(speciesFilter)
	if quietStart.Valid {
		pref.QuietStart = &quietStart.String
	}
	if quietEnd.Valid {
		pref.QuietEnd = &quietEnd.String
	}
	return &pref, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// joinCSV and splitCSV map string sets to the TEXT columns that hold them.
// An empty set round-trips as the empty string.
func joinCSV(items []string) string {
	return strings.Join(items, ",")
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
