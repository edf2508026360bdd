package model

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Preference defaults applied when a user has never configured alerts.
const (
	DefaultRadiusMeters = 1000.0
)

var (
	ErrInvalidRadius     = errors.New("radius must be greater than zero")
	ErrEmptyAlertTypes   = errors.New("alert types must not be empty")
	ErrUnknownAlertType  = errors.New("unknown alert type")
	ErrInvalidQuietHours = errors.New("quiet hours must be HH:MM and set as a pair")
)

// AlertPreference is a user's alert configuration. An empty SpeciesFilter
// means all species.
type AlertPreference struct {
	UserID        string    `json:"user_id"`
	Enabled       bool      `json:"enabled"`
	RadiusMeters  float64   `json:"radius_meters"`
	AlertTypes    []string  `json:"alert_types"`
	SpeciesFilter []string  `json:"species_filter"`
	QuietStart    *string   `json:"quiet_start"`
	QuietEnd      *string   `json:"quiet_end"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultPreference returns the configuration assumed for users who never
// saved one: enabled, 1 km radius, lost reports only, all species.
func DefaultPreference(userID string) AlertPreference {
	return AlertPreference{
		UserID:       userID,
		Enabled:      true,
		RadiusMeters: DefaultRadiusMeters,
		AlertTypes:   []string{ReportTypeLost},
	}
}

// WantsType reports whether the preference subscribes to the given report type.
func (p *AlertPreference) WantsType(reportType string) bool {
	return slices.Contains(p.AlertTypes, reportType)
}

// WantsSpecies reports whether the species passes the filter. An empty filter
// matches everything.
func (p *AlertPreference) WantsSpecies(species string) bool {
	if len(p.SpeciesFilter) == 0 {
		return true
	}
	return slices.Contains(p.SpeciesFilter, species)
}

// InQuietHours reports whether now's wall-clock time falls inside the quiet
// window. Windows where start > end span midnight (e.g. 22:00-06:00).
func (p *AlertPreference) InQuietHours(now time.Time) bool {
	if p.QuietStart == nil || p.QuietEnd == nil {
		return false
	}
	start, err := parseClock(*p.QuietStart)
	if err != nil {
		return false
	}
	end, err := parseClock(*p.QuietEnd)
	if err != nil {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// Validate checks range constraints on a fully-populated preference.
func (p *AlertPreference) Validate() error {
	if p.RadiusMeters <= 0 {
		return ErrInvalidRadius
	}
	if len(p.AlertTypes) == 0 {
		return ErrEmptyAlertTypes
	}
	for _, t := range p.AlertTypes {
		if !ValidReportType(t) {
			return fmt.Errorf("%w: %q", ErrUnknownAlertType, t)
		}
	}
	if (p.QuietStart == nil) != (p.QuietEnd == nil) {
		return ErrInvalidQuietHours
	}
	if p.QuietStart != nil {
		if _, err := parseClock(*p.QuietStart); err != nil {
			return ErrInvalidQuietHours
		}
		if _, err := parseClock(*p.QuietEnd); err != nil {
			return ErrInvalidQuietHours
		}
	}
	return nil
}

// PreferenceUpdate carries a partial update; nil fields are left unchanged.
// SpeciesFilter distinguishes "unchanged" (nil) from "all species" (pointer to
// an empty slice). ClearQuietHours removes the window.
type PreferenceUpdate struct {
	Enabled         *bool     `json:"enabled"`
	RadiusMeters    *float64  `json:"radius_meters"`
	AlertTypes      []string  `json:"alert_types"`
	SpeciesFilter   *[]string `json:"species_filter"`
	QuietStart      *string   `json:"quiet_start"`
	QuietEnd        *string   `json:"quiet_end"`
	ClearQuietHours bool      `json:"clear_quiet_hours"`
}

// Apply merges the update into p. Validation happens on the merged result.
func (u *PreferenceUpdate) Apply(p *AlertPreference) {
	if u.Enabled != nil {
		p.Enabled = *u.Enabled
	}
	if u.RadiusMeters != nil {
		p.RadiusMeters = *u.RadiusMeters
	}
	if u.AlertTypes != nil {
		p.AlertTypes = u.AlertTypes
	}
	if u.SpeciesFilter != nil {
		p.SpeciesFilter = *u.SpeciesFilter
	}
	if u.ClearQuietHours {
		p.QuietStart = nil
		p.QuietEnd = nil
	} else {
		if u.QuietStart != nil {
			p.QuietStart = u.QuietStart
		}
		if u.QuietEnd != nil {
			p.QuietEnd = u.QuietEnd
		}
	}
}

// parseClock converts "HH:MM" to minutes from midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
