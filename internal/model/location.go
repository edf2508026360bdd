package model

import (
	"errors"
	"time"
)

// ErrInvalidCoordinates is returned when a latitude/longitude pair is outside
// the valid WGS84 ranges.
var ErrInvalidCoordinates = errors.New("coordinates out of range")

// UserLocation is the single latest known position for a user. Writes
// overwrite; UpdatedAt never moves backwards.
type UserLocation struct {
	UserID         string    `json:"user_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ValidateCoordinates rejects positions outside [-90,90] x [-180,180].
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
