// Package alert computes who should hear about a report and fans the answer
// out into the durable notification queue.
package alert

import (
	"fmt"
	"time"

	"github.com/pawradar/pawradar/internal/geo"
	"github.com/pawradar/pawradar/internal/model"
	"github.com/pawradar/pawradar/internal/store"
)

// DefaultFreshness is how recent a user's position must be to count as a
// known location. Older positions are treated as absent.
const DefaultFreshness = 24 * time.Hour

// Finder answers the eligibility query: which users are geographically and
// preferentially in range of a point.
type Finder struct {
	locations *store.LocationStore
	freshness time.Duration
	now       func() time.Time
}

// NewFinder creates a Finder. A freshness of zero uses DefaultFreshness.
func NewFinder(locations *store.LocationStore, freshness time.Duration) *Finder {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Finder{
		locations: locations,
		freshness: freshness,
		now:       time.Now,
	}
}

// FindEligible returns every user whose fresh position lies within both the
// hard maxRadius ceiling and their own configured radius, whose alerts are
// enabled, and who is not inside their quiet-hours window. Report-type and
// species filters are applied by the enqueuer against the returned
// preferences. Order is unspecified.
func (f *Finder) FindEligible(lat, lng, maxRadius float64) ([]model.Candidate, error) {
	if err := model.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	now := f.now()
	fresh, err := f.locations.ListFreshWithPreferences(now.Add(-f.freshness))
	if err != nil {
		return nil, fmt.Errorf("find eligible: %w", err)
	}

	var candidates []model.Candidate
	for _, fl := range fresh {
		pref := fl.Preference
		if !pref.Enabled {
			continue
		}
		if pref.InQuietHours(now) {
			continue
		}

		dist := geo.Distance(lat, lng, fl.Location.Latitude, fl.Location.Longitude)
		if dist > maxRadius || dist > pref.RadiusMeters {
			continue
		}

		candidates = append(candidates, model.Candidate{
			UserID:         fl.Location.UserID,
			DistanceMeters: dist,
			Preference:     pref,
		})
	}
	return candidates, nil
}
