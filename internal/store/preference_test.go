package store

import (
	"errors"
	"testing"

	"github.com/pawradar/pawradar/internal/model"
)

func TestGetOrCreatePersistsDefaults(t *testing.T) {
	db := openTestDB(t)
	ps := NewPreferenceStore(db)

	pref, err := ps.GetOrCreate("user-1")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !pref.Enabled || pref.RadiusMeters != model.DefaultRadiusMeters {
		t.Errorf("unexpected defaults: %+v", pref)
	}

	// The defaults were persisted, not just returned.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM alert_preferences WHERE user_id = 'user-1'").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}

	// Second read returns the same row.
	again, err := ps.GetOrCreate("user-1")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !again.CreatedAt.Equal(pref.CreatedAt) {
		t.Error("second GetOrCreate created a new row")
	}
}

func TestPreferencePartialUpdate(t *testing.T) {
	ps := NewPreferenceStore(openTestDB(t))

	radius := 3000.0
	pref, err := ps.Update("user-1", model.PreferenceUpdate{RadiusMeters: &radius})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if pref.RadiusMeters != 3000 {
		t.Errorf("radius = %v, want 3000", pref.RadiusMeters)
	}
	// Untouched fields keep defaults.
	if !pref.Enabled || !pref.WantsType(model.ReportTypeLost) {
		t.Errorf("defaults lost on partial update: %+v", pref)
	}

	enabled := false
	pref, err = ps.Update("user-1", model.PreferenceUpdate{Enabled: &enabled})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if pref.Enabled {
		t.Error("enabled should be false")
	}
	if pref.RadiusMeters != 3000 {
		t.Errorf("radius regressed to %v", pref.RadiusMeters)
	}
}

func TestPreferenceUpdateValidates(t *testing.T) {
	ps := NewPreferenceStore(openTestDB(t))

	bad := -10.0
	if _, err := ps.Update("user-1", model.PreferenceUpdate{RadiusMeters: &bad}); !errors.Is(err, model.ErrInvalidRadius) {
		t.Errorf("error = %v, want ErrInvalidRadius", err)
	}

	if _, err := ps.Update("user-1", model.PreferenceUpdate{AlertTypes: []string{}}); err == nil {
		t.Error("empty alert types should be rejected")
	}
}

func TestPreferenceQuietHoursRoundTrip(t *testing.T) {
	ps := NewPreferenceStore(openTestDB(t))

	start, end := "22:00", "06:00"
	pref, err := ps.Update("user-1", model.PreferenceUpdate{QuietStart: &start, QuietEnd: &end})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if pref.QuietStart == nil || *pref.QuietStart != "22:00" || pref.QuietEnd == nil || *pref.QuietEnd != "06:00" {
		t.Errorf("quiet hours = %v/%v, want 22:00/06:00", pref.QuietStart, pref.QuietEnd)
	}

	pref, err = ps.Update("user-1", model.PreferenceUpdate{ClearQuietHours: true})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if pref.QuietStart != nil || pref.QuietEnd != nil {
		t.Error("quiet hours should be cleared")
	}
}

func TestPreferenceSpeciesFilter(t *testing.T) {
	ps := NewPreferenceStore(openTestDB(t))

	filter := []string{"dog", "cat"}
	pref, err := ps.Update("user-1", model.PreferenceUpdate{SpeciesFilter: &filter})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !pref.WantsSpecies("dog") || pref.WantsSpecies("bird") {
		t.Errorf("species filter = %v", pref.SpeciesFilter)
	}

	// Setting an empty filter reverts to ALL.
	all := []string{}
	pref, err = ps.Update("user-1", model.PreferenceUpdate{SpeciesFilter: &all})
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if !pref.WantsSpecies("bird") {
		t.Error("empty filter should match everything")
	}
}
