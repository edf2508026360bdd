package alert

import (
	"fmt"
	"log/slog"

	"github.com/pawradar/pawradar/internal/model"
	"github.com/pawradar/pawradar/internal/store"
	ws "github.com/pawradar/pawradar/internal/websocket"
)

// DefaultMaxRadiusMeters is the hard system ceiling on any geofence,
// independent of per-user radii. It bounds the candidate set for one report.
const DefaultMaxRadiusMeters = 10000.0

// Enqueuer fans one report out into queue rows, one per eligible recipient.
type Enqueuer struct {
	finder    *Finder
	queue     *store.QueueStore
	hub       *ws.Hub
	notify    func()
	maxRadius float64
	logger    *slog.Logger
}

// NewEnqueuer creates an Enqueuer. hub and notify may be nil; notify is
// called after at least one row is inserted (the immediate dispatch trigger).
func NewEnqueuer(finder *Finder, queue *store.QueueStore, hub *ws.Hub, notify func(), maxRadius float64, logger *slog.Logger) *Enqueuer {
	if maxRadius <= 0 {
		maxRadius = DefaultMaxRadiusMeters
	}
	return &Enqueuer{
		finder:    finder,
		queue:     queue,
		hub:       hub,
		notify:    notify,
		maxRadius: maxRadius,
		logger:    logger,
	}
}

// Enqueue inserts one queue row per eligible recipient of the report and
// returns the number inserted. Inactive or location-less reports are a no-op.
// Safe to call twice for the same report: the queue's (recipient, report)
// uniqueness makes the second pass insert nothing.
func (e *Enqueuer) Enqueue(report *model.Report) (int, error) {
	if report.Status != model.ReportStatusActive || !report.HasLocation() {
		return 0, nil
	}

	// Snapshot everything the push message will ever need; the report is
	// treated as immutable from here on.
	payload := model.NotificationPayload{
		ReportType:  report.Type,
		PetName:     report.PetName,
		Species:     report.Species,
		Description: report.Description,
		Address:     report.Address,
		PhotoURL:    report.PhotoURL,
		Latitude:    *report.Latitude,
		Longitude:   *report.Longitude,
	}

	candidates, err := e.finder.FindEligible(*report.Latitude, *report.Longitude, e.maxRadius)
	if err != nil {
		return 0, fmt.Errorf("enqueue report %s: %w", report.ID, err)
	}

	inserted := 0
	for _, c := range candidates {
		if c.UserID == report.ReporterID {
			continue
		}
		if !c.Preference.WantsType(report.Type) {
			continue
		}
		if !c.Preference.WantsSpecies(report.Species) {
			continue
		}

		ok, err := e.queue.Insert(c.UserID, report.ID, c.DistanceMeters, payload)
		if err != nil {
			return inserted, fmt.Errorf("enqueue report %s for %s: %w", report.ID, c.UserID, err)
		}
		if ok {
			inserted++
		}
	}

	if inserted > 0 {
		e.logger.Info("alerts enqueued", "report_id", report.ID, "count", inserted)
		if e.hub != nil {
			e.hub.Broadcast(ws.NewMessage("alert", "enqueued", map[string]any{
				"report_id": report.ID,
				"count":     inserted,
			}))
		}
		if e.notify != nil {
			e.notify()
		}
	}

	return inserted, nil
}
