package dispatch

import (
	"fmt"
	"strings"

	"github.com/pawradar/pawradar/internal/model"
)

// ComposeMessage renders the push title and body from an entry's snapshotted
// payload: title keyed by report type, body from pet descriptor, rounded
// distance, and address when known.
func ComposeMessage(entry model.AlertQueueEntry) (title, body string) {
	p := entry.Payload

	switch p.ReportType {
	case model.ReportTypeFound:
		title = "Pet found nearby"
	default:
		title = "Lost pet nearby"
	}

	descriptor := p.PetName
	if descriptor == "" {
		descriptor = "A pet"
	}
	if p.Species != "" {
		descriptor = fmt.Sprintf("%s (%s)", descriptor, p.Species)
	}

	verb := "was reported lost"
	if p.ReportType == model.ReportTypeFound {
		verb = "was found"
	}

	parts := []string{fmt.Sprintf("%s %s %s away", descriptor, verb, formatDistance(entry.DistanceMeters))}
	if p.Address != "" {
		parts = append(parts, fmt.Sprintf("near %s", p.Address))
	}
	return title, strings.Join(parts, " ")
}

// formatDistance rounds to something a human reads at a glance: whole meters
// under a kilometer, tenths of a kilometer above.
func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("~%d m", int(meters+0.5))
	}
	return fmt.Sprintf("~%.1f km", meters/1000)
}
