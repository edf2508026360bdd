package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pawradar/pawradar/internal/alert"
	"github.com/pawradar/pawradar/internal/model"
	"github.com/pawradar/pawradar/internal/store"
)

// EventHandler ingests creation events from the reports subsystem. Delivery
// is at least once; both the snapshot insert and the fan-out are idempotent.
type EventHandler struct {
	reports  *store.ReportStore
	enqueuer *alert.Enqueuer
	logger   *slog.Logger
}

func NewEventHandler(reports *store.ReportStore, enqueuer *alert.Enqueuer, logger *slog.Logger) *EventHandler {
	return &EventHandler{reports: reports, enqueuer: enqueuer, logger: logger}
}

// ReportCreated handles POST /api/events/report-created.
func (h *EventHandler) ReportCreated(w http.ResponseWriter, r *http.Request) {
	var report model.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if report.ID == "" || !model.ValidReportType(report.Type) || report.ReporterID == "" {
		writeError(w, http.StatusBadRequest, "id, type, and reporter_id are required")
		return
	}
	if report.HasLocation() {
		if err := model.ValidateCoordinates(*report.Latitude, *report.Longitude); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if report.Status == "" {
		report.Status = model.ReportStatusActive
	}

	if _, err := h.reports.Insert(&report); err != nil {
		h.logger.Error("store report snapshot", "report_id", report.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store report")
		return
	}

	count, err := h.enqueuer.Enqueue(&report)
	if err != nil {
		h.logger.Error("enqueue alerts", "report_id", report.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue alerts")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"report_id": report.ID,
		"enqueued":  count,
	})
}
