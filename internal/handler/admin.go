package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pawradar/pawradar/internal/alert"
	"github.com/pawradar/pawradar/internal/dispatch"
	"github.com/pawradar/pawradar/internal/store"
)

// AdminHandler is the operator surface: manual sweeps, forced re-enqueues,
// and queue introspection.
type AdminHandler struct {
	reports   *store.ReportStore
	queue     *store.QueueStore
	enqueuer  *alert.Enqueuer
	scheduler *dispatch.Scheduler
	logger    *slog.Logger
}

func NewAdminHandler(reports *store.ReportStore, queue *store.QueueStore, enqueuer *alert.Enqueuer, scheduler *dispatch.Scheduler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		reports:   reports,
		queue:     queue,
		enqueuer:  enqueuer,
		scheduler: scheduler,
		logger:    logger,
	}
}

type sweepRequest struct {
	BatchLimit      int   `json:"batch_limit"`
	RetryAgeSeconds int64 `json:"retry_age_seconds"`
	RetentionDays   int   `json:"retention_days"`
}

// Sweep handles POST /api/admin/sweep: one dispatch pass plus retention,
// with explicit parameters. An empty body uses the scheduler defaults.
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if r.Body != nil {
		// Tolerate an empty body; defaults apply.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.scheduler.RunSweep(r.Context(),
		req.BatchLimit,
		time.Duration(req.RetryAgeSeconds)*time.Second,
		time.Duration(req.RetentionDays)*24*time.Hour,
	)
	if err != nil {
		h.logger.Error("manual sweep", "error", err)
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ForceEnqueue handles POST /api/admin/reports/{id}/enqueue: manual
// reprocessing of a stored report. Recipients already queued are not
// duplicated.
func (h *AdminHandler) ForceEnqueue(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	report, err := h.reports.Get(id)
	if err != nil {
		h.logger.Error("load report", "report_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "unknown report")
		return
	}

	count, err := h.enqueuer.Enqueue(report)
	if err != nil {
		h.logger.Error("force enqueue", "report_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report_id": id,
		"enqueued":  count,
	})
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats()
	if err != nil {
		h.logger.Error("queue stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
