package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pawradar/pawradar/internal/auth"
	"github.com/pawradar/pawradar/internal/model"
	"github.com/pawradar/pawradar/internal/store"
)

type LocationHandler struct {
	locations *store.LocationStore
	logger    *slog.Logger
}

func NewLocationHandler(locations *store.LocationStore, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, logger: logger}
}

type upsertLocationRequest struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
}

// Upsert handles PUT /api/location. Updating a position never triggers
// notifications; only report creation does.
func (h *LocationHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req upsertLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	loc, err := h.locations.Upsert(userID, req.Latitude, req.Longitude, req.AccuracyMeters)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCoordinates) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("upsert location", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save location")
		return
	}

	writeJSON(w, http.StatusOK, loc)
}

// Get handles GET /api/location.
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	loc, err := h.locations.Get(userID)
	if err != nil {
		h.logger.Error("get location", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load location")
		return
	}
	if loc == nil {
		writeError(w, http.StatusNotFound, "no location recorded")
		return
	}

	writeJSON(w, http.StatusOK, loc)
}

// Delete handles DELETE /api/location (account removal path).
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	if err := h.locations.Delete(userID); err != nil {
		h.logger.Error("delete location", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete location")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
