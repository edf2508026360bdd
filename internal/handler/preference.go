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

type PreferenceHandler struct {
	preferences *store.PreferenceStore
	logger      *slog.Logger
}

func NewPreferenceHandler(preferences *store.PreferenceStore, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{preferences: preferences, logger: logger}
}

// Get handles GET /api/alert-preferences, creating defaults on first read.
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	pref, err := h.preferences.GetOrCreate(userID)
	if err != nil {
		h.logger.Error("get preference", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}

	writeJSON(w, http.StatusOK, pref)
}

// Update handles PUT /api/alert-preferences with a partial body; omitted
// fields keep their current values.
func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var upd model.PreferenceUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	pref, err := h.preferences.Update(userID, upd)
	if err != nil {
		if isValidationErr(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("update preference", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}

	writeJSON(w, http.StatusOK, pref)
}

func isValidationErr(err error) bool {
	return errors.Is(err, model.ErrInvalidRadius) ||
		errors.Is(err, model.ErrEmptyAlertTypes) ||
		errors.Is(err, model.ErrUnknownAlertType) ||
		errors.Is(err, model.ErrInvalidQuietHours)
}
