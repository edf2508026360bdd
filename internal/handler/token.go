package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pawradar/pawradar/internal/auth"
	"github.com/pawradar/pawradar/internal/model"
	"github.com/pawradar/pawradar/internal/push"
	"github.com/pawradar/pawradar/internal/store"
)

type TokenHandler struct {
	tokens *store.TokenStore
	web    *push.WebSender
	logger *slog.Logger
}

func NewTokenHandler(tokens *store.TokenStore, web *push.WebSender, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, web: web, logger: logger}
}

type registerTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// Register handles POST /api/push/tokens.
func (h *TokenHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Token == "" || !model.ValidPlatform(req.Platform) {
		writeError(w, http.StatusBadRequest, "token and a valid platform are required")
		return
	}

	token, err := h.tokens.Register(userID, req.Token, req.Platform)
	if err != nil {
		h.logger.Error("register push token", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register token")
		return
	}

	writeJSON(w, http.StatusCreated, token)
}

// Unregister handles DELETE /api/push/tokens.
func (h *TokenHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.tokens.DeleteByToken(req.Token); err != nil {
		h.logger.Error("unregister push token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VAPIDKey handles GET /api/push/vapid-key for web clients subscribing.
func (h *TokenHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.web == nil || !h.web.Configured() {
		writeError(w, http.StatusNotFound, "web push not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.web.VAPIDPublicKey()})
}
