package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/middleware"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
)

type UserHandler struct {
	users authService
	log   *zap.Logger
}

func NewUserHandler(users authService, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePreferencesRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.PassScore == nil && req.SuggestionsDisabled == nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Nothing to update", r))
		return
	}

	user, err := h.users.UpdatePreferences(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
