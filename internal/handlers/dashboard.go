package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/middleware"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
)

const maxAttemptsPage = 200

type analyticsService interface {
	Dashboard(ctx context.Context, userID uuid.UUID) (*models.Dashboard, error)
	TopicAccuracy(ctx context.Context, userID uuid.UUID) ([]models.TopicAccuracy, error)
	ListAttempts(ctx context.Context, userID uuid.UUID, limit int) ([]models.AttemptSummary, error)
	GetAttempt(ctx context.Context, userID, attemptID uuid.UUID) (*models.QuizAttempt, error)
	Chart(ctx context.Context, userID uuid.UUID, kind string) ([]byte, error)
}

type DashboardHandler struct {
	analytics analyticsService
	log       *zap.Logger
}

func NewDashboardHandler(analytics analyticsService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{analytics: analytics, log: log}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	d, err := h.analytics.Dashboard(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DashboardHandler) Topics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.analytics.TopicAccuracy(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": topics})
}

func (h *DashboardHandler) Chart(w http.ResponseWriter, r *http.Request) {
	png, err := h.analytics.Chart(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "kind"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// ListAttempts returns the caller's attempts, most recent first.
func (h *DashboardHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxAttemptsPage {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"limit": "Must be a number between 1 and " + strconv.Itoa(maxAttemptsPage)}, r))
			return
		}
		limit = n
	}

	attempts, err := h.analytics.ListAttempts(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}

func (h *DashboardHandler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid attempt ID", r))
		return
	}

	attempt, err := h.analytics.GetAttempt(r.Context(), middleware.GetUserID(r.Context()), attemptID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}
