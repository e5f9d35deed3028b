package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/middleware"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/services"
)

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Authenticate(ctx context.Context, req models.LoginRequest) (*models.AuthToken, error)
	Verify(ctx context.Context, token string) (uuid.UUID, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, req models.UpdatePreferencesRequest) (*models.User, error)
}

type AuthHandler struct {
	authService authService
	log         *zap.Logger
}

func NewAuthHandler(authService authService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Account created. You can now log in.",
		"user":    user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	token, err := h.authService.Authenticate(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// Verify checks the bearer token without the auth middleware so a client can
// tell whether its stored token is still good.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Missing authorization header", r))
		return
	}

	userID, err := h.authService.Verify(r.Context(), token)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "user_id": userID})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.authService.Logout(r.Context(), userID); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func requestID(r *http.Request) string {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: requestID(r),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: requestID(r),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var (
		validation   *services.ValidationError
		conflict     *services.ConflictError
		notFound     *services.NotFoundError
		unauthorized *services.UnauthorizedError
		forbidden    *services.ForbiddenError
		rateLimited  *services.RateLimitError
		trial        *services.TrialConsumedError
		generation   *services.GenerationError
		storage      *services.StorageError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validation.Fields, r))
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", conflict.Message, r))
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFound.Message, r))
	case errors.As(err, &unauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthorized.Message, r))
	case errors.As(err, &forbidden):
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", forbidden.Message, r))
	case errors.As(err, &rateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", rateLimited.Message, r))
	case errors.As(err, &trial):
		writeJSON(w, http.StatusPaymentRequired, errorResp("TRIAL_CONSUMED", trial.Error(), r))
	case errors.Is(err, services.ErrInsufficientHistory):
		writeJSON(w, http.StatusConflict, errorResp("INSUFFICIENT_HISTORY", "Complete a few quizzes first so we can learn from your mistakes.", r))
	case errors.Is(err, services.ErrNoActiveQuiz):
		writeJSON(w, http.StatusConflict, errorResp("NO_ACTIVE_QUIZ", "There is no quiz in progress", r))
	case errors.Is(err, services.ErrNoPendingSuggestion):
		writeJSON(w, http.StatusConflict, errorResp("NO_PENDING_SUGGESTION", "There is no suggestion to respond to", r))
	case errors.As(err, &generation):
		log.Warn("question generation failed", zap.String("request_id", requestID(r)), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResp("GENERATION_FAILED", "Could not generate a valid quiz. Please try again.", r))
	case errors.As(err, &storage):
		log.Error("storage failure", zap.String("request_id", requestID(r)), zap.String("op", storage.Op), zap.Error(storage.Err))
		writeJSON(w, http.StatusInternalServerError, errorResp("STORAGE_ERROR", "Your data could not be saved. Please try again.", r))
	default:
		log.Error("unhandled error", zap.String("request_id", requestID(r)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
