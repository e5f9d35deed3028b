package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/middleware"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
)

type quizFlow interface {
	StartQuiz(ctx context.Context, userID uuid.UUID, req models.GenerateQuizRequest) (*models.QuizView, error)
	CurrentQuiz(ctx context.Context, userID uuid.UUID) (*models.QuizView, error)
	Submit(ctx context.Context, userID uuid.UUID, req models.SubmitQuizRequest) (*models.SubmitResult, error)
	Regenerate(ctx context.Context, userID uuid.UUID, req models.RegenerateRequest) (*models.QuizView, error)
	Suggestions(ctx context.Context, userID uuid.UUID) (*models.SuggestionOffer, error)
	RespondToSuggestion(ctx context.Context, userID uuid.UUID, req models.SuggestionResponseRequest) (*models.SuggestionOutcome, error)
}

type QuizHandler struct {
	flow quizFlow
	log  *zap.Logger
}

func NewQuizHandler(flow quizFlow, log *zap.Logger) *QuizHandler {
	return &QuizHandler{flow: flow, log: log}
}

func (h *QuizHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	quiz, err := h.flow.StartQuiz(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *QuizHandler) Current(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.flow.CurrentQuiz(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	result, err := h.flow.Submit(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *QuizHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	var req models.RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	quiz, err := h.flow.Regenerate(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *QuizHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	offer, err := h.flow.Suggestions(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (h *QuizHandler) RespondToSuggestion(w http.ResponseWriter, r *http.Request) {
	var req models.SuggestionResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	outcome, err := h.flow.RespondToSuggestion(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	status := http.StatusOK
	if outcome.Quiz != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, outcome)
}
