package services

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// QuestionValidationError means the model answered with a question that
// breaks the structural rules. The generator retries these.
type QuestionValidationError struct{ Reason string }

func (e *QuestionValidationError) Error() string { return "invalid question: " + e.Reason }

// GenerationError is returned once every generation attempt has failed.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("question generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StorageError wraps a failed write or read of durable state.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// TrialConsumedError is returned when a user asks for a second personalized quiz.
type TrialConsumedError struct{}

func (e *TrialConsumedError) Error() string {
	return "Your free personalized quiz has already been used. Use the practice action for a standard quiz on this topic."
}

var (
	ErrInsufficientHistory = errors.New("not enough quiz history for a personalized quiz yet")
	ErrNoActiveQuiz        = errors.New("no active quiz")
	ErrNoPendingSuggestion = errors.New("no suggestion is pending")
)
