package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionState string

const (
	StateIdle               SessionState = "idle"
	StateStandardGeneration SessionState = "standard_generation"
	StateSuggestionOffered  SessionState = "suggestion_offered"
	StateRAGGeneration      SessionState = "rag_generation"
	StateBlocked            SessionState = "blocked"
	StateCompleted          SessionState = "completed"
)

// QuizSession is the per-user interaction state carried between requests.
type QuizSession struct {
	UserID          uuid.UUID    `json:"user_id"`
	State           SessionState `json:"state"`
	CurrentTopic    string       `json:"current_topic"`
	CurrentSubTopic string       `json:"current_sub_topic"`
	Difficulty      string       `json:"difficulty"`
	QuestionType    string       `json:"question_type"`
	Questions       []Question   `json:"questions"`
	Generated       bool         `json:"generated"`
	Submitted       bool         `json:"submitted"`
	Personalized    bool         `json:"personalized"`
	Suggestions     []WeakTopic  `json:"suggestions,omitempty"`
	LastAttemptID   *uuid.UUID   `json:"last_attempt_id,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func NewQuizSession(userID uuid.UUID) *QuizSession {
	return &QuizSession{UserID: userID, State: StateIdle}
}

// InProgress reports whether a generated quiz is waiting for submission.
func (s *QuizSession) InProgress() bool {
	return s.Generated && !s.Submitted
}

// ResetQuiz drops the active quiz and returns the session to idle.
func (s *QuizSession) ResetQuiz() {
	s.Questions = nil
	s.Generated = false
	s.Submitted = false
	s.Personalized = false
	s.Suggestions = nil
	s.State = StateIdle
}
