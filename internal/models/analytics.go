package models

import "time"

type WeakTopic struct {
	Topic        string  `json:"topic"`
	AverageScore float64 `json:"average_score"`
	Attempts     int     `json:"attempts"`
}

type TopicAccuracy struct {
	Topic    string  `json:"topic"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

type AttemptSummary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Difficulty     string    `json:"difficulty"`
	QuestionType   string    `json:"question_type"`
	Score          float64   `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	Personalized   bool      `json:"personalized"`
	CreatedAt      time.Time `json:"created_at"`
}

type Dashboard struct {
	TotalQuizzes     int              `json:"total_quizzes"`
	AverageScore     float64          `json:"average_score"`
	QuizzesThisWeek  int              `json:"quizzes_this_week"`
	PassScore        int              `json:"pass_score"`
	WeakTopics       []WeakTopic      `json:"weak_topics"`
	Recent           []AttemptSummary `json:"recent"`
	HasUsedTrial     bool             `json:"has_used_trial"`
	PersonalizedPrep bool             `json:"personalized_prep_available"`
}

type SuggestionAction string

const (
	SuggestionAccept  SuggestionAction = "accept"
	SuggestionSkip    SuggestionAction = "skip"
	SuggestionDisable SuggestionAction = "disable"
	// SuggestionPractice asks for a standard quiz on the weak topic instead of the personalized one.
	SuggestionPractice SuggestionAction = "practice"
)

// NeedsTopic reports whether the action targets one of the offered topics.
func (a SuggestionAction) NeedsTopic() bool {
	return a == SuggestionAccept || a == SuggestionPractice
}

// Topic holds a TopicLabel, so its limit is both GenerateQuizRequest limits plus the separator.
type SuggestionResponseRequest struct {
	Action SuggestionAction `json:"action" validate:"required,oneof=accept skip disable practice"`
	Topic  string           `json:"topic" validate:"max=203"`
}

type SuggestionOffer struct {
	State      SessionState `json:"state"`
	Candidates []WeakTopic  `json:"candidates"`
	TrialUsed  bool         `json:"trial_used"`
}

type SuggestionOutcome struct {
	State   SessionState `json:"state"`
	Message string       `json:"message,omitempty"`
	Quiz    *QuizView    `json:"quiz,omitempty"`
}
