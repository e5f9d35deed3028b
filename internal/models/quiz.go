package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeFillBlank      = "fill_blank"
)

const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// BlankMarker is the placeholder a fill-in-the-blank question must contain exactly once.
const BlankMarker = "___"

// NextDifficulty steps Easy → Medium → Hard and stays at Hard.
func NextDifficulty(d string) string {
	switch d {
	case DifficultyEasy:
		return DifficultyMedium
	case DifficultyMedium, DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

type Question struct {
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type QuestionResult struct {
	QuestionNumber int      `json:"question_number"`
	QuestionType   string   `json:"question_type"`
	Question       string   `json:"question"`
	Options        []string `json:"options,omitempty"`
	UserAnswer     string   `json:"user_answer"`
	CorrectAnswer  string   `json:"correct_answer"`
	IsCorrect      bool     `json:"is_correct"`
	Explanation    string   `json:"explanation"`
}

type QuizAttempt struct {
	ID             uuid.UUID        `json:"id"`
	UserID         uuid.UUID        `json:"user_id"`
	Topic          string           `json:"topic"`
	SubTopic       string           `json:"sub_topic"`
	Difficulty     string           `json:"difficulty"`
	QuestionType   string           `json:"question_type"`
	Personalized   bool             `json:"personalized"`
	Results        []QuestionResult `json:"results"`
	Score          float64          `json:"score"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	CreatedAt      time.Time        `json:"created_at"`
}

// TopicLabel is the key analytics groups attempts by.
func TopicLabel(topic, subTopic string) string {
	if subTopic == "" {
		return topic
	}
	return topic + " - " + subTopic
}

// SplitTopicLabel reverses TopicLabel.
func SplitTopicLabel(label string) (topic, subTopic string) {
	parts := strings.SplitN(label, " - ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return label, ""
}

func (a *QuizAttempt) DisplayTitle() string {
	return TopicLabel(a.Topic, a.SubTopic)
}

type QuestionLog struct {
	AttemptID    uuid.UUID `json:"attempt_id"`
	UserID       uuid.UUID `json:"user_id"`
	Topic        string    `json:"topic"`
	SubTopic     string    `json:"sub_topic"`
	Difficulty   string    `json:"difficulty"`
	QuestionType string    `json:"question_type"`
	IsCorrect    bool      `json:"is_correct"`
	CreatedAt    time.Time `json:"created_at"`
}

type GenerateQuizRequest struct {
	Topic        string `json:"topic" validate:"required,max=100"`
	SubTopic     string `json:"sub_topic" validate:"max=100"`
	Difficulty   string `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
	QuestionType string `json:"question_type" validate:"required,oneof=multiple_choice fill_blank"`
	NumQuestions int    `json:"num_questions" validate:"omitempty,min=1,max=10"`
}

type SubmitQuizRequest struct {
	Answers []string `json:"answers" validate:"required"`
}

const (
	RegenerateSameTopic = "same_topic"
	RegenerateHarder    = "harder"
)

type RegenerateRequest struct {
	Mode string `json:"mode" validate:"required,oneof=same_topic harder"`
}

// QuizView is what a client sees of the active quiz. Correct answers and
// explanations are withheld until the quiz is submitted.
type QuizView struct {
	State        SessionState   `json:"state"`
	Topic        string         `json:"topic"`
	SubTopic     string         `json:"sub_topic"`
	Difficulty   string         `json:"difficulty"`
	QuestionType string         `json:"question_type"`
	Personalized bool           `json:"personalized"`
	Submitted    bool           `json:"submitted"`
	Questions    []QuestionView `json:"questions"`
}

type QuestionView struct {
	Number        int      `json:"number"`
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

type SubmitResult struct {
	AttemptID      uuid.UUID        `json:"attempt_id"`
	Score          float64          `json:"score"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	Results        []QuestionResult `json:"results"`
	MistakesSaved  int              `json:"mistakes_saved"`
	MemoryWarning  string           `json:"memory_warning,omitempty"`
}
