package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/memory"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/repository"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
	ConsumeTrial(ctx context.Context, userID uuid.UUID) (bool, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, req models.UpdatePreferencesRequest) (*models.User, error)
}

type AttemptStore interface {
	Append(ctx context.Context, a *models.QuizAttempt) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.QuizAttempt, error)
	// TopicAverages aggregates scores per topic label. A positive window keeps only the
	// newest window attempts of each label.
	TopicAverages(ctx context.Context, userID uuid.UUID, window int) ([]models.WeakTopic, error)
	TopicAccuracy(ctx context.Context, userID uuid.UUID) ([]models.TopicAccuracy, error)
	Stats(ctx context.Context, userID uuid.UUID) (*repository.AttemptStats, error)
}

type SessionStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.QuizSession, error)
	Save(ctx context.Context, s *models.QuizSession) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type MistakeMemory interface {
	Record(ctx context.Context, userID uuid.UUID, topic, difficulty string, results []models.QuestionResult) (int, error)
	Retrieve(ctx context.Context, userID uuid.UUID, topic string, k int) ([]memory.Match, error)
	HasSufficientHistory(ctx context.Context, userID uuid.UUID) (bool, error)
}

// TokenService issues and verifies session tokens.
type TokenService interface {
	GenerateAccessToken(userID uuid.UUID) (string, error)
	ParseToken(token string) (uuid.UUID, error)
}

type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type ProgressPublisher interface {
	PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

type QuestionGenerator interface {
	GenerateQuiz(ctx context.Context, p GenerateParams, n int, onProgress func(done, total int)) ([]models.Question, error)
}
