package services

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/repository"
)

// MinWeakTopicSamples is how many attempts a topic needs before it can be called weak.
const MinWeakTopicSamples = 3

// WeakTopicWindow is how many of a topic's latest attempts decide whether it is still weak.
const WeakTopicWindow = 10

const recentAttemptsOnDashboard = 5

type AnalyticsService struct {
	users    UserStore
	attempts AttemptStore
	memory   MistakeMemory
	log      *zap.Logger
}

func NewAnalyticsService(users UserStore, attempts AttemptStore, memory MistakeMemory, log *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		users:    users,
		attempts: attempts,
		memory:   memory,
		log:      log.With(zap.String("component", "analytics")),
	}
}

// SelectWeakTopics keeps topics with enough attempts whose average is below
// passScore, lowest average first.
func SelectWeakTopics(averages []models.WeakTopic, passScore int) []models.WeakTopic {
	weak := []models.WeakTopic{}
	for _, a := range averages {
		if a.Attempts >= MinWeakTopicSamples && a.AverageScore < float64(passScore) {
			weak = append(weak, a)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		if weak[i].AverageScore != weak[j].AverageScore {
			return weak[i].AverageScore < weak[j].AverageScore
		}
		return weak[i].Topic < weak[j].Topic
	})
	return weak
}

func (s *AnalyticsService) WeakTopics(ctx context.Context, user *models.User) ([]models.WeakTopic, error) {
	averages, err := s.attempts.TopicAverages(ctx, user.ID, WeakTopicWindow)
	if err != nil {
		return nil, &StorageError{Op: "load topic averages", Err: err}
	}
	passScore := user.PassScore
	if passScore == 0 {
		passScore = models.DefaultPassScore
	}
	return SelectWeakTopics(averages, passScore), nil
}

func loadUser(ctx context.Context, users UserStore, userID uuid.UUID) (*models.User, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "User not found"}
		}
		return nil, &StorageError{Op: "load user", Err: err}
	}
	return user, nil
}

func (s *AnalyticsService) Dashboard(ctx context.Context, userID uuid.UUID) (*models.Dashboard, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.attempts.Stats(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "load attempt stats", Err: err}
	}

	weak, err := s.WeakTopics(ctx, user)
	if err != nil {
		return nil, err
	}

	recent, err := s.attempts.ListByUser(ctx, userID, recentAttemptsOnDashboard)
	if err != nil {
		return nil, &StorageError{Op: "load recent attempts", Err: err}
	}

	hasHistory, err := s.memory.HasSufficientHistory(ctx, userID)
	if err != nil {
		s.log.Warn("mistake memory unavailable", zap.String("user_id", userID.String()), zap.Error(err))
	}

	return &models.Dashboard{
		TotalQuizzes:     stats.Total,
		AverageScore:     stats.AverageScore,
		QuizzesThisWeek:  stats.ThisWeek,
		PassScore:        user.PassScore,
		WeakTopics:       weak,
		Recent:           Summarize(recent),
		HasUsedTrial:     user.HasUsedTrial,
		PersonalizedPrep: !user.HasUsedTrial && hasHistory,
	}, nil
}

func (s *AnalyticsService) TopicAccuracy(ctx context.Context, userID uuid.UUID) ([]models.TopicAccuracy, error) {
	acc, err := s.attempts.TopicAccuracy(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "load topic accuracy", Err: err}
	}
	return acc, nil
}

func Summarize(attempts []*models.QuizAttempt) []models.AttemptSummary {
	out := make([]models.AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, models.AttemptSummary{
			ID:             a.ID.String(),
			Title:          a.DisplayTitle(),
			Difficulty:     a.Difficulty,
			QuestionType:   a.QuestionType,
			Score:          a.Score,
			TotalQuestions: a.TotalQuestions,
			Personalized:   a.Personalized,
			CreatedAt:      a.CreatedAt,
		})
	}
	return out
}

// ListAttempts returns the user's attempts newest first.
func (s *AnalyticsService) ListAttempts(ctx context.Context, userID uuid.UUID, limit int) ([]models.AttemptSummary, error) {
	attempts, err := s.attempts.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, &StorageError{Op: "list attempts", Err: err}
	}
	return Summarize(attempts), nil
}

// GetAttempt returns the full attempt. Attempts owned by someone else are reported as missing.
func (s *AnalyticsService) GetAttempt(ctx context.Context, userID, attemptID uuid.UUID) (*models.QuizAttempt, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Attempt not found"}
		}
		return nil, &StorageError{Op: "get attempt", Err: err}
	}
	if a.UserID != userID {
		return nil, &NotFoundError{Message: "Attempt not found"}
	}
	return a, nil
}
