package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
	"github.com/PixelPioneer1807/SmartPrepAI/pkg/validator"
)

const (
	defaultQuizSize      = 5
	personalizedQuizSize = 3
	regenerateQuizSize   = 5
	defaultRAGTopK       = 3
	practiceQuizSize     = 5
)

// Orchestrator drives one user's quiz flow: plain generation, weak-topic
// suggestions, the one-time personalized quiz, submission and retries.
type Orchestrator struct {
	users     UserStore
	attempts  AttemptStore
	sessions  SessionStore
	memory    MistakeMemory
	generator QuestionGenerator
	analytics *AnalyticsService
	progress  ProgressPublisher
	topK      int
	log       *zap.Logger
}

type OrchestratorDeps struct {
	Users     UserStore
	Attempts  AttemptStore
	Sessions  SessionStore
	Memory    MistakeMemory
	Generator QuestionGenerator
	Analytics *AnalyticsService
	Progress  ProgressPublisher
	TopK      int
}

func NewOrchestrator(d OrchestratorDeps, log *zap.Logger) *Orchestrator {
	topK := d.TopK
	if topK < 1 {
		topK = defaultRAGTopK
	}
	return &Orchestrator{
		users:     d.Users,
		attempts:  d.Attempts,
		sessions:  d.Sessions,
		memory:    d.Memory,
		generator: d.Generator,
		analytics: d.Analytics,
		progress:  d.Progress,
		topK:      topK,
		log:       log.With(zap.String("component", "orchestrator")),
	}
}

func (o *Orchestrator) loadSession(ctx context.Context, userID uuid.UUID) (*models.QuizSession, error) {
	s, err := o.sessions.Get(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "load session", Err: err}
	}
	return s, nil
}

func (o *Orchestrator) saveSession(ctx context.Context, s *models.QuizSession) error {
	if err := o.sessions.Save(ctx, s); err != nil {
		return &StorageError{Op: "save session", Err: err}
	}
	return nil
}

func (o *Orchestrator) progressFunc(ctx context.Context, userID uuid.UUID, topic string, state models.SessionState) func(done, total int) {
	if o.progress == nil {
		return nil
	}
	return func(done, total int) {
		o.progress.PublishUpdate(ctx, userID, models.WSMessage{
			Type: "generation_progress",
			Payload: models.GenerationProgress{
				Topic:        topic,
				State:        state,
				Current:      done,
				Total:        total,
				Personalized: state == models.StateRAGGeneration,
				StepName:     fmt.Sprintf("Generated question %d of %d", done, total),
			},
		})
	}
}

// View renders the session for the client. Answers stay hidden until submission.
func View(s *models.QuizSession) *models.QuizView {
	v := &models.QuizView{
		State:        s.State,
		Topic:        s.CurrentTopic,
		SubTopic:     s.CurrentSubTopic,
		Difficulty:   s.Difficulty,
		QuestionType: s.QuestionType,
		Personalized: s.Personalized,
		Submitted:    s.Submitted,
		Questions:    make([]models.QuestionView, len(s.Questions)),
	}
	for i, q := range s.Questions {
		qv := models.QuestionView{Number: i + 1, Type: q.Type, Question: q.Question, Options: q.Options}
		if s.Submitted {
			qv.CorrectAnswer = q.CorrectAnswer
			qv.Explanation = q.Explanation
		}
		v.Questions[i] = qv
	}
	return v
}

func (o *Orchestrator) CurrentQuiz(ctx context.Context, userID uuid.UUID) (*models.QuizView, error) {
	s, err := o.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.Generated {
		return nil, ErrNoActiveQuiz
	}
	return View(s), nil
}

// Suggestions offers weak topics unless the user opted out or is mid-quiz.
func (o *Orchestrator) Suggestions(ctx context.Context, userID uuid.UUID) (*models.SuggestionOffer, error) {
	user, err := loadUser(ctx, o.users, userID)
	if err != nil {
		return nil, err
	}
	s, err := o.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	idle := &models.SuggestionOffer{State: models.StateIdle, Candidates: []models.WeakTopic{}, TrialUsed: user.HasUsedTrial}
	if user.SuggestionsDisabled || s.InProgress() {
		return idle, nil
	}

	weak, err := o.analytics.WeakTopics(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(weak) == 0 {
		return idle, nil
	}

	s.State = models.StateSuggestionOffered
	s.Suggestions = weak
	if err := o.saveSession(ctx, s); err != nil {
		return nil, err
	}

	return &models.SuggestionOffer{State: s.State, Candidates: weak, TrialUsed: user.HasUsedTrial}, nil
}

// StartQuiz runs standard generation. Nothing is stored unless every question was produced.
func (o *Orchestrator) StartQuiz(ctx context.Context, userID uuid.UUID, req models.GenerateQuizRequest) (*models.QuizView, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	req.SubTopic = strings.TrimSpace(req.SubTopic)
	if fields := validator.FieldErrors(req); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if req.NumQuestions == 0 {
		req.NumQuestions = defaultQuizSize
	}

	s, err := o.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	return o.generateStandard(ctx, s, req.Topic, req.SubTopic, req.Difficulty, req.QuestionType, req.NumQuestions)
}

func (o *Orchestrator) generateStandard(ctx context.Context, s *models.QuizSession, topic, subTopic, difficulty, qType string, n int) (*models.QuizView, error) {
	label := models.TopicLabel(topic, subTopic)
	o.log.Info("standard generation",
		zap.String("user_id", s.UserID.String()),
		zap.String("topic", label),
		zap.String("difficulty", difficulty),
		zap.Int("questions", n))

	s.State = models.StateStandardGeneration
	questions, err := o.generator.GenerateQuiz(ctx, GenerateParams{
		Topic:        label,
		Difficulty:   difficulty,
		QuestionType: qType,
	}, n, o.progressFunc(ctx, s.UserID, label, s.State))
	if err != nil {
		return nil, err
	}

	s.ResetQuiz()
	s.CurrentTopic = topic
	s.CurrentSubTopic = subTopic
	s.Difficulty = difficulty
	s.QuestionType = qType
	s.Questions = questions
	s.Generated = true
	s.State = models.StateCompleted
	if err := o.saveSession(ctx, s); err != nil {
		return nil, err
	}
	return View(s), nil
}

func (o *Orchestrator) RespondToSuggestion(ctx context.Context, userID uuid.UUID, req models.SuggestionResponseRequest) (*models.SuggestionOutcome, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	fields := validator.FieldErrors(req)
	if req.Action.NeedsTopic() && req.Topic == "" {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["topic"] = "This field is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	s, err := o.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case models.SuggestionSkip:
		if s.State == models.StateSuggestionOffered || s.State == models.StateBlocked {
			s.State = models.StateIdle
			s.Suggestions = nil
			if err := o.saveSession(ctx, s); err != nil {
				return nil, err
			}
		}
		return &models.SuggestionOutcome{State: models.StateIdle}, nil

	case models.SuggestionDisable:
		disabled := true
		if _, err := o.users.UpdatePreferences(ctx, userID, models.UpdatePreferencesRequest{SuggestionsDisabled: &disabled}); err != nil {
			return nil, &StorageError{Op: "disable suggestions", Err: err}
		}
		if s.State == models.StateSuggestionOffered || s.State == models.StateBlocked {
			s.State = models.StateIdle
		}
		s.Suggestions = nil
		if err := o.saveSession(ctx, s); err != nil {
			return nil, err
		}
		return &models.SuggestionOutcome{State: models.StateIdle, Message: "Suggestions turned off"}, nil

	case models.SuggestionAccept, models.SuggestionPractice:
		if s.State != models.StateSuggestionOffered {
			return nil, ErrNoPendingSuggestion
		}
		if !offered(s.Suggestions, req.Topic) {
			return nil, &ValidationError{Fields: map[string]string{"topic": "Topic was not among the suggestions"}}
		}
		if req.Action == models.SuggestionPractice {
			return o.practice(ctx, s, req.Topic)
		}
		return o.personalize(ctx, s, req.Topic)
	}

	return nil, &ValidationError{Fields: map[string]string{"action": "Unknown action"}}
}

func offered(candidates []models.WeakTopic, topic string) bool {
	for _, c := range candidates {
		if c.Topic == topic {
			return true
		}
	}
	return false
}

// practice is the standard quiz on a weak topic. It never touches the trial,
// so it stays available after the personalized quiz has been used.
func (o *Orchestrator) practice(ctx context.Context, s *models.QuizSession, label string) (*models.SuggestionOutcome, error) {
	topic, subTopic := models.SplitTopicLabel(label)
	view, err := o.generateStandard(ctx, s, topic, subTopic, models.DifficultyEasy, models.QuestionTypeMultipleChoice, practiceQuizSize)
	if err != nil {
		return nil, err
	}
	return &models.SuggestionOutcome{State: view.State, Quiz: view}, nil
}

// personalize is the retrieval-augmented path. The trial is consumed only
// after the quiz has been generated.
func (o *Orchestrator) personalize(ctx context.Context, s *models.QuizSession, label string) (*models.SuggestionOutcome, error) {
	userID := s.UserID
	user, err := loadUser(ctx, o.users, userID)
	if err != nil {
		return nil, err
	}
	if user.HasUsedTrial {
		return nil, &TrialConsumedError{}
	}

	ok, err := o.memory.HasSufficientHistory(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "check mistake history", Err: err}
	}
	if !ok {
		s.State = models.StateBlocked
		if err := o.saveSession(ctx, s); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientHistory
	}

	s.State = models.StateRAGGeneration
	matches, err := o.memory.Retrieve(ctx, userID, label, o.topK)
	if err != nil {
		return nil, &StorageError{Op: "retrieve mistakes", Err: err}
	}
	contextDocs := make([]string, 0, len(matches))
	for _, m := range matches {
		contextDocs = append(contextDocs, m.Content)
	}

	o.log.Info("personalized generation",
		zap.String("user_id", userID.String()),
		zap.String("topic", label),
		zap.Int("context_docs", len(contextDocs)))

	questions, err := o.generator.GenerateQuiz(ctx, GenerateParams{
		Topic:        label,
		Difficulty:   models.DifficultyEasy,
		QuestionType: models.QuestionTypeMultipleChoice,
		Context:      contextDocs,
	}, personalizedQuizSize, o.progressFunc(ctx, userID, label, s.State))
	if err != nil {
		return nil, err
	}

	consumed, err := o.users.ConsumeTrial(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "consume trial", Err: err}
	}
	if !consumed {
		return nil, &TrialConsumedError{}
	}

	topic, subTopic := models.SplitTopicLabel(label)
	s.ResetQuiz()
	s.CurrentTopic = topic
	s.CurrentSubTopic = subTopic
	s.Difficulty = models.DifficultyEasy
	s.QuestionType = models.QuestionTypeMultipleChoice
	s.Questions = questions
	s.Generated = true
	s.Personalized = true
	s.State = models.StateCompleted
	if err := o.saveSession(ctx, s); err != nil {
		return nil, err
	}

	return &models.SuggestionOutcome{State: s.State, Quiz: View(s)}, nil
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Grade compares each answer with its question, ignoring case and surrounding whitespace.
func Grade(questions []models.Question, answers []string) ([]models.QuestionResult, int) {
	results := make([]models.QuestionResult, len(questions))
	correct := 0
	for i, q := range questions {
		answer := ""
		if i < len(answers) {
			answer = strings.TrimSpace(answers[i])
		}
		ok := answer != "" && normalizeAnswer(answer) == normalizeAnswer(q.CorrectAnswer)
		if ok {
			correct++
		}
		results[i] = models.QuestionResult{
			QuestionNumber: i + 1,
			QuestionType:   q.Type,
			Question:       q.Question,
			Options:        q.Options,
			UserAnswer:     answer,
			CorrectAnswer:  q.CorrectAnswer,
			IsCorrect:      ok,
			Explanation:    q.Explanation,
		}
	}
	return results, correct
}

// Submit grades the active quiz, stores the attempt, then records mistakes.
// The session is marked submitted before the attempt is stored so a retried
// submit cannot store it twice. A memory failure does not undo the stored
// attempt; it comes back as a warning.
func (o *Orchestrator) Submit(ctx context.Context, userID uuid.UUID, req models.SubmitQuizRequest) (*models.SubmitResult, error) {
	s, err := o.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.InProgress() {
		return nil, ErrNoActiveQuiz
	}
	if len(req.Answers) != len(s.Questions) {
		return nil, &ValidationError{Fields: map[string]string{
			"answers": fmt.Sprintf("Expected %d answers, got %d", len(s.Questions), len(req.Answers)),
		}}
	}

	results, correct := Grade(s.Questions, req.Answers)
	total := len(results)
	score := 0.0
	if total > 0 {
		score = float64(correct) / float64(total) * 100
	}

	attempt := &models.QuizAttempt{
		UserID:         userID,
		Topic:          s.CurrentTopic,
		SubTopic:       s.CurrentSubTopic,
		Difficulty:     s.Difficulty,
		QuestionType:   s.QuestionType,
		Personalized:   s.Personalized,
		Results:        results,
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: total,
	}
	prevState := s.State
	s.Submitted = true
	s.State = models.StateIdle
	if err := o.saveSession(ctx, s); err != nil {
		return nil, err
	}

	attemptID, err := o.attempts.Append(ctx, attempt)
	if err != nil {
		s.Submitted = false
		s.State = prevState
		if rerr := o.saveSession(ctx, s); rerr != nil {
			o.log.Error("failed to reopen session after store failure", zap.String("user_id", userID.String()), zap.Error(rerr))
		}
		return nil, &StorageError{Op: "store attempt", Err: err}
	}

	s.LastAttemptID = &attemptID
	if err := o.saveSession(ctx, s); err != nil {
		o.log.Warn("failed to save last attempt id", zap.String("user_id", userID.String()), zap.Error(err))
	}

	out := &models.SubmitResult{
		AttemptID:      attemptID,
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: total,
		Results:        results,
	}

	label := models.TopicLabel(s.CurrentTopic, s.CurrentSubTopic)
	saved, err := o.memory.Record(ctx, userID, label, s.Difficulty, results)
	if err != nil {
		o.log.Error("failed to record mistakes",
			zap.String("user_id", userID.String()),
			zap.String("attempt_id", attemptID.String()),
			zap.Error(err))
		out.MemoryWarning = "Your attempt was saved, but your mistakes could not be added to your study memory."
	}
	out.MistakesSaved = saved

	o.log.Info("quiz submitted",
		zap.String("user_id", userID.String()),
		zap.String("attempt_id", attemptID.String()),
		zap.Float64("score", score),
		zap.Int("mistakes_saved", saved))
	return out, nil
}

// Regenerate builds a fresh five-question multiple-choice quiz on the last
// topic, either at the same difficulty or one step harder.
func (o *Orchestrator) Regenerate(ctx context.Context, userID uuid.UUID, req models.RegenerateRequest) (*models.QuizView, error) {
	if fields := validator.FieldErrors(req); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	s, err := o.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.CurrentTopic == "" {
		return nil, ErrNoActiveQuiz
	}

	difficulty := s.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	if req.Mode == models.RegenerateHarder {
		difficulty = models.NextDifficulty(difficulty)
	}

	return o.generateStandard(ctx, s, s.CurrentTopic, s.CurrentSubTopic, difficulty, models.QuestionTypeMultipleChoice, regenerateQuizSize)
}
