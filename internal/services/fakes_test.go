package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/memory"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/repository"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/retry"
)

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.User
	fails error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*models.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails != nil {
		return f.fails
	}
	for _, existing := range f.byID {
		if existing.Username == u.Username || existing.Email == u.Email {
			return repository.ErrAlreadyExists
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Username == username })
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (f *fakeUsers) ConsumeTrial(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.HasUsedTrial {
		return false, nil
	}
	u.HasUsedTrial = true
	return true, nil
}

func (f *fakeUsers) UpdatePreferences(_ context.Context, id uuid.UUID, req models.UpdatePreferencesRequest) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if req.PassScore != nil {
		u.PassScore = *req.PassScore
	}
	if req.SuggestionsDisabled != nil {
		u.SuggestionsDisabled = *req.SuggestionsDisabled
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) add(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", PassScore: models.DefaultPassScore}
	require.NoError(t, f.Create(context.Background(), u))
	return u
}

type fakeAttempts struct {
	mu       sync.Mutex
	attempts []*models.QuizAttempt
	fails    error
}

func (f *fakeAttempts) Append(_ context.Context, a *models.QuizAttempt) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails != nil {
		return uuid.Nil, f.fails
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	f.attempts = append(f.attempts, &cp)
	return a.ID, nil
}

func (f *fakeAttempts) GetByID(_ context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAttempts) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*models.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.QuizAttempt{}
	for i := len(f.attempts) - 1; i >= 0; i-- {
		if f.attempts[i].UserID == userID {
			out = append(out, f.attempts[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// TopicAverages walks newest first so a positive window keeps the latest attempts per label.
func (f *fakeAttempts) TopicAverages(_ context.Context, userID uuid.UUID, window int) ([]models.WeakTopic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sums := map[string]float64{}
	counts := map[string]int{}
	var order []string
	for i := len(f.attempts) - 1; i >= 0; i-- {
		a := f.attempts[i]
		if a.UserID != userID {
			continue
		}
		label := a.DisplayTitle()
		if window > 0 && counts[label] == window {
			continue
		}
		if counts[label] == 0 {
			order = append(order, label)
		}
		sums[label] += a.Score
		counts[label]++
	}
	out := make([]models.WeakTopic, 0, len(order))
	for _, l := range order {
		out = append(out, models.WeakTopic{Topic: l, AverageScore: sums[l] / float64(counts[l]), Attempts: counts[l]})
	}
	return out, nil
}

func (f *fakeAttempts) TopicAccuracy(context.Context, uuid.UUID) ([]models.TopicAccuracy, error) {
	return []models.TopicAccuracy{}, nil
}

func (f *fakeAttempts) Stats(ctx context.Context, userID uuid.UUID) (*repository.AttemptStats, error) {
	list, _ := f.ListByUser(ctx, userID, 0)
	s := &repository.AttemptStats{Total: len(list), ThisWeek: len(list)}
	for _, a := range list {
		s.AverageScore += a.Score
	}
	if len(list) > 0 {
		s.AverageScore /= float64(len(list))
	}
	return s, nil
}

// seed stores n attempts on topic with the given score.
func (f *fakeAttempts) seed(userID uuid.UUID, topic string, score float64, n int) {
	for i := 0; i < n; i++ {
		f.Append(context.Background(), &models.QuizAttempt{UserID: userID, Topic: topic, Score: score, Difficulty: models.DifficultyMedium})
	}
}

type fakeSessions struct {
	mu    sync.Mutex
	data  map[uuid.UUID][]byte
	saves int
	// failSaves makes the next failSaves calls to Save fail.
	failSaves int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{data: map[uuid.UUID][]byte{}}
}

func (f *fakeSessions) Get(_ context.Context, userID uuid.UUID) (*models.QuizSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[userID]
	if !ok {
		return models.NewQuizSession(userID), nil
	}
	s := &models.QuizSession{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (f *fakeSessions) Save(_ context.Context, s *models.QuizSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSaves > 0 {
		f.failSaves--
		return errors.New("redis unavailable")
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	f.data[s.UserID] = raw
	f.saves++
	return nil
}

func (f *fakeSessions) Clear(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, userID)
	return nil
}

// letterEmbedder embeds text as its letter histogram.
type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 26)
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		out[i] = v
	}
	return out, nil
}

func newTestMemory(t *testing.T) *memory.Store {
	t.Helper()
	m, err := memory.NewStore(t.TempDir(), letterEmbedder{}, 16, zap.NewNop())
	require.NoError(t, err)
	return m
}

type brokenMemory struct {
	*memory.Store
}

func (b brokenMemory) Record(context.Context, uuid.UUID, string, string, []models.QuestionResult) (int, error) {
	return 0, errors.New("disk full")
}

const validMCQ = `{"question":"Which structure is LIFO?","options":["Stack","Queue","Heap","Tree"],"correct_answer":"Stack","explanation":"A stack pops the most recently pushed item."}`
const validFill = `{"question":"A ___ is last-in first-out.","answer":"stack","explanation":"Stacks pop the newest item."}`

// scriptedLLM returns replies in order, then repeats the last one.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if len(s.replies) == 0 {
		if strings.Contains(prompt, "fill-in-the-blank") {
			return validFill, nil
		}
		return validMCQ, nil
	}
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i], nil
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.WSMessage
}

func (p *recordingPublisher) PublishUpdate(_ context.Context, _ uuid.UUID, msg models.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
}

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}
