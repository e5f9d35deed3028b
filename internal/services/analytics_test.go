package services

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
)

func TestSelectWeakTopics(t *testing.T) {
	averages := []models.WeakTopic{
		{Topic: "T", AverageScore: 40, Attempts: 3},
		{Topic: "U few attempts", AverageScore: 10, Attempts: 2},
		{Topic: "V above pass", AverageScore: 85, Attempts: 5},
		{Topic: "W weakest", AverageScore: 20, Attempts: 4},
		{Topic: "X at pass", AverageScore: 70, Attempts: 3},
	}

	weak := SelectWeakTopics(averages, 70)
	require.Len(t, weak, 2)
	assert.Equal(t, "W weakest", weak[0].Topic)
	assert.Equal(t, "T", weak[1].Topic)

	assert.Empty(t, SelectWeakTopics(averages, 30))
	assert.NotNil(t, SelectWeakTopics(nil, 70))
}

func newTestAnalytics(t *testing.T, users *fakeUsers, attempts *fakeAttempts) *AnalyticsService {
	return NewAnalyticsService(users, attempts, newTestMemory(t), zap.NewNop())
}

func TestAnalyticsService_Dashboard(t *testing.T) {
	users := newFakeUsers()
	attempts := &fakeAttempts{}
	u := users.add(t, "alice")
	attempts.seed(u.ID, "DSA", 40, 3)
	attempts.seed(u.ID, "OOPs", 90, 4)

	d, err := newTestAnalytics(t, users, attempts).Dashboard(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, d.TotalQuizzes)
	assert.Equal(t, 70, d.PassScore)
	require.Len(t, d.WeakTopics, 1)
	assert.Equal(t, "DSA", d.WeakTopics[0].Topic)
	assert.Len(t, d.Recent, 5)
	assert.False(t, d.PersonalizedPrep)
}

func TestAnalyticsService_WeakTopicsUseRecentAttempts(t *testing.T) {
	users := newFakeUsers()
	attempts := &fakeAttempts{}
	u := users.add(t, "alice")
	attempts.seed(u.ID, "DSA", 20, 3)
	attempts.seed(u.ID, "DSA", 95, WeakTopicWindow)
	attempts.seed(u.ID, "OOPs", 90, 3)
	attempts.seed(u.ID, "OOPs", 30, 4)

	weak, err := newTestAnalytics(t, users, attempts).WeakTopics(context.Background(), u)
	require.NoError(t, err)
	require.Len(t, weak, 1)
	assert.Equal(t, "OOPs", weak[0].Topic)
	assert.Equal(t, 7, weak[0].Attempts)
}

func TestAnalyticsService_WeakTopicsMergeEqualLabels(t *testing.T) {
	users := newFakeUsers()
	attempts := &fakeAttempts{}
	u := users.add(t, "alice")
	attempts.seed(u.ID, "C - Pointers", 30, 2)
	_, err := attempts.Append(context.Background(), &models.QuizAttempt{UserID: u.ID, Topic: "C", SubTopic: "Pointers", Score: 30})
	require.NoError(t, err)

	weak, err := newTestAnalytics(t, users, attempts).WeakTopics(context.Background(), u)
	require.NoError(t, err)
	require.Len(t, weak, 1)
	assert.Equal(t, "C - Pointers", weak[0].Topic)
	assert.Equal(t, MinWeakTopicSamples, weak[0].Attempts)
}

func TestAnalyticsService_GetAttemptOwnership(t *testing.T) {
	users := newFakeUsers()
	attempts := &fakeAttempts{}
	alice, bob := users.add(t, "alice"), users.add(t, "bob")
	attempts.seed(alice.ID, "DSA", 50, 1)

	svc := newTestAnalytics(t, users, attempts)
	id := attempts.attempts[0].ID

	a, err := svc.GetAttempt(context.Background(), alice.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "DSA", a.Topic)

	_, err = svc.GetAttempt(context.Background(), bob.ID, id)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))

	_, err = svc.GetAttempt(context.Background(), alice.ID, uuid.New())
	assert.True(t, errors.As(err, &nf))
}

func TestCharts_RenderPNG(t *testing.T) {
	users := newFakeUsers()
	attempts := &fakeAttempts{}
	u := users.add(t, "alice")
	attempts.seed(u.ID, "DSA", 40, 2)
	attempts.seed(u.ID, "Python - Decorators", 95, 1)
	svc := newTestAnalytics(t, users, attempts)

	for _, kind := range []string{ChartPerformance, ChartTopics} {
		t.Run(kind, func(t *testing.T) {
			data, err := svc.Chart(context.Background(), u.ID, kind)
			require.NoError(t, err)
			img, err := png.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, chartWidth, img.Bounds().Dx())
			assert.Equal(t, chartHeight, img.Bounds().Dy())
		})
	}

	_, err := svc.Chart(context.Background(), u.ID, "pie")
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestCharts_EmptyHistory(t *testing.T) {
	data, err := RenderPerformanceChart(nil, 70)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	data, err = RenderTopicChart(nil, 70)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestTruncateLabel(t *testing.T) {
	assert.Equal(t, "DSA", truncateLabel("DSA", 10))
	assert.Equal(t, "Mach…", truncateLabel("Machine Learning", 5))
}
