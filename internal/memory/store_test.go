package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
)

var keywords = []string{"python", "chemistry", "history"}

// keywordEmbedder maps text onto keyword counts plus a constant bias dimension.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		v := make([]float32, len(keywords)+1)
		for j, kw := range keywords {
			v[j] = float32(strings.Count(lower, kw))
		}
		v[len(keywords)] = 0.1
		out[i] = v
	}
	return out, nil
}

func newTestStore(t *testing.T, emb Embedder, cacheSize int) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewStore(root, emb, cacheSize, zap.NewNop())
	require.NoError(t, err)
	return s, root
}

func wrongResult(q string) models.QuestionResult {
	return models.QuestionResult{
		QuestionType:  models.QuestionTypeMultipleChoice,
		Question:      q,
		UserAnswer:    "B",
		CorrectAnswer: "A",
		Explanation:   "because",
	}
}

func TestMistakeContent(t *testing.T) {
	got := MistakeContent("Python", models.QuestionResult{
		Question: "What is a list?", UserAnswer: "A tuple", CorrectAnswer: "A mutable sequence", Explanation: "Lists can change.",
	})
	assert.Equal(t, "Question on Python: What is a list?\nMy incorrect answer: A tuple\nThe correct answer: A mutable sequence\nExplanation: Lists can change.", got)
	assert.Equal(t, "Questions and explanations about Python", QueryText("Python"))
}

func TestRecord_OnlyIncorrectResults(t *testing.T) {
	emb := &keywordEmbedder{}
	s, root := newTestStore(t, emb, 8)
	user := uuid.New()

	correct := wrongResult("python ok")
	correct.IsCorrect = true
	n, err := s.Record(context.Background(), user, "Python", models.DifficultyEasy,
		[]models.QuestionResult{wrongResult("python decorators"), correct, wrongResult("python generators")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := s.Count(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = os.Stat(filepath.Join(root, "user_"+user.String(), "index.json"))
	assert.NoError(t, err)
}

func TestRecord_AllCorrectSkipsEmbedding(t *testing.T) {
	emb := &keywordEmbedder{}
	s, root := newTestStore(t, emb, 8)
	user := uuid.New()

	r := wrongResult("q")
	r.IsCorrect = true
	n, err := s.Record(context.Background(), user, "Python", models.DifficultyEasy, []models.QuestionResult{r})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, emb.calls)

	_, err = os.Stat(filepath.Join(root, "user_"+user.String()))
	assert.True(t, os.IsNotExist(err))
}

func TestRecord_EmbedFailureLeavesPartitionUntouched(t *testing.T) {
	emb := &keywordEmbedder{err: errors.New("quota")}
	s, _ := newTestStore(t, emb, 8)
	user := uuid.New()

	_, err := s.Record(context.Background(), user, "Python", models.DifficultyEasy, []models.QuestionResult{wrongResult("q")})
	require.Error(t, err)

	ok, err := s.HasSufficientHistory(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecord_RejectsNilUser(t *testing.T) {
	s, _ := newTestStore(t, &keywordEmbedder{}, 8)
	_, err := s.Record(context.Background(), uuid.Nil, "Python", models.DifficultyEasy, []models.QuestionResult{wrongResult("q")})
	assert.Error(t, err)
}

func TestHasSufficientHistory_FreshPartition(t *testing.T) {
	s, _ := newTestStore(t, &keywordEmbedder{}, 8)
	ok, err := s.HasSufficientHistory(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetrieve_RanksByTopic(t *testing.T) {
	emb := &keywordEmbedder{}
	s, _ := newTestStore(t, emb, 8)
	user := uuid.New()
	ctx := context.Background()

	_, err := s.Record(ctx, user, "Chemistry", models.DifficultyEasy, []models.QuestionResult{wrongResult("chemistry bonds")})
	require.NoError(t, err)
	_, err = s.Record(ctx, user, "Python", models.DifficultyEasy, []models.QuestionResult{wrongResult("python closures")})
	require.NoError(t, err)
	_, err = s.Record(ctx, user, "History", models.DifficultyEasy, []models.QuestionResult{wrongResult("history dates")})
	require.NoError(t, err)

	matches, err := s.Retrieve(ctx, user, "Python", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Python", matches[0].Topic)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	for _, m := range matches {
		assert.False(t, m.Placeholder)
	}
}

func TestRetrieve_EmptyPartitionDoesNotEmbed(t *testing.T) {
	emb := &keywordEmbedder{}
	s, _ := newTestStore(t, emb, 8)

	matches, err := s.Retrieve(context.Background(), uuid.New(), "Python", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Zero(t, emb.calls)
}

func TestRetrieve_FewerThanK(t *testing.T) {
	s, _ := newTestStore(t, &keywordEmbedder{}, 8)
	user := uuid.New()
	_, err := s.Record(context.Background(), user, "Python", models.DifficultyEasy, []models.QuestionResult{wrongResult("python")})
	require.NoError(t, err)

	matches, err := s.Retrieve(context.Background(), user, "Python", 3)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestPartitionsAreIsolated(t *testing.T) {
	s, _ := newTestStore(t, &keywordEmbedder{}, 8)
	alice, bob := uuid.New(), uuid.New()
	_, err := s.Record(context.Background(), alice, "Python", models.DifficultyEasy, []models.QuestionResult{wrongResult("python")})
	require.NoError(t, err)

	matches, err := s.Retrieve(context.Background(), bob, "Python", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPartitionSurvivesEvictionAndRestart(t *testing.T) {
	emb := &keywordEmbedder{}
	s, root := newTestStore(t, emb, 1)
	alice, bob := uuid.New(), uuid.New()
	ctx := context.Background()

	_, err := s.Record(ctx, alice, "Python", models.DifficultyEasy, []models.QuestionResult{wrongResult("python a"), wrongResult("python b")})
	require.NoError(t, err)
	// bob's load evicts alice from the single-slot cache
	_, err = s.Record(ctx, bob, "History", models.DifficultyEasy, []models.QuestionResult{wrongResult("history")})
	require.NoError(t, err)

	count, err := s.Count(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	reopened, err := NewStore(root, emb, 4, zap.NewNop())
	require.NoError(t, err)
	count, err = reopened.Count(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCorruptPartitionDegradesToEmpty(t *testing.T) {
	emb := &keywordEmbedder{}
	s, root := newTestStore(t, emb, 8)
	user := uuid.New()

	dir := filepath.Join(root, "user_"+user.String())
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0o644))

	ok, err := s.HasSufficientHistory(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Record(context.Background(), user, "Python", models.DifficultyEasy, []models.QuestionResult{wrongResult("python")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConcurrentRecordsForSameUser(t *testing.T) {
	s, _ := newTestStore(t, &keywordEmbedder{}, 8)
	user := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Record(context.Background(), user, "Python", models.DifficultyEasy, []models.QuestionResult{wrongResult("python")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := s.Count(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity(nil, []float32{1}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
