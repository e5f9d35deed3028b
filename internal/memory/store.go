// Package memory keeps each user's past mistakes as embedded documents in a
// private on-disk partition and retrieves the ones closest to a topic.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
)

const (
	indexFileName   = "index.json"
	placeholderText = "initial document"
	lockStripes     = 64
	formatVersion   = 1
)

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Document struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic,omitempty"`
	Difficulty   string    `json:"difficulty,omitempty"`
	QuestionType string    `json:"question_type,omitempty"`
	Content      string    `json:"content"`
	Vector       []float32 `json:"vector,omitempty"`
	Placeholder  bool      `json:"placeholder,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Match struct {
	Document
	Score float64 `json:"score"`
}

type indexFile struct {
	Version   int        `json:"version"`
	UserID    uuid.UUID  `json:"user_id"`
	Documents []Document `json:"documents"`
}

type partition struct {
	docs []Document
}

func (p *partition) realCount() int {
	n := 0
	for _, d := range p.docs {
		if !d.Placeholder {
			n++
		}
	}
	return n
}

type Store struct {
	root     string
	embedder Embedder
	cache    *lru.Cache[uuid.UUID, *partition]
	locks    [lockStripes]sync.Mutex
	log      *zap.Logger
}

func NewStore(root string, embedder Embedder, cacheSize int, log *zap.Logger) (*Store, error) {
	if cacheSize < 1 {
		cacheSize = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	cache, err := lru.New[uuid.UUID, *partition](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create partition cache: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create vector store root: %w", err)
	}
	return &Store{
		root:     root,
		embedder: embedder,
		cache:    cache,
		log:      log.With(zap.String("component", "memory")),
	}, nil
}

// MistakeContent renders one incorrect answer as the text that gets embedded.
func MistakeContent(topic string, r models.QuestionResult) string {
	return fmt.Sprintf("Question on %s: %s\nMy incorrect answer: %s\nThe correct answer: %s\nExplanation: %s",
		topic, r.Question, r.UserAnswer, r.CorrectAnswer, r.Explanation)
}

// QueryText is the retrieval query used for a topic.
func QueryText(topic string) string {
	return "Questions and explanations about " + topic
}

// Record embeds every incorrect result and appends it to the user's
// partition. The partition is on disk before Record returns.
func (s *Store) Record(ctx context.Context, userID uuid.UUID, topic, difficulty string, results []models.QuestionResult) (int, error) {
	if userID == uuid.Nil {
		return 0, errors.New("memory: empty user id")
	}

	var texts []string
	var wrong []models.QuestionResult
	for _, r := range results {
		if r.IsCorrect {
			continue
		}
		wrong = append(wrong, r)
		texts = append(texts, MistakeContent(topic, r))
	}
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed mistakes: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embed mistakes: got %d vectors for %d texts", len(vectors), len(texts))
	}

	now := time.Now().UTC()
	docs := make([]Document, len(texts))
	for i := range texts {
		docs[i] = Document{
			ID:           uuid.NewString(),
			Topic:        topic,
			Difficulty:   difficulty,
			QuestionType: wrong[i].QuestionType,
			Content:      texts[i],
			Vector:       vectors[i],
			CreatedAt:    now,
		}
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	p := s.load(userID)
	prev := len(p.docs)
	p.docs = append(p.docs, docs...)
	if err := s.save(userID, p); err != nil {
		p.docs = p.docs[:prev]
		return 0, fmt.Errorf("persist partition: %w", err)
	}

	s.log.Debug("mistakes recorded",
		zap.String("user_id", userID.String()),
		zap.Int("count", len(docs)),
		zap.Int("total", p.realCount()))
	return len(docs), nil
}

// Retrieve returns up to k of the user's documents closest to the topic,
// best match first. The bootstrap placeholder is never returned.
func (s *Store) Retrieve(ctx context.Context, userID uuid.UUID, topic string, k int) ([]Match, error) {
	if k < 1 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu := s.lockFor(userID)
	mu.Lock()
	p := s.load(userID)
	candidates := make([]Document, 0, len(p.docs))
	for _, d := range p.docs {
		if !d.Placeholder {
			candidates = append(candidates, d)
		}
	}
	mu.Unlock()

	if len(candidates) == 0 {
		return nil, nil
	}

	qv, err := s.embedder.Embed(ctx, []string{QueryText(topic)})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qv) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(qv))
	}

	matches := make([]Match, len(candidates))
	for i, d := range candidates {
		matches[i] = Match{Document: d, Score: cosineSimilarity(qv[0], d.Vector)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// HasSufficientHistory reports whether the user has at least one real mistake stored.
func (s *Store) HasSufficientHistory(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := s.Count(ctx, userID)
	return n > 0, err
}

func (s *Store) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()
	return s.load(userID).realCount(), nil
}

func (s *Store) partitionDir(userID uuid.UUID) string {
	return filepath.Join(s.root, "user_"+userID.String())
}

func (s *Store) lockFor(userID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(userID[:])
	return &s.locks[h.Sum32()%lockStripes]
}

// load must be called with the user's stripe lock held.
func (s *Store) load(userID uuid.UUID) *partition {
	if p, ok := s.cache.Get(userID); ok {
		return p
	}

	p := &partition{}
	raw, err := os.ReadFile(filepath.Join(s.partitionDir(userID), indexFileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
		p.docs = []Document{bootstrapDocument()}
	case err != nil:
		s.log.Warn("partition unreadable, starting empty",
			zap.String("user_id", userID.String()), zap.Error(err))
		p.docs = []Document{bootstrapDocument()}
	default:
		var f indexFile
		if err := json.Unmarshal(raw, &f); err != nil {
			s.log.Warn("partition corrupt, starting empty",
				zap.String("user_id", userID.String()), zap.Error(err))
			p.docs = []Document{bootstrapDocument()}
		} else {
			p.docs = f.Documents
			if len(p.docs) == 0 {
				p.docs = []Document{bootstrapDocument()}
			}
		}
	}

	s.cache.Add(userID, p)
	return p
}

func (s *Store) save(userID uuid.UUID, p *partition) error {
	dir := s.partitionDir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(indexFile{Version: formatVersion, UserID: userID, Documents: p.docs})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, indexFileName+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, indexFileName)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func bootstrapDocument() Document {
	return Document{
		ID:          "bootstrap",
		Content:     placeholderText,
		Placeholder: true,
		CreatedAt:   time.Now().UTC(),
	}
}
