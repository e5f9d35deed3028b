package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
)

func sessionKey(userID uuid.UUID) string {
	return "session:" + userID.String()
}

// SessionRepo keeps each user's interaction session as one JSON value in Redis.
type SessionRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionRepo(rdb *redis.Client, ttl time.Duration) *SessionRepo {
	return &SessionRepo{rdb: rdb, ttl: ttl}
}

// Get returns the stored session, or a fresh idle one when none exists.
func (r *SessionRepo) Get(ctx context.Context, userID uuid.UUID) (*models.QuizSession, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewQuizSession(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decodeSession(userID, raw), nil
}

func (r *SessionRepo) Save(ctx context.Context, s *models.QuizSession) error {
	s.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := r.rdb.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// decodeSession never fails: an unreadable value is replaced by a fresh session.
func decodeSession(userID uuid.UUID, raw []byte) *models.QuizSession {
	s := &models.QuizSession{}
	if err := json.Unmarshal(raw, s); err != nil || s.UserID != userID {
		return models.NewQuizSession(userID)
	}
	if s.State == "" {
		s.State = models.StateIdle
	}
	return s
}
