package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/database"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
)

const attemptColumns = `id, user_id, topic, sub_topic, difficulty, question_type, personalized, results, score, correct_count, total_questions, created_at`

type AttemptRepo struct {
	db database.DB
}

func NewAttemptRepo(db database.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Append stores the attempt and one question log per result in a single
// transaction. Either everything is written or nothing is.
func (r *AttemptRepo) Append(ctx context.Context, a *models.QuizAttempt) (uuid.UUID, error) {
	resultsBytes, err := json.Marshal(a.Results)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal results: %w", err)
	}
	if a.Results == nil {
		resultsBytes = []byte("[]")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, mapError(err, "begin attempt")
	}

	id := uuid.New()
	err = tx.QueryRow(ctx, `
		INSERT INTO quiz_attempts (id, user_id, topic, sub_topic, difficulty, question_type, personalized, results, score, correct_count, total_questions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`,
		id, a.UserID, a.Topic, a.SubTopic, a.Difficulty, a.QuestionType, a.Personalized,
		resultsBytes, a.Score, a.CorrectCount, a.TotalQuestions,
	).Scan(&a.CreatedAt)
	if err != nil {
		tx.Rollback(ctx)
		return uuid.Nil, mapError(err, "insert attempt")
	}

	for _, res := range a.Results {
		qType := res.QuestionType
		if qType == "" {
			qType = a.QuestionType
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO question_logs (attempt_id, user_id, topic, sub_topic, difficulty, question_type, is_correct)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, a.UserID, a.Topic, a.SubTopic, a.Difficulty, qType, res.IsCorrect,
		)
		if err != nil {
			tx.Rollback(ctx)
			return uuid.Nil, mapError(err, "insert question log")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, mapError(err, "commit attempt")
	}
	a.ID = id
	return id, nil
}

func scanAttempt(row pgx.Row) (*models.QuizAttempt, error) {
	a := &models.QuizAttempt{}
	var resultsRaw []byte
	err := row.Scan(
		&a.ID, &a.UserID, &a.Topic, &a.SubTopic, &a.Difficulty, &a.QuestionType, &a.Personalized,
		&resultsRaw, &a.Score, &a.CorrectCount, &a.TotalQuestions, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(resultsRaw) > 0 {
		if err := json.Unmarshal(resultsRaw, &a.Results); err != nil {
			return nil, fmt.Errorf("decode results for attempt %s: %w", a.ID, err)
		}
	}
	return a, nil
}

func (r *AttemptRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	a, err := scanAttempt(r.db.QueryRow(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get attempt")
	}
	return a, nil
}

// ListByUser returns the user's attempts newest first. A non-positive limit returns all of them.
func (r *AttemptRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.QuizAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list attempts")
	}
	defer rows.Close()

	attempts := []*models.QuizAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, mapError(err, "scan attempt")
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list attempts")
	}
	return attempts, nil
}

// topicLabelSQL mirrors models.TopicLabel so rows that render to the same label share a group.
const topicLabelSQL = `CASE WHEN sub_topic = '' THEN topic ELSE topic || ' - ' || sub_topic END`

// TopicAverages groups the user's attempts by topic label. With a positive window only the
// newest window attempts of each label count towards its average.
func (r *AttemptRepo) TopicAverages(ctx context.Context, userID uuid.UUID, window int) ([]models.WeakTopic, error) {
	query := `
		SELECT label, AVG(score), COUNT(*)
		FROM (
			SELECT ` + topicLabelSQL + ` AS label, score,
				ROW_NUMBER() OVER (PARTITION BY ` + topicLabelSQL + ` ORDER BY created_at DESC) AS rn
			FROM quiz_attempts
			WHERE user_id = $1
		) recent`
	args := []any{userID}
	if window > 0 {
		query += ` WHERE rn <= $2`
		args = append(args, window)
	}
	query += ` GROUP BY label`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "topic averages")
	}
	defer rows.Close()

	var out []models.WeakTopic
	for rows.Next() {
		var wt models.WeakTopic
		if err := rows.Scan(&wt.Topic, &wt.AverageScore, &wt.Attempts); err != nil {
			return nil, mapError(err, "scan topic average")
		}
		out = append(out, wt)
	}
	return out, mapError(rows.Err(), "topic averages")
}

func (r *AttemptRepo) TopicAccuracy(ctx context.Context, userID uuid.UUID) ([]models.TopicAccuracy, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+topicLabelSQL+` AS label, COUNT(*) FILTER (WHERE is_correct), COUNT(*)
		FROM question_logs
		WHERE user_id = $1
		GROUP BY label
		ORDER BY label`, userID)
	if err != nil {
		return nil, mapError(err, "topic accuracy")
	}
	defer rows.Close()

	out := []models.TopicAccuracy{}
	for rows.Next() {
		var ta models.TopicAccuracy
		if err := rows.Scan(&ta.Topic, &ta.Correct, &ta.Total); err != nil {
			return nil, mapError(err, "scan topic accuracy")
		}
		if ta.Total > 0 {
			ta.Accuracy = float64(ta.Correct) / float64(ta.Total) * 100
		}
		out = append(out, ta)
	}
	return out, mapError(rows.Err(), "topic accuracy")
}

type AttemptStats struct {
	Total        int
	AverageScore float64
	ThisWeek     int
}

func (r *AttemptRepo) Stats(ctx context.Context, userID uuid.UUID) (*AttemptStats, error) {
	s := &AttemptStats{}
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(score), 0),
			COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '7 days')
		FROM quiz_attempts WHERE user_id = $1`, userID,
	).Scan(&s.Total, &s.AverageScore, &s.ThisWeek)
	if err != nil {
		return nil, mapError(err, "attempt stats")
	}
	return s, nil
}
