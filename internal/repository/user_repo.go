package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/database"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
)

const userColumns = `id, username, email, password_hash, has_used_trial, suggestions_disabled, pass_score, created_at, last_login_at`

type UserRepo struct {
	db database.DB
}

func NewUserRepo(db database.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, pass_score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	user.ID = uuid.New()
	if user.PassScore == 0 {
		user.PassScore = models.DefaultPassScore
	}

	err := r.db.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.PassScore,
	).Scan(&user.CreatedAt)
	return mapError(err, "create user")
}

func (r *UserRepo) scanOne(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.HasUsedTrial,
		&user.SuggestionsDisabled, &user.PassScore, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, mapError(err, "get user")
	}
	return user, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.scanOne(ctx, "username = $1", username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanOne(ctx, "email = $1", email)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.scanOne(ctx, "id = $1", id)
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, "UPDATE users SET last_login_at = NOW() WHERE id = $1", userID)
	return mapError(err, "update last login")
}

// ConsumeTrial flips has_used_trial from false to true. It reports false
// when the trial was already used, so concurrent callers cannot both win.
func (r *UserRepo) ConsumeTrial(ctx context.Context, userID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET has_used_trial = TRUE WHERE id = $1 AND has_used_trial = FALSE", userID)
	if err != nil {
		return false, mapError(err, "consume trial")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepo) UpdatePreferences(ctx context.Context, userID uuid.UUID, req models.UpdatePreferencesRequest) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx, `
		UPDATE users SET
			pass_score = COALESCE($2, pass_score),
			suggestions_disabled = COALESCE($3, suggestions_disabled)
		WHERE id = $1
		RETURNING `+userColumns,
		userID, req.PassScore, req.SuggestionsDisabled,
	).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.HasUsedTrial,
		&user.SuggestionsDisabled, &user.PassScore, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, mapError(err, "update preferences")
	}
	return user, nil
}
