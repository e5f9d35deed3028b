package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var userCols = []string{"id", "username", "email", "password_hash", "has_used_trial", "suggestions_disabled", "pass_score", "created_at", "last_login_at"}

func TestUserRepo_Create(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "inserted",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), "alice", "alice@example.com", "hash", models.DefaultPassScore).
					WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
			},
		},
		{
			name: "duplicate username",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
			},
			wantErr: ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setup(mock)
			repo := NewUserRepo(mock)

			u := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
			err := repo.Create(context.Background(), u)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, u.ID)
				assert.Equal(t, models.DefaultPassScore, u.PassScore)
				assert.Equal(t, now, u.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_GetByUsername(t *testing.T) {
	id := uuid.New()
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(id, "alice", "alice@example.com", "hash", true, false, 60, now, &now))

		u, err := NewUserRepo(mock).GetByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.True(t, u.HasUsedTrial)
		assert.Equal(t, 60, u.PassScore)
		require.NotNil(t, u.LastLoginAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT`).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

		_, err := NewUserRepo(mock).GetByUsername(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserRepo_ConsumeTrial(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		affected int64
		err      error
		want     bool
		wantErr  bool
	}{
		{name: "first use", affected: 1, want: true},
		{name: "already used", affected: 0, want: false},
		{name: "db down", err: errors.New("conn refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			exp := mock.ExpectExec(`UPDATE users SET has_used_trial = TRUE WHERE id = \$1 AND has_used_trial = FALSE`).WithArgs(id)
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))
			}

			got, err := NewUserRepo(mock).ConsumeTrial(context.Background(), id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_UpdatePreferences(t *testing.T) {
	id := uuid.New()
	now := time.Now()
	score := 80
	disabled := true

	mock := newMock(t)
	mock.ExpectQuery(`UPDATE users SET`).
		WithArgs(id, &score, &disabled).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "alice", "alice@example.com", "hash", false, true, 80, now, (*time.Time)(nil)))

	u, err := NewUserRepo(mock).UpdatePreferences(context.Background(), id,
		models.UpdatePreferencesRequest{PassScore: &score, SuggestionsDisabled: &disabled})
	require.NoError(t, err)
	assert.Equal(t, 80, u.PassScore)
	assert.True(t, u.SuggestionsDisabled)
	assert.Nil(t, u.LastLoginAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil, "x"))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows, "x"), ErrNotFound)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23505"}, "x"), ErrAlreadyExists)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23503"}, "x"), ErrNotFound)
	assert.ErrorIs(t, mapError(context.Canceled, "x"), context.Canceled)

	other := errors.New("boom")
	assert.ErrorIs(t, mapError(other, "x"), other)
}
