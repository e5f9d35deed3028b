package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultPassScore = 70

type User struct {
	ID                  uuid.UUID  `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	HasUsedTrial        bool       `json:"has_used_trial"`
	SuggestionsDisabled bool       `json:"suggestions_disabled"`
	PassScore           int        `json:"pass_score"`
	CreatedAt           time.Time  `json:"created_at"`
	LastLoginAt         *time.Time `json:"last_login_at"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        *User  `json:"user,omitempty"`
}

type UpdatePreferencesRequest struct {
	PassScore           *int  `json:"pass_score" validate:"omitempty,min=30,max=90"`
	SuggestionsDisabled *bool `json:"suggestions_disabled"`
}
