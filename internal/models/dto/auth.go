package dto

import (
	"time"

	"github.com/hongminglow/deepsea-be/internal/models"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by both login and refresh.
type TokenResponse struct {
	Token        string            `json:"token"`
	RefreshToken string            `json:"refresh_token"`
	ExpiresAt    time.Time         `json:"expires_at"`
	User         models.PublicUser `json:"user"`
}

// MeResponse is the sanitized actor projection. Permission codes are never exposed.
type MeResponse struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Department *string `json:"department"`
	JobTitle   *string `json:"job_title"`
	IsActive   bool    `json:"is_active"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
