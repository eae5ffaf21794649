package models

import "time"

// Session is one successful login. It is the revocation point for its access token.
type Session struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	Token            string    `json:"-"`
	RefreshToken     string    `json:"-"`
	IPAddress        string    `json:"ip_address"`
	UserAgent        string    `json:"user_agent"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// Expired reports whether the access window has closed at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// RefreshExpired reports whether the refresh token can no longer be exchanged.
func (s Session) RefreshExpired(now time.Time) bool {
	return !now.Before(s.RefreshExpiresAt)
}
