package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any access token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// refreshTokenBytes is the amount of randomness behind each refresh token.
const refreshTokenBytes = 64

// Claims is the identity embedded in an access token.
type Claims struct {
	UserID   int64
	Username string
	Email    string
}

type accessClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenManager issues and verifies signed access tokens and opaque refresh tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of t that verifies expiry against now.
func (t *TokenManager) WithClock(now func() time.Time) *TokenManager {
	c := *t
	c.now = now
	return &c
}

// TTL is the access token validity window.
func (t *TokenManager) TTL() time.Duration { return t.ttl }

// ComputeExpiry returns now plus the access token validity window.
func (t *TokenManager) ComputeExpiry(now time.Time) time.Time {
	return now.Add(t.ttl)
}

// IssueAccessToken signs claims with an expiry of ComputeExpiry(now).
func (t *TokenManager) IssueAccessToken(c Claims, now time.Time) (string, time.Time, error) {
	expiresAt := t.ComputeExpiry(now)
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(c.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   c.UserID,
		Username: c.Username,
		Email:    c.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken returns a random hex string with no embedded claims.
func (t *TokenManager) IssueRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// VerifyAccessToken checks signature, algorithm, issuer and embedded expiry.
func (t *TokenManager) VerifyAccessToken(token string) (Claims, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return Claims{}, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return Claims{UserID: claims.UserID, Username: claims.Username, Email: claims.Email}, nil
}

// ParseTTL parses "<n><unit>" where unit is d, h, m or s.
func ParseTTL(value string) (time.Duration, error) {
	v := strings.TrimSpace(value)
	if len(v) < 2 {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	n, err := strconv.Atoi(v[:len(v)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	var unit time.Duration
	switch v[len(v)-1] {
	case 'd':
		unit = 24 * time.Hour
	case 'h':
		unit = time.Hour
	case 'm':
		unit = time.Minute
	case 's':
		unit = time.Second
	default:
		return 0, fmt.Errorf("invalid duration unit in %q", value)
	}
	return time.Duration(n) * unit, nil
}

// TTLMillis parses value like ParseTTL and reports it in milliseconds.
func TTLMillis(value string) (int64, error) {
	d, err := ParseTTL(value)
	if err != nil {
		return 0, err
	}
	return d.Milliseconds(), nil
}
