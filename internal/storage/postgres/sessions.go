package postgres

import (
	"context"
	"fmt"

	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/storage"
	"github.com/jackc/pgx/v5"
)

var _ storage.SessionStore = (*SessionStore)(nil)

const sessionColumns = `id, user_id, token, refresh_token, COALESCE(ip_address, ''), COALESCE(user_agent, ''),
	expires_at, refresh_expires_at, is_active, created_at`

const insertSession = `
	INSERT INTO sessions (user_id, token, refresh_token, ip_address, user_agent, expires_at, refresh_expires_at)
	VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
	RETURNING ` + sessionColumns

// SessionStore persists login sessions.
type SessionStore struct {
	db *db
}

// Create inserts a new active session.
func (s *SessionStore) Create(ctx context.Context, session models.Session) (models.Session, error) {
	var created models.Session
	err := s.db.withConn(ctx, func(q querier) error {
		var err error
		created, err = insertSessionRow(ctx, q, session)
		return err
	})
	return created, err
}

// FindActiveByToken returns the active session for an access token.
func (s *SessionStore) FindActiveByToken(ctx context.Context, token string) (models.Session, error) {
	return s.findActive(ctx, "token", token)
}

// FindActiveByRefreshToken returns the active session for a refresh token.
func (s *SessionStore) FindActiveByRefreshToken(ctx context.Context, refreshToken string) (models.Session, error) {
	return s.findActive(ctx, "refresh_token", refreshToken)
}

func (s *SessionStore) findActive(ctx context.Context, column, value string) (models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE ` + column + ` = $1 AND is_active = true`
	var session models.Session
	err := s.db.withConn(ctx, func(q querier) error {
		var err error
		session, err = scanSession(q.QueryRow(ctx, query, value))
		return err
	})
	return session, err
}

// Deactivate marks the session for token inactive. Unknown tokens are ignored.
func (s *SessionStore) Deactivate(ctx context.Context, token string) error {
	return s.db.withConn(ctx, func(q querier) error {
		if _, err := q.Exec(ctx, `UPDATE sessions SET is_active = false WHERE token = $1 AND is_active = true`, token); err != nil {
			return fmt.Errorf("deactivate session: %w", err)
		}
		return nil
	})
}

// DeactivateAllForUser retires every active session of a user.
func (s *SessionStore) DeactivateAllForUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.db.withConn(ctx, func(q querier) error {
		tag, err := q.Exec(ctx, `UPDATE sessions SET is_active = false WHERE user_id = $1 AND is_active = true`, userID)
		if err != nil {
			return fmt.Errorf("deactivate user sessions: %w", err)
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}

// Rotate retires the session for oldToken and inserts next in one transaction.
func (s *SessionStore) Rotate(ctx context.Context, oldToken string, next models.Session) (models.Session, error) {
	var created models.Session
	err := s.db.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE sessions SET is_active = false WHERE token = $1 AND is_active = true`, oldToken)
		if err != nil {
			return fmt.Errorf("retire session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		created, err = insertSessionRow(ctx, tx, next)
		return err
	})
	return created, err
}

func insertSessionRow(ctx context.Context, q querier, session models.Session) (models.Session, error) {
	created, err := scanSession(q.QueryRow(ctx, insertSession,
		session.UserID, session.Token, session.RefreshToken, session.IPAddress, session.UserAgent,
		session.ExpiresAt, session.RefreshExpiresAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Session{}, storage.ErrAlreadyExists
		}
		return models.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return created, nil
}

func scanSession(row pgx.Row) (models.Session, error) {
	var s models.Session
	if err := row.Scan(
		&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.IPAddress, &s.UserAgent,
		&s.ExpiresAt, &s.RefreshExpiresAt, &s.IsActive, &s.CreatedAt,
	); err != nil {
		return models.Session{}, notFound(err)
	}
	return s, nil
}
