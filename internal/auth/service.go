package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hongminglow/deepsea-be/internal/apperr"
	"github.com/hongminglow/deepsea-be/internal/metrics"
	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/storage"
)

// Result is the outcome of a successful login or refresh.
type Result struct {
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
	User         models.PublicUser
}

// Client identifies where a login or refresh came from.
type Client struct {
	IP        string
	UserAgent string
}

// Service runs the login, refresh and logout flows.
type Service struct {
	tokens   *TokenManager
	users    storage.UserStore
	sessions storage.SessionStore
	opts     options
}

func NewService(tokens *TokenManager, users storage.UserStore, sessions storage.SessionStore, opts ...Option) *Service {
	return &Service{tokens: tokens, users: users, sessions: sessions, opts: buildOptions(opts)}
}

// Login verifies credentials and opens a new session.
func (s *Service) Login(ctx context.Context, username, password string, client Client) (res Result, err error) {
	ctx, span := s.opts.tracer.Start(ctx, "auth.Login")
	defer func() { s.finish(span, "login", err) }()

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{}, apperr.New(apperr.InvalidCredentials, "Invalid credentials")
		}
		return Result{}, apperr.Wrap(apperr.Internal, "load user", err)
	}
	span.SetAttributes(attribute.Int64("user.id", user.ID))

	if !user.IsActive {
		return Result{}, apperr.New(apperr.AccountDeactivated, "User account is deactivated")
	}
	if !CheckPassword(user.PasswordHash, password) {
		return Result{}, apperr.New(apperr.InvalidCredentials, "Invalid credentials")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.opts.logger.Warn("update last login failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	next, err := s.mint(user, client)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.sessions.Create(ctx, next); err != nil {
		return Result{}, apperr.Wrap(apperr.Internal, "create session", err)
	}

	s.opts.logger.Info("user logged in", slog.Int64("user_id", user.ID), slog.String("ip", client.IP))
	return result(next, user), nil
}

// Refresh exchanges a refresh token for a new token pair. Each refresh token works once.
func (s *Service) Refresh(ctx context.Context, refreshToken string, client Client) (res Result, err error) {
	ctx, span := s.opts.tracer.Start(ctx, "auth.Refresh")
	defer func() { s.finish(span, "refresh", err) }()

	if refreshToken == "" {
		return Result{}, apperr.New(apperr.MissingToken, "Refresh token required")
	}

	old, err := s.sessions.FindActiveByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{}, apperr.New(apperr.InvalidRefreshToken, "Invalid refresh token")
		}
		return Result{}, apperr.Wrap(apperr.Internal, "load session", err)
	}
	if old.RefreshExpired(s.opts.now()) {
		if err := s.sessions.Deactivate(ctx, old.Token); err != nil {
			s.opts.logger.Warn("deactivate stale session failed", slog.Int64("session_id", old.ID), slog.Any("error", err))
		}
		return Result{}, apperr.New(apperr.InvalidRefreshToken, "Invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, old.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{}, apperr.New(apperr.AuthRequired, "User not found")
		}
		return Result{}, apperr.Wrap(apperr.Internal, "load user", err)
	}
	span.SetAttributes(attribute.Int64("user.id", user.ID))
	if !user.IsActive {
		return Result{}, apperr.New(apperr.AccountDeactivated, "User account is deactivated")
	}

	next, err := s.mint(user, client)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.sessions.Rotate(ctx, old.Token, next); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{}, apperr.New(apperr.InvalidRefreshToken, "Invalid refresh token")
		}
		return Result{}, apperr.Wrap(apperr.Internal, "rotate session", err)
	}

	return result(next, user), nil
}

// Logout retires the session of accessToken. Unknown or inactive sessions are not an error.
func (s *Service) Logout(ctx context.Context, accessToken string) (err error) {
	ctx, span := s.opts.tracer.Start(ctx, "auth.Logout")
	defer func() { s.finish(span, "logout", err) }()

	if accessToken == "" {
		return apperr.New(apperr.MissingToken, "Token required")
	}
	if err := s.sessions.Deactivate(ctx, accessToken); err != nil {
		return apperr.Wrap(apperr.Internal, "deactivate session", err)
	}
	return nil
}

func (s *Service) mint(user models.User, client Client) (models.Session, error) {
	now := s.opts.now()
	token, expiresAt, err := s.tokens.IssueAccessToken(Claims{UserID: user.ID, Username: user.Username, Email: user.Email}, now)
	if err != nil {
		return models.Session{}, apperr.Wrap(apperr.Internal, "issue access token", err)
	}
	refresh, err := s.tokens.IssueRefreshToken()
	if err != nil {
		return models.Session{}, apperr.Wrap(apperr.Internal, "issue refresh token", err)
	}
	return models.Session{
		UserID:           user.ID,
		Token:            token,
		RefreshToken:     refresh,
		IPAddress:        client.IP,
		UserAgent:        client.UserAgent,
		ExpiresAt:        expiresAt,
		RefreshExpiresAt: now.Add(s.opts.refreshTTL),
		IsActive:         true,
	}, nil
}

func result(session models.Session, user models.User) Result {
	return Result{
		Token:        session.Token,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
		User:         user.Public(),
	}
}

func (s *Service) finish(span trace.Span, event string, err error) {
	metrics.AuthEvent(event, outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.KindOf(err).String())
	}
	span.End()
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return apperr.KindOf(err).String()
}
