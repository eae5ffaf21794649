package auth

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hongminglow/deepsea-be/internal/apperr"
	"github.com/hongminglow/deepsea-be/internal/metrics"
	"github.com/hongminglow/deepsea-be/internal/storage"
)

// DirectoryNames resolves display names for an actor's department and job title.
type DirectoryNames interface {
	DepartmentName(ctx context.Context, id int64) (string, error)
	JobTitleName(ctx context.Context, id int64) (string, error)
}

// Authenticator turns a bearer token into an Actor, cross-checking the live session.
type Authenticator struct {
	tokens      *TokenManager
	users       storage.UserStore
	sessions    storage.SessionStore
	permissions *StorePermissions
	names       DirectoryNames
	opts        options
}

// NewAuthenticator wires the guard. names may be nil.
func NewAuthenticator(
	tokens *TokenManager,
	users storage.UserStore,
	sessions storage.SessionStore,
	permissions storage.PermissionStore,
	names DirectoryNames,
	opts ...Option,
) *Authenticator {
	return &Authenticator{
		tokens:      tokens,
		users:       users,
		sessions:    sessions,
		permissions: NewStorePermissions(permissions),
		names:       names,
		opts:        buildOptions(opts),
	}
}

// Authenticate runs every check in order; none is skipped.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (actor *Actor, err error) {
	ctx, span := a.opts.tracer.Start(ctx, "auth.Authenticate")
	defer func() {
		metrics.AuthEvent("guard", outcome(err))
		if err != nil {
			span.SetStatus(codes.Error, apperr.KindOf(err).String())
		}
		span.End()
	}()

	if token == "" {
		return nil, apperr.New(apperr.AuthRequired, "Authentication required")
	}

	claims, err := a.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidToken, "Invalid or expired token", err)
	}
	span.SetAttributes(attribute.Int64("user.id", claims.UserID))

	user, err := a.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.New(apperr.AuthRequired, "User not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "load user", err)
	}
	if !user.IsActive {
		return nil, apperr.New(apperr.AccountDeactivated, "User account is deactivated")
	}

	session, err := a.sessions.FindActiveByToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.New(apperr.SessionInvalid, "Session is inactive or invalid")
		}
		a.opts.logger.Error("session lookup failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, apperr.Wrap(apperr.SessionInvalid, "Session validation failed", err)
	}
	if session.UserID != user.ID {
		return nil, apperr.New(apperr.SessionInvalid, "Session user mismatch")
	}
	if session.Expired(a.opts.now()) {
		if err := a.sessions.Deactivate(ctx, token); err != nil {
			a.opts.logger.Warn("deactivate expired session failed", slog.Int64("session_id", session.ID), slog.Any("error", err))
		}
		return nil, apperr.New(apperr.SessionExpired, "Session expired")
	}

	actor = NewActor(user)
	actor.Permissions, err = a.permissions.Resolve(ctx, user.ID)
	if err != nil {
		a.opts.logger.Warn("resolve permissions failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
		actor.Permissions = PermissionSet{}
	}
	a.attachNames(ctx, actor)
	return actor, nil
}

func (a *Authenticator) attachNames(ctx context.Context, actor *Actor) {
	if a.names == nil {
		return
	}
	if actor.DepartmentID != nil {
		name, err := a.names.DepartmentName(ctx, *actor.DepartmentID)
		if err != nil {
			a.opts.logger.Warn("department name lookup failed", slog.Int64("user_id", actor.ID), slog.Any("error", err))
		} else {
			actor.Department = &name
		}
	}
	if actor.JobTitleID != nil {
		name, err := a.names.JobTitleName(ctx, *actor.JobTitleID)
		if err != nil {
			a.opts.logger.Warn("job title name lookup failed", slog.Int64("user_id", actor.ID), slog.Any("error", err))
		} else {
			actor.JobTitle = &name
		}
	}
}
