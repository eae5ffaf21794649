// Package service holds the permission-gated directory operations behind the
// HTTP handlers.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hongminglow/deepsea-be/internal/apperr"
	"github.com/hongminglow/deepsea-be/internal/auth"
	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/models/dto"
	"github.com/hongminglow/deepsea-be/internal/storage"
)

const (
	DefaultPageLimit = 25
	MaxPageLimit     = 200
	// MaxPage keeps (page-1)*limit well inside an int32 OFFSET.
	MaxPage = 1_000_000
)

// Gate authorizes an actor for a permission code.
type Gate interface {
	Require(ctx context.Context, actor *auth.Actor, code string) error
}

// Users manages directory accounts.
type Users struct {
	gate     Gate
	users    storage.UserStore
	sessions storage.SessionStore
	logger   *slog.Logger
}

func NewUsers(gate Gate, users storage.UserStore, sessions storage.SessionStore, logger *slog.Logger) *Users {
	return &Users{gate: gate, users: users, sessions: sessions, logger: logger}
}

// List returns one page of users plus the total match count.
func (s *Users) List(ctx context.Context, actor *auth.Actor, filter models.UserFilter) ([]models.User, int64, models.UserFilter, error) {
	if err := s.gate.Require(ctx, actor, auth.PermUsersView); err != nil {
		return nil, 0, filter, err
	}
	filter = normalizeFilter(filter)
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, filter, storeErr("list users", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, total, filter, nil
}

func normalizeFilter(f models.UserFilter) models.UserFilter {
	switch {
	case f.Page < 1:
		f.Page = 1
	case f.Page > MaxPage:
		f.Page = MaxPage
	}
	switch {
	case f.Limit < 1:
		f.Limit = DefaultPageLimit
	case f.Limit > MaxPageLimit:
		f.Limit = MaxPageLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (s *Users) Get(ctx context.Context, actor *auth.Actor, rawID string) (models.User, error) {
	if err := s.gate.Require(ctx, actor, auth.PermUsersView); err != nil {
		return models.User{}, err
	}
	id, err := parseID(rawID, "Invalid user id")
	if err != nil {
		return models.User{}, err
	}
	return s.find(ctx, id)
}

func (s *Users) Create(ctx context.Context, actor *auth.Actor, req dto.CreateUserRequest) (models.User, error) {
	if err := s.gate.Require(ctx, actor, auth.PermUsersCreate); err != nil {
		return models.User{}, err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validateCreateUser(req); err != nil {
		return models.User{}, err
	}
	if err := s.checkUnique(ctx, 0, &req.Username, &req.Email, &req.Phone); err != nil {
		return models.User{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.Internal, "hash password", err)
	}
	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		FirstName:    trimmed(req.FirstName),
		LastName:     trimmed(req.LastName),
		MiddleName:   trimmed(req.MiddleName),
		DepartmentID: req.DepartmentID,
		JobTitleID:   req.JobTitleID,
		IsActive:     true,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.IsVerified != nil {
		user.IsVerified = *req.IsVerified
	}

	created, err := s.users.Create(ctx, user)
	if errors.Is(err, storage.ErrAlreadyExists) {
		// Lost a race with a concurrent insert; the pre-checks passed.
		return models.User{}, apperr.New(apperr.Conflict, "User already exists")
	}
	if err := refErr(err); err != nil {
		return models.User{}, err
	}
	if err != nil {
		return models.User{}, storeErr("create user", err)
	}
	s.logger.Info("user created", slog.Int64("user_id", created.ID), slog.Int64("by", actor.ID))
	return created, nil
}

func (s *Users) Update(ctx context.Context, actor *auth.Actor, rawID string, req dto.UpdateUserRequest) (models.User, error) {
	if err := s.gate.Require(ctx, actor, auth.PermUsersUpdate); err != nil {
		return models.User{}, err
	}
	id, err := parseID(rawID, "Invalid user id")
	if err != nil {
		return models.User{}, err
	}
	if err := validateUpdateUser(req); err != nil {
		return models.User{}, err
	}
	if _, err := s.find(ctx, id); err != nil {
		return models.User{}, err
	}

	patch := models.UserPatch{
		Username:     trimmed(req.Username),
		Email:        trimmed(req.Email),
		Phone:        trimmed(req.Phone),
		FirstName:    trimmed(req.FirstName),
		LastName:     trimmed(req.LastName),
		MiddleName:   trimmed(req.MiddleName),
		DepartmentID: req.DepartmentID,
		JobTitleID:   req.JobTitleID,
		IsActive:     req.IsActive,
		IsVerified:   req.IsVerified,
	}
	if err := s.checkUnique(ctx, id, patch.Username, patch.Email, patch.Phone); err != nil {
		return models.User{}, err
	}

	updated, err := s.users.Update(ctx, id, patch)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return models.User{}, apperr.New(apperr.NotFound, "User not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		return models.User{}, apperr.New(apperr.Conflict, "User already exists")
	case refErr(err) != nil:
		return models.User{}, refErr(err)
	case err != nil:
		return models.User{}, storeErr("update user", err)
	}
	return updated, nil
}

// Delete soft-deletes the user and ends every session they hold.
func (s *Users) Delete(ctx context.Context, actor *auth.Actor, rawID string) error {
	if err := s.gate.Require(ctx, actor, auth.PermUsersDelete); err != nil {
		return err
	}
	id, err := parseID(rawID, "Invalid user id")
	if err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.New(apperr.NotFound, "User not found")
		}
		return storeErr("delete user", err)
	}
	n, err := s.sessions.DeactivateAllForUser(ctx, id)
	if err != nil {
		return storeErr("revoke sessions", err)
	}
	s.logger.Info("user deleted", slog.Int64("user_id", id), slog.Int64("sessions_revoked", n), slog.Int64("by", actor.ID))
	return nil
}

func (s *Users) find(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, apperr.New(apperr.NotFound, "User not found")
	}
	if err != nil {
		return models.User{}, storeErr("find user", err)
	}
	return user, nil
}

// checkUnique looks up username, then email, then phone. Nil values are skipped
// and selfID is ignored as an owner.
func (s *Users) checkUnique(ctx context.Context, selfID int64, username, email, phone *string) error {
	lookups := []struct {
		value   *string
		find    func(context.Context, string) (models.User, error)
		message string
	}{
		{username, s.users.FindByUsername, "Username already exists"},
		{email, s.users.FindByEmail, "Email already exists"},
		{phone, s.users.FindByPhone, "Phone already exists"},
	}
	for _, p := range lookups {
		if p.value == nil || *p.value == "" {
			continue
		}
		owner, err := p.find(ctx, *p.value)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			continue
		case err != nil:
			return storeErr("uniqueness check", err)
		case owner.ID != selfID:
			return apperr.New(apperr.Conflict, p.message)
		}
	}
	return nil
}

func storeErr(op string, err error) error {
	return apperr.Wrap(apperr.Internal, op, err)
}

// refErr turns a dangling department or job title id into a validation error.
func refErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrUnknownDepartment):
		return apperr.Invalid("Validation error", "Department ID does not exist")
	case errors.Is(err, storage.ErrUnknownJobTitle):
		return apperr.Invalid("Validation error", "Job title ID does not exist")
	}
	return nil
}
