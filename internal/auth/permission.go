package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hongminglow/deepsea-be/internal/apperr"
	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/storage"
)

const (
	PermUsersView   = "users.view"
	PermUsersCreate = "users.create"
	PermUsersUpdate = "users.update"
	PermUsersDelete = "users.delete"

	PermDepartmentsView   = "departments.view"
	PermDepartmentsCreate = "departments.create"
	PermDepartmentsUpdate = "departments.update"
	PermDepartmentsDelete = "departments.delete"

	PermJobTitlesView   = "job_titles.view"
	PermJobTitlesCreate = "job_titles.create"
	PermJobTitlesUpdate = "job_titles.update"
	PermJobTitlesDelete = "job_titles.delete"
)

func describe(s string) *string { return &s }

// AllPermissions is the catalogue seeded into the permissions table.
var AllPermissions = []models.Permission{
	{Code: PermUsersView, Name: "View users", Description: describe("Allows viewing users")},
	{Code: PermUsersCreate, Name: "Create users", Description: describe("Allows creating users")},
	{Code: PermUsersUpdate, Name: "Update users", Description: describe("Allows updating users")},
	{Code: PermUsersDelete, Name: "Delete users", Description: describe("Allows deleting (soft-delete) users")},
	{Code: PermDepartmentsView, Name: "View departments", Description: describe("Allows viewing departments")},
	{Code: PermDepartmentsCreate, Name: "Create departments", Description: describe("Allows creating departments")},
	{Code: PermDepartmentsUpdate, Name: "Update departments", Description: describe("Allows updating departments")},
	{Code: PermDepartmentsDelete, Name: "Delete departments", Description: describe("Allows deleting departments")},
	{Code: PermJobTitlesView, Name: "View job titles", Description: describe("Allows viewing job titles")},
	{Code: PermJobTitlesCreate, Name: "Create job titles", Description: describe("Allows creating job titles")},
	{Code: PermJobTitlesUpdate, Name: "Update job titles", Description: describe("Allows updating job titles")},
	{Code: PermJobTitlesDelete, Name: "Delete job titles", Description: describe("Allows deleting job titles")},
}

// PermissionResolver answers whether a user holds a permission code.
type PermissionResolver interface {
	HasPermission(ctx context.Context, userID int64, code string) (bool, error)
}

// ActorPermissions resolves against an already loaded set without I/O.
type ActorPermissions struct {
	set PermissionSet
}

func (a ActorPermissions) HasPermission(_ context.Context, _ int64, code string) (bool, error) {
	return a.set.Has(code), nil
}

// StorePermissions resolves through the role grant tables.
type StorePermissions struct {
	store storage.PermissionStore
}

func NewStorePermissions(store storage.PermissionStore) *StorePermissions {
	return &StorePermissions{store: store}
}

func (s *StorePermissions) HasPermission(ctx context.Context, userID int64, code string) (bool, error) {
	return s.store.UserHasPermission(ctx, userID, code)
}

// Resolve loads the full union of codes granted to userID.
func (s *StorePermissions) Resolve(ctx context.Context, userID int64) (PermissionSet, error) {
	codes, err := s.store.PermissionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewPermissionSet(codes...), nil
}

// Gate is the per-operation permission check used by domain services.
type Gate struct {
	store  *StorePermissions
	logger *slog.Logger
}

func NewGate(store storage.PermissionStore, logger *slog.Logger) *Gate {
	return &Gate{store: NewStorePermissions(store), logger: logger}
}

func (g *Gate) resolverFor(actor *Actor) PermissionResolver {
	if actor.Resolved() {
		return ActorPermissions{set: actor.Permissions}
	}
	return g.store
}

// HasPermission reports whether actor holds code. Resolution errors yield false.
func (g *Gate) HasPermission(ctx context.Context, actor *Actor, code string) bool {
	if actor == nil || actor.ID == 0 {
		return false
	}
	ok, err := g.resolverFor(actor).HasPermission(ctx, actor.ID, code)
	if err != nil {
		g.logger.Warn("permission check failed", slog.Int64("user_id", actor.ID), slog.String("code", code), slog.Any("error", err))
		return false
	}
	return ok
}

// Require fails with AuthRequired when there is no actor and Forbidden when code is missing.
func (g *Gate) Require(ctx context.Context, actor *Actor, code string) error {
	if actor == nil || actor.ID == 0 {
		return apperr.New(apperr.AuthRequired, "Authentication required")
	}
	if !g.HasPermission(ctx, actor, code) {
		return apperr.New(apperr.Forbidden, fmt.Sprintf("Forbidden: missing permission %s", code))
	}
	return nil
}
