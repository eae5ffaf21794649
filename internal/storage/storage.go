package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/deepsea-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrUnknownDepartment and ErrUnknownJobTitle report a user row pointing at
// a department or job title that does not exist.
var (
	ErrUnknownDepartment = errors.New("referenced department does not exist")
	ErrUnknownJobTitle   = errors.New("referenced job title does not exist")
)

// ErrPoolTimeout indicates no connection could be acquired in time.
var ErrPoolTimeout = errors.New("connection acquisition timed out")

// UserStore is the credential store.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByPhone(ctx context.Context, phone string) (models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	Create(ctx context.Context, user models.User) (models.User, error)
	Update(ctx context.Context, id int64, patch models.UserPatch) (models.User, error)
	SoftDelete(ctx context.Context, id int64) error
	UpdateLastLogin(ctx context.Context, id int64) error
}

// SessionStore persists per-login sessions.
type SessionStore interface {
	Create(ctx context.Context, session models.Session) (models.Session, error)
	FindActiveByToken(ctx context.Context, token string) (models.Session, error)
	FindActiveByRefreshToken(ctx context.Context, refreshToken string) (models.Session, error)
	// Deactivate is idempotent: unknown or inactive tokens are not an error.
	Deactivate(ctx context.Context, token string) error
	DeactivateAllForUser(ctx context.Context, userID int64) (int64, error)
	// Rotate retires the active session for oldToken and inserts next atomically.
	// It returns ErrNotFound when oldToken is no longer active.
	Rotate(ctx context.Context, oldToken string, next models.Session) (models.Session, error)
}

// PermissionStore resolves role-based grants.
type PermissionStore interface {
	PermissionsForUser(ctx context.Context, userID int64) ([]string, error)
	UserHasPermission(ctx context.Context, userID int64, code string) (bool, error)
}

// DepartmentStore persists departments.
type DepartmentStore interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	FindDepartment(ctx context.Context, id int64) (models.Department, error)
	DepartmentName(ctx context.Context, id int64) (string, error)
	CreateDepartment(ctx context.Context, dep models.Department) (models.Department, error)
	UpdateDepartment(ctx context.Context, id int64, patch models.DepartmentPatch) (models.Department, error)
	SoftDeleteDepartment(ctx context.Context, id int64) error
}

// JobTitleStore persists job titles.
type JobTitleStore interface {
	ListJobTitles(ctx context.Context) ([]models.JobTitle, error)
	FindJobTitle(ctx context.Context, id int64) (models.JobTitle, error)
	JobTitleName(ctx context.Context, id int64) (string, error)
	CreateJobTitle(ctx context.Context, jt models.JobTitle) (models.JobTitle, error)
	UpdateJobTitle(ctx context.Context, id int64, patch models.JobTitlePatch) (models.JobTitle, error)
	SoftDeleteJobTitle(ctx context.Context, id int64) error
}

// AdminBootstrap is the seed surface used by the admin CLI.
type AdminBootstrap interface {
	UpsertPermissions(ctx context.Context, perms []models.Permission) (int, error)
	// BootstrapAdmin upserts the user, ensures the role, grants it every
	// permission and assigns it, all in one transaction.
	BootstrapAdmin(ctx context.Context, user models.User, role string) (models.User, error)
}

// Store bundles every store a running server needs.
type Store interface {
	Users() UserStore
	Sessions() SessionStore
	Permissions() PermissionStore
	Departments() DepartmentStore
	JobTitles() JobTitleStore
	Ping(ctx context.Context) error
	Close()
}
