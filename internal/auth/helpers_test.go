package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/storage"
	"github.com/hongminglow/deepsea-be/internal/storage/memstore"
)

var errStoreDown = errors.New("store unavailable")

type fixture struct {
	store  *memstore.Store
	tokens *TokenManager
	now    time.Time
	svc    *Service
	authn  *Authenticator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memstore.New(),
		now:   time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.store.SetClock(clock)
	f.tokens = NewTokenManager("fixture-secret-123", "deepsea-test", time.Hour).WithClock(clock)
	f.svc = NewService(f.tokens, f.store.Users(), f.store.Sessions(), WithClock(clock), WithRefreshTTL(24*time.Hour))
	f.authn = NewAuthenticator(f.tokens, f.store.Users(), f.store.Sessions(), f.store.Permissions(), nil, WithClock(clock))
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) seedUser(t *testing.T, username, password string, active bool) models.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	first := "Ada"
	u, err := f.store.Users().Create(context.Background(), models.User{
		Username:     username,
		Email:        username + "@example.local",
		PasswordHash: hash,
		FirstName:    &first,
		IsActive:     active,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return u
}

func (f *fixture) seedDepartment(t *testing.T, name string) int64 {
	t.Helper()
	dep, err := f.store.Departments().CreateDepartment(context.Background(), models.Department{Name: name})
	if err != nil {
		t.Fatalf("CreateDepartment() error = %v", err)
	}
	return dep.ID
}

func (f *fixture) seedJobTitle(t *testing.T, name string) int64 {
	t.Helper()
	jt, err := f.store.JobTitles().CreateJobTitle(context.Background(), models.JobTitle{Name: name})
	if err != nil {
		t.Fatalf("CreateJobTitle() error = %v", err)
	}
	return jt.ID
}

func (f *fixture) login(t *testing.T, username, password string) Result {
	t.Helper()
	res, err := f.svc.Login(context.Background(), username, password, Client{IP: "10.0.0.1", UserAgent: "test"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return res
}

type failingPermissions struct{}

func (failingPermissions) PermissionsForUser(context.Context, int64) ([]string, error) {
	return nil, errStoreDown
}

func (failingPermissions) UserHasPermission(context.Context, int64, string) (bool, error) {
	return false, errStoreDown
}

type failingSessions struct {
	storage.SessionStore
	findErr       error
	deactivateErr error
}

func (s failingSessions) FindActiveByToken(ctx context.Context, token string) (models.Session, error) {
	if s.findErr != nil {
		return models.Session{}, s.findErr
	}
	return s.SessionStore.FindActiveByToken(ctx, token)
}

func (s failingSessions) Deactivate(ctx context.Context, token string) error {
	if s.deactivateErr != nil {
		return s.deactivateErr
	}
	return s.SessionStore.Deactivate(ctx, token)
}

type stubNames struct {
	department string
	jobTitle   string
	err        error
}

func (s stubNames) DepartmentName(context.Context, int64) (string, error) { return s.department, s.err }
func (s stubNames) JobTitleName(context.Context, int64) (string, error)   { return s.jobTitle, s.err }

func patchActive(v *bool) models.UserPatch {
	return models.UserPatch{IsActive: v}
}
