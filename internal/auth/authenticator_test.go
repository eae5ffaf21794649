package auth

import (
	"context"
	"testing"
	"time"

	"github.com/hongminglow/deepsea-be/internal/apperr"
	"github.com/hongminglow/deepsea-be/internal/models"
)

func TestAuthenticateAttachesActor(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "admin", "correct-horse", true)
	f.store.GrantRole(user.ID, "viewer", PermUsersView)
	f.store.GrantRole(user.ID, "editor", PermUsersView, PermUsersUpdate)
	ctx := context.Background()

	dep := f.seedDepartment(t, "R&D")
	job := f.seedJobTitle(t, "Engineer")
	if _, err := f.store.Users().Update(ctx, user.ID, models.UserPatch{DepartmentID: &dep, JobTitleID: &job}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	authn := NewAuthenticator(f.tokens, f.store.Users(), f.store.Sessions(), f.store.Permissions(),
		stubNames{department: "R&D", jobTitle: "Engineer"}, WithClock(func() time.Time { return f.now }))

	res := f.login(t, "admin", "correct-horse")
	actor, err := authn.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if actor.ID != user.ID || actor.PasswordHash != "" {
		t.Fatalf("actor = %+v", actor)
	}
	codes := actor.Permissions.Codes()
	if len(codes) != 2 || codes[0] != PermUsersUpdate || codes[1] != PermUsersView {
		t.Fatalf("permissions = %v", codes)
	}
	if actor.Department == nil || *actor.Department != "R&D" || actor.JobTitle == nil || *actor.JobTitle != "Engineer" {
		t.Fatalf("names = %v / %v", actor.Department, actor.JobTitle)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "admin", "correct-horse", true)
	other := f.seedUser(t, "other", "correct-horse", true)
	ctx := context.Background()

	valid := f.login(t, "admin", "correct-horse")

	orphan, _, err := f.tokens.IssueAccessToken(Claims{UserID: 9999, Username: "ghost"}, f.now)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	unbound, _, err := f.tokens.IssueAccessToken(Claims{UserID: user.ID, Username: "admin"}, f.now)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	mismatched, _, err := f.tokens.IssueAccessToken(Claims{UserID: user.ID, Username: "admin"}, f.now)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	if _, err := f.store.Sessions().Create(ctx, models.Session{
		UserID: other.ID, Token: mismatched, RefreshToken: "r-mismatch", ExpiresAt: f.now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  apperr.Kind
	}{
		{"missing", "", apperr.AuthRequired},
		{"malformed", "abc.def.ghi", apperr.InvalidToken},
		{"unknown user", orphan, apperr.AuthRequired},
		{"no session", unbound, apperr.SessionInvalid},
		{"session owned by someone else", mismatched, apperr.SessionInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.authn.Authenticate(ctx, tt.token)
			if got := apperr.KindOf(err); got != tt.want {
				t.Fatalf("Authenticate() kind = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}

	t.Run("deactivated", func(t *testing.T) {
		inactive := false
		if _, err := f.store.Users().Update(ctx, user.ID, patchActive(&inactive)); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		_, err := f.authn.Authenticate(ctx, valid.Token)
		if got := apperr.KindOf(err); got != apperr.AccountDeactivated {
			t.Fatalf("Authenticate() kind = %v, want AccountDeactivated", got)
		}
	})
}

func TestAuthenticateExpiredSession(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "admin", "correct-horse", true)
	ctx := context.Background()

	// The token is still within its own window; only the session has lapsed.
	token, _, err := f.tokens.IssueAccessToken(Claims{UserID: user.ID, Username: "admin"}, f.now)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	if _, err := f.store.Sessions().Create(ctx, models.Session{
		UserID: user.ID, Token: token, RefreshToken: "r1", ExpiresAt: f.now.Add(-time.Second),
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = f.authn.Authenticate(ctx, token)
	if got := apperr.KindOf(err); got != apperr.SessionExpired {
		t.Fatalf("Authenticate() kind = %v, want SessionExpired", got)
	}
	if _, err := f.store.Sessions().FindActiveByToken(ctx, token); err == nil {
		t.Fatal("expired session should be deactivated")
	}
}

func TestAuthenticateExpiredSessionSwallowsDeactivateError(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "admin", "correct-horse", true)
	ctx := context.Background()

	token, _, _ := f.tokens.IssueAccessToken(Claims{UserID: user.ID}, f.now)
	if _, err := f.store.Sessions().Create(ctx, models.Session{UserID: user.ID, Token: token, RefreshToken: "r1", ExpiresAt: f.now}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	authn := NewAuthenticator(f.tokens, f.store.Users(),
		failingSessions{SessionStore: f.store.Sessions(), deactivateErr: errStoreDown},
		f.store.Permissions(), nil, WithClock(func() time.Time { return f.now }))
	_, err := authn.Authenticate(ctx, token)
	if got := apperr.KindOf(err); got != apperr.SessionExpired {
		t.Fatalf("Authenticate() kind = %v, want SessionExpired", got)
	}
}

func TestAuthenticateSessionStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "admin", "correct-horse", true)
	res := f.login(t, "admin", "correct-horse")

	authn := NewAuthenticator(f.tokens, f.store.Users(),
		failingSessions{SessionStore: f.store.Sessions(), findErr: errStoreDown},
		f.store.Permissions(), nil, WithClock(func() time.Time { return f.now }))
	_, err := authn.Authenticate(context.Background(), res.Token)
	if got := apperr.KindOf(err); got != apperr.SessionInvalid {
		t.Fatalf("Authenticate() kind = %v, want SessionInvalid", got)
	}
}

func TestAuthenticateDegradesOnLookupFailures(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "admin", "correct-horse", true)
	f.store.GrantRole(user.ID, "admin", PermUsersDelete)
	dep := f.seedDepartment(t, "Ops")
	if _, err := f.store.Users().Update(context.Background(), user.ID, models.UserPatch{DepartmentID: &dep}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	res := f.login(t, "admin", "correct-horse")

	authn := NewAuthenticator(f.tokens, f.store.Users(), f.store.Sessions(),
		failingPermissions{}, stubNames{err: errStoreDown}, WithClock(func() time.Time { return f.now }))
	actor, err := authn.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !actor.Resolved() || len(actor.Permissions) != 0 {
		t.Fatalf("permissions = %v, want resolved empty set", actor.Permissions)
	}
	if actor.Department != nil {
		t.Fatalf("department = %v, want nil", *actor.Department)
	}
}
