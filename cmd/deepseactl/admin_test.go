package main

import (
	"context"
	"strings"
	"testing"

	"github.com/hongminglow/deepsea-be/internal/auth"
	"github.com/hongminglow/deepsea-be/internal/storage/memstore"
)

func TestCreateAdminGrantsEveryPermission(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	user, err := createAdmin(ctx, store, adminOptions{Username: "admin", Password: "changeme", Email: "admin@deepsea.local", Role: "admin"})
	if err != nil {
		t.Fatalf("createAdmin() error = %v", err)
	}
	if !user.IsActive || !auth.CheckPassword(user.PasswordHash, "changeme") {
		t.Fatalf("admin = %+v", user)
	}

	codes, err := store.Permissions().PermissionsForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("PermissionsForUser() error = %v", err)
	}
	if len(codes) != len(auth.AllPermissions) {
		t.Fatalf("admin holds %d codes, want %d", len(codes), len(auth.AllPermissions))
	}
}

func TestCreateAdminIsRerunnable(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	opts := adminOptions{Username: "admin", Password: "first-pass", Email: "admin@deepsea.local", Role: "admin"}

	first, err := createAdmin(ctx, store, opts)
	if err != nil {
		t.Fatalf("createAdmin() error = %v", err)
	}
	opts.Password = "second-pass"
	second, err := createAdmin(ctx, store, opts)
	if err != nil {
		t.Fatalf("createAdmin() rerun error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("rerun created a new user: %d != %d", second.ID, first.ID)
	}
	if !auth.CheckPassword(second.PasswordHash, "second-pass") {
		t.Fatal("rerun did not reset the password")
	}
	if n, _ := seedPermissions(ctx, store); n != 0 {
		t.Fatalf("seedPermissions() inserted %d on a seeded store", n)
	}
}

func TestAdminOptionsFromEnv(t *testing.T) {
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "from-env-pass")
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_ROLE", "")

	o := adminOptions{Role: "superuser"}
	o.applyEnv()
	if o.Username != "admin" || o.Password != "from-env-pass" || o.Role != "superuser" || o.Email != "admin@deepsea.local" {
		t.Fatalf("options = %+v", o)
	}
}

func TestAdminOptionsRequirePassword(t *testing.T) {
	err := adminOptions{Username: "admin", Role: "admin"}.validate()
	if err == nil || !strings.Contains(err.Error(), "ADMIN_PASSWORD") {
		t.Fatalf("validate() error = %v", err)
	}
}
