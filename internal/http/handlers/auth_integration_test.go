package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/hongminglow/deepsea-be/internal/auth"
	"github.com/hongminglow/deepsea-be/internal/http/respond"
	"github.com/hongminglow/deepsea-be/internal/middleware"
	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/models/dto"
	"github.com/hongminglow/deepsea-be/internal/service"
	"github.com/hongminglow/deepsea-be/internal/storage/postgres"
)

// TestAuthIntegration exercises login, me, user creation, refresh and logout
// against the database named by DATABASE_URL.
func TestAuthIntegration(t *testing.T) {
	if os.Getenv("RUN_AUTH_INTEGRATION") != "true" {
		t.Skip("set RUN_AUTH_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := mustGetEnv(t, "DATABASE_URL")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := postgres.MigrateUp(dbURL, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	store, err := postgres.Open(ctx, dbURL, postgres.Options{MaxConns: 4, AcquireTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	suffix := time.Now().UnixNano()
	adminName := fmt.Sprintf("it_admin_%d", suffix)
	adminPass := fmt.Sprintf("Pass!%d", suffix)
	if _, err := store.UpsertPermissions(ctx, auth.AllPermissions); err != nil {
		t.Fatalf("seed permissions: %v", err)
	}
	hash, err := auth.HashPassword(adminPass)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	admin, err := store.BootstrapAdmin(ctx, models.User{
		Username:     adminName,
		Email:        adminName + "@example.com",
		PasswordHash: hash,
	}, fmt.Sprintf("it_role_%d", suffix))
	if err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}

	tokens := auth.NewTokenManager(mustGetEnv(t, "JWT_SECRET"), "deepsea-integration", 15*time.Minute)
	errs := respond.NewResponder(false, logger)
	authn := auth.NewAuthenticator(tokens, store.Users(), store.Sessions(), store.Permissions(), nil)
	guard := middleware.RequireAuth(authn, errs)
	gate := auth.NewGate(store.Permissions(), logger)

	r := chi.NewRouter()
	NewAuthHandler(auth.NewService(tokens, store.Users(), store.Sessions()), errs, guard).Register(r)
	r.Group(func(r chi.Router) {
		r.Use(guard)
		NewUsersHandler(service.NewUsers(gate, store.Users(), store.Sessions(), logger), errs).Register(r)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	loggedIn := requestLogin(t, ts.URL, adminName, adminPass)
	if loggedIn.User.ID != admin.ID || strings.TrimSpace(loggedIn.Token) == "" {
		t.Fatalf("login returned %+v", loggedIn)
	}

	var me dto.MeResponse
	if status := call(t, http.MethodGet, ts.URL+"/auth/me", loggedIn.Token, nil, &me); status != http.StatusOK || me.ID != admin.ID {
		t.Fatalf("me = %d %+v", status, me)
	}

	username := fmt.Sprintf("apitest_%d", suffix)
	var created dto.CreateUserResponse
	status := call(t, http.MethodPost, ts.URL+"/users", loggedIn.Token, map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"phone":    fmt.Sprintf("+1555%07d", suffix%10_000_000),
		"password": adminPass,
	}, &created)
	if status != http.StatusCreated || created.User.Username != username {
		t.Fatalf("create user = %d %+v", status, created)
	}

	var refreshed dto.TokenResponse
	status = call(t, http.MethodPost, ts.URL+"/auth/refresh", "", map[string]string{"refresh_token": loggedIn.RefreshToken}, &refreshed)
	if status != http.StatusOK || refreshed.Token == loggedIn.Token {
		t.Fatalf("refresh = %d", status)
	}
	if status := call(t, http.MethodGet, ts.URL+"/auth/me", loggedIn.Token, nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("rotated-out token = %d", status)
	}

	if status := call(t, http.MethodPost, ts.URL+"/auth/logout", refreshed.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("logout = %d", status)
	}
	if status := call(t, http.MethodGet, ts.URL+"/auth/me", refreshed.Token, nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("logged-out token = %d", status)
	}

	t.Logf("admin %s (id=%d) created %s and completed a full session cycle", adminName, admin.ID, username)
}

func requestLogin(t *testing.T, baseURL, username, password string) dto.TokenResponse {
	t.Helper()
	var out dto.TokenResponse
	status := call(t, http.MethodPost, baseURL+"/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if status != http.StatusOK {
		t.Fatalf("login status = %d", status)
	}
	return out
}

func call(t *testing.T, method, url, token string, payload, out any) int {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response: %v", url, err)
		}
	}
	return resp.StatusCode
}

func mustGetEnv(t *testing.T, key string) string {
	t.Helper()
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		t.Fatalf("%s is required", key)
	}
	return val
}

func loadDotEnv() {
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	for _, path := range paths {
		_ = godotenv.Overload(path)
	}
}
