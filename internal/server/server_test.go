package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hongminglow/deepsea-be/internal/auth"
	"github.com/hongminglow/deepsea-be/internal/config"
	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/storage/memstore"
)

type testEnv struct {
	store *memstore.Store
	ts    *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

func newTestEnvWith(t *testing.T, tweak func(*config.Config)) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Port:          "0",
		Env:           config.EnvProduction,
		CORSOrigins:   []string{"*"},
		StorageDriver: config.DriverMemory,
		JWT: config.JWT{
			Secret:           "server-test-secret-value",
			Issuer:           "deepsea-test",
			ExpiresIn:        config.Duration(time.Hour),
			RefreshExpiresIn: config.Duration(24 * time.Hour),
		},
		NameCache: config.NameCache{Size: 16, TTL: config.Duration(time.Minute)},
	}
	if tweak != nil {
		tweak(cfg)
	}
	store := memstore.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := New(context.Background(), cfg, store, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{store: store, ts: ts}
}

func (e *testEnv) seedUser(t *testing.T, username, password string, codes ...string) models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	u, err := e.store.Users().Create(context.Background(), models.User{
		Username:     username,
		Email:        username + "@deepsea.local",
		Phone:        "+65-" + username,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(codes) > 0 {
		e.store.GrantRole(u.ID, "role-"+username, codes...)
	}
	return u
}

type reply struct {
	status int
	body   map[string]any
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) reply {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := reply{status: resp.StatusCode}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.body); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return out
}

func (e *testEnv) login(t *testing.T, username, password string) (string, string) {
	t.Helper()
	r := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	if r.status != http.StatusOK {
		t.Fatalf("login status = %d body = %v", r.status, r.body)
	}
	return r.body["token"].(string), r.body["refresh_token"].(string)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "ada", "s3cret!")

	r := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "ada", "password": "nope"})
	if r.status != http.StatusUnauthorized || r.body["kind"] != "invalid_credentials" {
		t.Fatalf("bad password = %d %v", r.status, r.body)
	}

	token, refresh := env.login(t, "ada", "s3cret!")

	r = env.do(t, http.MethodGet, "/auth/me", token, nil)
	if r.status != http.StatusOK || r.body["username"] != "ada" {
		t.Fatalf("me = %d %v", r.status, r.body)
	}
	if _, leaked := r.body["permissions"]; leaked {
		t.Fatal("me must not expose permission codes")
	}

	r = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	if r.status != http.StatusOK {
		t.Fatalf("refresh = %d %v", r.status, r.body)
	}
	rotated := r.body["token"].(string)

	r = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	if r.status != http.StatusUnauthorized {
		t.Fatalf("reused refresh token = %d %v", r.status, r.body)
	}
	if r = env.do(t, http.MethodGet, "/auth/me", token, nil); r.status != http.StatusUnauthorized {
		t.Fatalf("pre-rotation token still accepted: %d", r.status)
	}

	if r = env.do(t, http.MethodPost, "/api/auth/logout", rotated, nil); r.status != http.StatusOK {
		t.Fatalf("logout = %d %v", r.status, r.body)
	}
	if r = env.do(t, http.MethodGet, "/api/auth/me", rotated, nil); r.status != http.StatusUnauthorized {
		t.Fatalf("logged out token still accepted: %d", r.status)
	}
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t)

	r := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{})
	if r.status != http.StatusBadRequest || r.body["error"] != "Validation error" {
		t.Fatalf("empty login = %d %v", r.status, r.body)
	}
	messages, _ := r.body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v", r.body["messages"])
	}

	r = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{})
	if r.status != http.StatusBadRequest || r.body["kind"] != "missing_token" {
		t.Fatalf("empty refresh = %d %v", r.status, r.body)
	}
}

func TestUsersRequireAuthAndPermission(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "viewer", "s3cret!", auth.PermUsersView)
	token, _ := env.login(t, "viewer", "s3cret!")

	if r := env.do(t, http.MethodGet, "/users", "", nil); r.status != http.StatusUnauthorized {
		t.Fatalf("anonymous list = %d", r.status)
	}
	if r := env.do(t, http.MethodGet, "/users", token, nil); r.status != http.StatusOK {
		t.Fatalf("list = %d %v", r.status, r.body)
	}
	r := env.do(t, http.MethodPost, "/users", token, map[string]any{"username": "x"})
	if r.status != http.StatusForbidden || r.body["kind"] != "forbidden" {
		t.Fatalf("create without grant = %d %v", r.status, r.body)
	}
	if r := env.do(t, http.MethodGet, "/users/abc", token, nil); r.status != http.StatusBadRequest {
		t.Fatalf("bad id = %d", r.status)
	}
	if r := env.do(t, http.MethodGet, "/users/9999", token, nil); r.status != http.StatusNotFound {
		t.Fatalf("missing user = %d", r.status)
	}
}

func TestUsersCRUD(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "root", "s3cret!",
		auth.PermUsersView, auth.PermUsersCreate, auth.PermUsersUpdate, auth.PermUsersDelete)
	token, _ := env.login(t, "root", "s3cret!")

	create := map[string]any{
		"username": "grace",
		"email":    "grace@deepsea.local",
		"phone":    "+65-1000",
		"password": "hopper1",
	}
	r := env.do(t, http.MethodPost, "/api/create_users", token, create)
	if r.status != http.StatusCreated || r.body["message"] != "User created successfully" {
		t.Fatalf("create = %d %v", r.status, r.body)
	}
	user := r.body["user"].(map[string]any)
	if _, leaked := user["password_hash"]; leaked {
		t.Fatal("password hash leaked")
	}
	id := int64(user["id"].(float64))

	r = env.do(t, http.MethodPost, "/users", token, create)
	if r.status != http.StatusConflict || r.body["error"] != "Username already exists" {
		t.Fatalf("duplicate = %d %v", r.status, r.body)
	}

	path := "/users/" + jsonNumber(id)
	r = env.do(t, http.MethodPatch, path, token, map[string]any{"first_name": "Grace"})
	if r.status != http.StatusOK {
		t.Fatalf("update = %d %v", r.status, r.body)
	}
	if got := r.body["user"].(map[string]any)["first_name"]; got != "Grace" {
		t.Fatalf("first_name = %v", got)
	}
	r = env.do(t, http.MethodPut, path, token, map[string]any{"password": "other1"})
	if r.status != http.StatusBadRequest {
		t.Fatalf("password update = %d %v", r.status, r.body)
	}

	r = env.do(t, http.MethodGet, "/users?search=grace", token, nil)
	meta := r.body["meta"].(map[string]any)
	if r.status != http.StatusOK || meta["total"] != float64(1) || meta["limit"] != float64(25) {
		t.Fatalf("search = %d %v", r.status, r.body)
	}

	if r = env.do(t, http.MethodDelete, path, token, nil); r.status != http.StatusOK {
		t.Fatalf("delete = %d %v", r.status, r.body)
	}
	r = env.do(t, http.MethodGet, path, token, nil)
	if r.status != http.StatusOK || r.body["user"].(map[string]any)["is_active"] != false {
		t.Fatalf("deleted user = %d %v", r.status, r.body)
	}
}

func TestUsersListHugePage(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "root", "s3cret!", auth.PermUsersView)
	token, _ := env.login(t, "root", "s3cret!")

	r := env.do(t, http.MethodGet, "/users?page=92233720368547759&limit=200", token, nil)
	if r.status != http.StatusOK {
		t.Fatalf("huge page = %d %v", r.status, r.body)
	}
	if data, _ := r.body["data"].([]any); len(data) != 0 || r.body["meta"].(map[string]any)["total"] != float64(1) {
		t.Fatalf("huge page body = %v", r.body)
	}
}

func loginFrom(t *testing.T, env *testEnv, forwardedFor string) models.Session {
	t.Helper()
	raw, _ := json.Marshal(map[string]string{"username": "ada", "password": "s3cret!"})
	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/auth/login", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("login = %d, decode error %v", resp.StatusCode, err)
	}
	session, err := env.store.Sessions().FindActiveByToken(context.Background(), out.Token)
	if err != nil {
		t.Fatalf("FindActiveByToken() error = %v", err)
	}
	return session
}

func TestSessionAddressIgnoresForwardedHeadersByDefault(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "ada", "s3cret!")

	session := loginFrom(t, env, "203.0.113.9")
	if session.IPAddress != "127.0.0.1" {
		t.Fatalf("session ip = %q, want the socket address", session.IPAddress)
	}
}

func TestSessionAddressFromTrustedProxy(t *testing.T) {
	env := newTestEnvWith(t, func(c *config.Config) { c.TrustProxy = true })
	env.seedUser(t, "ada", "s3cret!")

	session := loginFrom(t, env, "203.0.113.9")
	if session.IPAddress != "203.0.113.9" {
		t.Fatalf("session ip = %q, want the forwarded address", session.IPAddress)
	}
}

func TestDirectoryRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "hr", "s3cret!",
		auth.PermDepartmentsView, auth.PermDepartmentsCreate, auth.PermJobTitlesView, auth.PermJobTitlesCreate)
	token, _ := env.login(t, "hr", "s3cret!")

	r := env.do(t, http.MethodPost, "/departments", token, map[string]any{"name": "Engineering"})
	if r.status != http.StatusCreated {
		t.Fatalf("create department = %d %v", r.status, r.body)
	}
	r = env.do(t, http.MethodPost, "/api/job-titles", token, map[string]any{"name": " "})
	if r.status != http.StatusBadRequest {
		t.Fatalf("blank job title = %d %v", r.status, r.body)
	}
	r = env.do(t, http.MethodGet, "/departments", token, nil)
	if list, _ := r.body["data"].([]any); r.status != http.StatusOK || len(list) != 1 {
		t.Fatalf("list departments = %d %v", r.status, r.body)
	}
	r = env.do(t, http.MethodDelete, "/departments/1", token, nil)
	if r.status != http.StatusForbidden {
		t.Fatalf("delete without grant = %d %v", r.status, r.body)
	}
}

func TestOperationalRoutes(t *testing.T) {
	env := newTestEnv(t)

	if r := env.do(t, http.MethodGet, "/health", "", nil); r.status != http.StatusOK || r.body["status"] != "ok" {
		t.Fatalf("health = %d %v", r.status, r.body)
	}
	if r := env.do(t, http.MethodGet, "/ready", "", nil); r.status != http.StatusOK || r.body["status"] != "ready" {
		t.Fatalf("ready = %d %v", r.status, r.body)
	}
	if r := env.do(t, http.MethodGet, "/api-docs.json", "", nil); r.status != http.StatusOK || r.body["openapi"] == nil {
		t.Fatalf("docs = %d", r.status)
	}
	for _, path := range []string{"/nowhere", "/api/nowhere"} {
		r := env.do(t, http.MethodGet, path, "", nil)
		if r.status != http.StatusNotFound || r.body["error"] != "Not found" {
			t.Fatalf("%s = %d %v", path, r.status, r.body)
		}
	}

	resp, err := http.Get(env.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
}

func jsonNumber(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}
