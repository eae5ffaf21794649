// Package memstore keeps the whole directory in process memory. It backs
// local runs without Postgres and the unit tests of the layers above storage.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/storage"
)

var (
	_ storage.Store          = (*Store)(nil)
	_ storage.AdminBootstrap = (*Store)(nil)
)

type state struct {
	mu sync.Mutex
	// now stamps created_at and last_login.
	now func() time.Time

	nextID      int64
	users       map[int64]models.User
	sessions    map[int64]models.Session
	departments map[int64]models.Department
	jobTitles   map[int64]models.JobTitle
	permissions map[string]models.Permission
	roles       map[string]map[string]struct{}
	userRoles   map[int64]map[string]struct{}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store is an in-memory storage.Store.
type Store struct {
	st *state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: &state{
		now:         time.Now,
		users:       map[int64]models.User{},
		sessions:    map[int64]models.Session{},
		departments: map[int64]models.Department{},
		jobTitles:   map[int64]models.JobTitle{},
		permissions: map[string]models.Permission{},
		roles:       map[string]map[string]struct{}{},
		userRoles:   map[int64]map[string]struct{}{},
	}}
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.now = now
}

func (s *Store) Users() storage.UserStore             { return userStore{s.st} }
func (s *Store) Sessions() storage.SessionStore       { return sessionStore{s.st} }
func (s *Store) Permissions() storage.PermissionStore { return permissionStore{s.st} }
func (s *Store) Departments() storage.DepartmentStore { return directoryStore{s.st} }
func (s *Store) JobTitles() storage.JobTitleStore     { return directoryStore{s.st} }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// GrantRole creates role with the given codes if needed and assigns it to userID.
func (s *Store) GrantRole(userID int64, role string, codes ...string) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	grants, ok := s.st.roles[role]
	if !ok {
		grants = map[string]struct{}{}
		s.st.roles[role] = grants
	}
	for _, code := range codes {
		if _, exists := s.st.permissions[code]; !exists {
			s.st.permissions[code] = models.Permission{ID: s.st.id(), Code: code, Name: code}
		}
		grants[code] = struct{}{}
	}
	if s.st.userRoles[userID] == nil {
		s.st.userRoles[userID] = map[string]struct{}{}
	}
	s.st.userRoles[userID][role] = struct{}{}
}

// UpsertPermissions inserts unknown codes and reports how many were new.
func (s *Store) UpsertPermissions(_ context.Context, perms []models.Permission) (int, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	inserted := 0
	for _, p := range perms {
		if _, ok := s.st.permissions[p.Code]; ok {
			continue
		}
		p.ID = s.st.id()
		s.st.permissions[p.Code] = p
		inserted++
	}
	return inserted, nil
}

// BootstrapAdmin upserts the admin and grants role every known permission.
func (s *Store) BootstrapAdmin(_ context.Context, user models.User, role string) (models.User, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	var admin models.User
	found := false
	for id, u := range s.st.users {
		if u.Username == user.Username {
			u.PasswordHash = user.PasswordHash
			u.IsActive = true
			u.UpdatedAt = s.st.now()
			s.st.users[id] = u
			admin, found = u, true
			break
		}
	}
	if !found {
		if conflict := s.st.uniqueConflict(0, user.Username, user.Email, user.Phone); conflict {
			return models.User{}, storage.ErrAlreadyExists
		}
		now := s.st.now()
		user.ID = s.st.id()
		user.IsActive, user.IsVerified = true, true
		user.CreatedAt, user.UpdatedAt = now, now
		s.st.users[user.ID] = user
		admin = user
	}

	grants, ok := s.st.roles[role]
	if !ok {
		grants = map[string]struct{}{}
		s.st.roles[role] = grants
	}
	for code := range s.st.permissions {
		grants[code] = struct{}{}
	}
	if s.st.userRoles[admin.ID] == nil {
		s.st.userRoles[admin.ID] = map[string]struct{}{}
	}
	s.st.userRoles[admin.ID][role] = struct{}{}
	return admin, nil
}

// uniqueConflict reports whether another user already owns one of the values.
func (s *state) uniqueConflict(selfID int64, username, email, phone string) bool {
	for id, u := range s.users {
		if id == selfID {
			continue
		}
		if u.Username == username || u.Email == email || (phone != "" && u.Phone == phone) {
			return true
		}
	}
	return false
}

// checkRefs mirrors the users foreign keys. Soft-deleted rows still count.
func (s *state) checkRefs(departmentID, jobTitleID *int64) error {
	if departmentID != nil {
		if _, ok := s.departments[*departmentID]; !ok {
			return storage.ErrUnknownDepartment
		}
	}
	if jobTitleID != nil {
		if _, ok := s.jobTitles[*jobTitleID]; !ok {
			return storage.ErrUnknownJobTitle
		}
	}
	return nil
}

type userStore struct{ st *state }

func (s userStore) find(match func(models.User) bool) (models.User, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	for _, u := range s.st.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s userStore) FindByID(_ context.Context, id int64) (models.User, error) {
	return s.find(func(u models.User) bool { return u.ID == id })
}

func (s userStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.Username == username })
}

func (s userStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.Email == email })
}

func (s userStore) FindByPhone(_ context.Context, phone string) (models.User, error) {
	return s.find(func(u models.User) bool { return phone != "" && u.Phone == phone })
}

func (s userStore) List(_ context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []models.User
	for _, u := range s.st.users {
		if search == "" || matchesSearch(u, search) {
			matched = append(matched, u)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	start := filter.Offset()
	if start < 0 || start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func matchesSearch(u models.User, needle string) bool {
	fields := []string{u.Username, u.Email}
	if u.FirstName != nil {
		fields = append(fields, *u.FirstName)
	}
	if u.LastName != nil {
		fields = append(fields, *u.LastName)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func (s userStore) Create(_ context.Context, user models.User) (models.User, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if s.st.uniqueConflict(0, user.Username, user.Email, user.Phone) {
		return models.User{}, storage.ErrAlreadyExists
	}
	if err := s.st.checkRefs(user.DepartmentID, user.JobTitleID); err != nil {
		return models.User{}, err
	}
	now := s.st.now()
	user.ID = s.st.id()
	user.CreatedAt, user.UpdatedAt = now, now
	s.st.users[user.ID] = user
	return user, nil
}

func (s userStore) Update(_ context.Context, id int64, patch models.UserPatch) (models.User, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	u, ok := s.st.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	if patch.Empty() {
		return u, nil
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if s.st.uniqueConflict(id, u.Username, u.Email, u.Phone) {
		return models.User{}, storage.ErrAlreadyExists
	}
	if err := s.st.checkRefs(patch.DepartmentID, patch.JobTitleID); err != nil {
		return models.User{}, err
	}
	if patch.FirstName != nil {
		u.FirstName = patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = patch.LastName
	}
	if patch.MiddleName != nil {
		u.MiddleName = patch.MiddleName
	}
	if patch.DepartmentID != nil {
		u.DepartmentID = patch.DepartmentID
	}
	if patch.JobTitleID != nil {
		u.JobTitleID = patch.JobTitleID
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if patch.IsVerified != nil {
		u.IsVerified = *patch.IsVerified
	}
	u.UpdatedAt = s.st.now()
	s.st.users[id] = u
	return u, nil
}

func (s userStore) SoftDelete(_ context.Context, id int64) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	u, ok := s.st.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.IsActive = false
	u.UpdatedAt = s.st.now()
	s.st.users[id] = u
	return nil
}

func (s userStore) UpdateLastLogin(_ context.Context, id int64) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	u, ok := s.st.users[id]
	if !ok {
		return nil
	}
	now := s.st.now()
	u.LastLogin = &now
	s.st.users[id] = u
	return nil
}

type sessionStore struct{ st *state }

func (s sessionStore) Create(_ context.Context, session models.Session) (models.Session, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.insertLocked(session)
}

func (s sessionStore) insertLocked(session models.Session) (models.Session, error) {
	for _, existing := range s.st.sessions {
		if existing.IsActive && (existing.Token == session.Token || existing.RefreshToken == session.RefreshToken) {
			return models.Session{}, storage.ErrAlreadyExists
		}
	}
	session.ID = s.st.id()
	session.IsActive = true
	session.CreatedAt = s.st.now()
	s.st.sessions[session.ID] = session
	return session, nil
}

func (s sessionStore) findActive(match func(models.Session) bool) (models.Session, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	for _, sess := range s.st.sessions {
		if sess.IsActive && match(sess) {
			return sess, nil
		}
	}
	return models.Session{}, storage.ErrNotFound
}

func (s sessionStore) FindActiveByToken(_ context.Context, token string) (models.Session, error) {
	return s.findActive(func(sess models.Session) bool { return sess.Token == token })
}

func (s sessionStore) FindActiveByRefreshToken(_ context.Context, refreshToken string) (models.Session, error) {
	return s.findActive(func(sess models.Session) bool { return sess.RefreshToken == refreshToken })
}

func (s sessionStore) Deactivate(_ context.Context, token string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.deactivateLocked(token)
	return nil
}

func (s sessionStore) deactivateLocked(token string) bool {
	for id, sess := range s.st.sessions {
		if sess.IsActive && sess.Token == token {
			sess.IsActive = false
			s.st.sessions[id] = sess
			return true
		}
	}
	return false
}

func (s sessionStore) DeactivateAllForUser(_ context.Context, userID int64) (int64, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	var n int64
	for id, sess := range s.st.sessions {
		if sess.IsActive && sess.UserID == userID {
			sess.IsActive = false
			s.st.sessions[id] = sess
			n++
		}
	}
	return n, nil
}

func (s sessionStore) Rotate(_ context.Context, oldToken string, next models.Session) (models.Session, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if !s.deactivateLocked(oldToken) {
		return models.Session{}, storage.ErrNotFound
	}
	return s.insertLocked(next)
}

type permissionStore struct{ st *state }

func (s permissionStore) PermissionsForUser(_ context.Context, userID int64) ([]string, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	set := map[string]struct{}{}
	for role := range s.st.userRoles[userID] {
		for code := range s.st.roles[role] {
			set[code] = struct{}{}
		}
	}
	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

func (s permissionStore) UserHasPermission(_ context.Context, userID int64, code string) (bool, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	for role := range s.st.userRoles[userID] {
		if _, ok := s.st.roles[role][code]; ok {
			return true, nil
		}
	}
	return false, nil
}
