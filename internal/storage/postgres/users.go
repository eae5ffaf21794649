package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/storage"
	"github.com/jackc/pgx/v5"
)

var _ storage.UserStore = (*UserStore)(nil)

const userColumns = `id, username, email, COALESCE(phone, ''), password_hash, first_name, last_name, middle_name,
	department_id, job_title_id, is_active, is_verified, last_login, created_at, updated_at`

// UserStore is the Postgres credential store.
type UserStore struct {
	db *db
}

func (s *UserStore) findOne(ctx context.Context, where string, arg any) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	var user models.User
	err := s.db.withConn(ctx, func(q querier) error {
		var err error
		user, err = scanUser(q.QueryRow(ctx, query, arg))
		return err
	})
	return user, err
}

// FindByID fetches a user by primary key.
func (s *UserStore) FindByID(ctx context.Context, id int64) (models.User, error) {
	return s.findOne(ctx, "id = $1", id)
}

// FindByUsername fetches a user by username.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return s.findOne(ctx, "username = $1", username)
}

// FindByEmail fetches a user by email address.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, "email = $1", email)
}

// FindByPhone fetches a user by phone number.
func (s *UserStore) FindByPhone(ctx context.Context, phone string) (models.User, error) {
	return s.findOne(ctx, "phone = $1", phone)
}

// List returns one page of users ordered by id, plus the total match count.
func (s *UserStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	where := ""
	args := []any{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = ` WHERE username ILIKE $1 OR email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1`
	}

	var (
		users []models.User
		total int64
	)
	err := s.db.withConn(ctx, func(q querier) error {
		if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("count users: %w", err)
		}

		pageArgs := append(args, filter.Limit, filter.Offset())
		query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY id ASC LIMIT $%d OFFSET $%d`,
			userColumns, where, len(args)+1, len(args)+2)
		rows, err := q.Query(ctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			user, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, user)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Create inserts a new user row.
func (s *UserStore) Create(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (username, email, phone, password_hash, first_name, last_name, middle_name,
			department_id, job_title_id, is_active, is_verified)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + userColumns

	var created models.User
	err := s.db.withConn(ctx, func(q querier) error {
		var err error
		created, err = scanUser(q.QueryRow(ctx, query,
			user.Username, user.Email, user.Phone, user.PasswordHash,
			user.FirstName, user.LastName, user.MiddleName,
			user.DepartmentID, user.JobTitleID, user.IsActive, user.IsVerified,
		))
		return err
	})
	if err != nil {
		return models.User{}, userWriteErr(err)
	}
	return created, nil
}

// Update applies the non-nil fields of patch.
func (s *UserStore) Update(ctx context.Context, id int64, patch models.UserPatch) (models.User, error) {
	if patch.Empty() {
		return s.FindByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Username != nil {
		add("username", *patch.Username)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Phone != nil {
		args = append(args, *patch.Phone)
		sets = append(sets, fmt.Sprintf("phone = NULLIF($%d, '')", len(args)))
	}
	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.MiddleName != nil {
		add("middle_name", *patch.MiddleName)
	}
	if patch.DepartmentID != nil {
		add("department_id", *patch.DepartmentID)
	}
	if patch.JobTitleID != nil {
		add("job_title_id", *patch.JobTitleID)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if patch.IsVerified != nil {
		add("is_verified", *patch.IsVerified)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	var updated models.User
	err := s.db.withConn(ctx, func(q querier) error {
		var err error
		updated, err = scanUser(q.QueryRow(ctx, query, args...))
		return err
	})
	if err != nil {
		return models.User{}, userWriteErr(err)
	}
	return updated, nil
}

// SoftDelete deactivates the user; rows are never removed.
func (s *UserStore) SoftDelete(ctx context.Context, id int64) error {
	return s.db.withConn(ctx, func(q querier) error {
		tag, err := q.Exec(ctx, `UPDATE users SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("soft delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// UpdateLastLogin stamps the login time.
func (s *UserStore) UpdateLastLogin(ctx context.Context, id int64) error {
	return s.db.withConn(ctx, func(q querier) error {
		_, err := q.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id)
		return err
	})
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.Phone, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.MiddleName,
		&user.DepartmentID, &user.JobTitleID, &user.IsActive, &user.IsVerified,
		&user.LastLogin, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}
