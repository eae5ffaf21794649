package postgres

import (
	"context"
	"fmt"

	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/storage"
	"github.com/jackc/pgx/v5"
)

var _ storage.PermissionStore = (*PermissionStore)(nil)

// PermissionStore resolves grants through user_roles and role_permissions.
type PermissionStore struct {
	db *db
}

// PermissionsForUser returns the distinct codes reachable through all of a user's roles.
func (s *PermissionStore) PermissionsForUser(ctx context.Context, userID int64) ([]string, error) {
	const query = `
		SELECT DISTINCT p.code
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY p.code`

	var codes []string
	err := s.db.withConn(ctx, func(q querier) error {
		rows, err := q.Query(ctx, query, userID)
		if err != nil {
			return fmt.Errorf("query permissions: %w", err)
		}
		codes, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// UserHasPermission checks for one matching grant row.
func (s *PermissionStore) UserHasPermission(ctx context.Context, userID int64, code string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE ur.user_id = $1 AND p.code = $2
		)`

	var ok bool
	err := s.db.withConn(ctx, func(q querier) error {
		return q.QueryRow(ctx, query, userID, code).Scan(&ok)
	})
	return ok, err
}

// UpsertPermissions inserts missing permission codes and reports how many were new.
func (s *Store) UpsertPermissions(ctx context.Context, perms []models.Permission) (int, error) {
	inserted := 0
	err := s.db.inTx(ctx, func(tx pgx.Tx) error {
		for _, p := range perms {
			tag, err := tx.Exec(ctx,
				`INSERT INTO permissions (code, name, description) VALUES ($1, $2, $3) ON CONFLICT (code) DO NOTHING`,
				p.Code, p.Name, p.Description)
			if err != nil {
				return fmt.Errorf("insert permission %s: %w", p.Code, err)
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// BootstrapAdmin upserts the admin user and grants it a role holding every permission.
func (s *Store) BootstrapAdmin(ctx context.Context, user models.User, role string) (models.User, error) {
	const upsertUser = `
		INSERT INTO users (username, email, phone, password_hash, is_active, is_verified)
		VALUES ($1, $2, NULLIF($3, ''), $4, true, true)
		ON CONFLICT (username) DO UPDATE
			SET password_hash = EXCLUDED.password_hash, is_active = true, updated_at = NOW()
		RETURNING ` + userColumns

	var admin models.User
	err := s.db.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		admin, err = scanUser(tx.QueryRow(ctx, upsertUser, user.Username, user.Email, user.Phone, user.PasswordHash))
		if err != nil {
			return fmt.Errorf("upsert admin user: %w", err)
		}

		var roleID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO roles (name, description) VALUES ($1, 'System administrator role with all permissions')
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, role).Scan(&roleID)
		if err != nil {
			return fmt.Errorf("ensure role %s: %w", role, err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1, id FROM permissions
			ON CONFLICT DO NOTHING`, roleID); err != nil {
			return fmt.Errorf("grant permissions: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			admin.ID, roleID); err != nil {
			return fmt.Errorf("assign role: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return admin, nil
}
