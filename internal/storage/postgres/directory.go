package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/storage"
	"github.com/jackc/pgx/v5"
)

var (
	_ storage.DepartmentStore = (*DirectoryStore)(nil)
	_ storage.JobTitleStore   = (*DirectoryStore)(nil)
)

const (
	departmentColumns = `id, name, description, manager_id, is_active, created_at, updated_at`
	jobTitleColumns   = `id, name, description, is_active, created_at, updated_at`
)

// DirectoryStore persists the department and job_title reference tables.
type DirectoryStore struct {
	db *db
}

// ListDepartments returns active departments ordered by id.
func (s *DirectoryStore) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	err := s.db.withConn(ctx, func(q querier) error {
		rows, err := q.Query(ctx, `SELECT `+departmentColumns+` FROM department WHERE is_active = true ORDER BY id ASC`)
		if err != nil {
			return fmt.Errorf("list departments: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			dep, err := scanDepartment(rows)
			if err != nil {
				return err
			}
			out = append(out, dep)
		}
		return rows.Err()
	})
	return out, err
}

// FindDepartment fetches an active department.
func (s *DirectoryStore) FindDepartment(ctx context.Context, id int64) (models.Department, error) {
	var dep models.Department
	err := s.db.withConn(ctx, func(q querier) error {
		var err error
		dep, err = scanDepartment(q.QueryRow(ctx,
			`SELECT `+departmentColumns+` FROM department WHERE id = $1 AND is_active = true`, id))
		return err
	})
	return dep, err
}

// DepartmentName returns the display name regardless of the active flag.
func (s *DirectoryStore) DepartmentName(ctx context.Context, id int64) (string, error) {
	return s.name(ctx, `SELECT name FROM department WHERE id = $1`, id)
}

// CreateDepartment inserts a department.
func (s *DirectoryStore) CreateDepartment(ctx context.Context, dep models.Department) (models.Department, error) {
	var created models.Department
	err := s.db.withConn(ctx, func(q querier) error {
		var err error
		created, err = scanDepartment(q.QueryRow(ctx, `
			INSERT INTO department (name, description, manager_id) VALUES ($1, $2, $3)
			RETURNING `+departmentColumns, dep.Name, dep.Description, dep.ManagerID))
		return err
	})
	return created, err
}

// UpdateDepartment applies the non-nil fields of patch to an active department.
func (s *DirectoryStore) UpdateDepartment(ctx context.Context, id int64, patch models.DepartmentPatch) (models.Department, error) {
	if patch.Empty() {
		return s.FindDepartment(ctx, id)
	}
	var fields []setField
	if patch.Name != nil {
		fields = append(fields, setField{"name", *patch.Name})
	}
	if patch.Description != nil {
		fields = append(fields, setField{"description", *patch.Description})
	}
	if patch.ManagerID != nil {
		fields = append(fields, setField{"manager_id", *patch.ManagerID})
	}
	query, args := buildUpdate("department", fields, id, departmentColumns)

	var updated models.Department
	err := s.db.withConn(ctx, func(q querier) error {
		var err error
		updated, err = scanDepartment(q.QueryRow(ctx, query, args...))
		return err
	})
	return updated, err
}

// SoftDeleteDepartment deactivates a department.
func (s *DirectoryStore) SoftDeleteDepartment(ctx context.Context, id int64) error {
	return s.softDelete(ctx, "department", id)
}

// ListJobTitles returns active job titles ordered by id.
func (s *DirectoryStore) ListJobTitles(ctx context.Context) ([]models.JobTitle, error) {
	var out []models.JobTitle
	err := s.db.withConn(ctx, func(q querier) error {
		rows, err := q.Query(ctx, `SELECT `+jobTitleColumns+` FROM job_title WHERE is_active = true ORDER BY id ASC`)
		if err != nil {
			return fmt.Errorf("list job titles: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			jt, err := scanJobTitle(rows)
			if err != nil {
				return err
			}
			out = append(out, jt)
		}
		return rows.Err()
	})
	return out, err
}

// FindJobTitle fetches an active job title.
func (s *DirectoryStore) FindJobTitle(ctx context.Context, id int64) (models.JobTitle, error) {
	var jt models.JobTitle
	err := s.db.withConn(ctx, func(q querier) error {
		var err error
		jt, err = scanJobTitle(q.QueryRow(ctx,
			`SELECT `+jobTitleColumns+` FROM job_title WHERE id = $1 AND is_active = true`, id))
		return err
	})
	return jt, err
}

// JobTitleName returns the display name regardless of the active flag.
func (s *DirectoryStore) JobTitleName(ctx context.Context, id int64) (string, error) {
	return s.name(ctx, `SELECT name FROM job_title WHERE id = $1`, id)
}

// CreateJobTitle inserts a job title.
func (s *DirectoryStore) CreateJobTitle(ctx context.Context, jt models.JobTitle) (models.JobTitle, error) {
	var created models.JobTitle
	err := s.db.withConn(ctx, func(q querier) error {
		var err error
		created, err = scanJobTitle(q.QueryRow(ctx, `
			INSERT INTO job_title (name, description) VALUES ($1, $2)
			RETURNING `+jobTitleColumns, jt.Name, jt.Description))
		return err
	})
	return created, err
}

// UpdateJobTitle applies the non-nil fields of patch to an active job title.
func (s *DirectoryStore) UpdateJobTitle(ctx context.Context, id int64, patch models.JobTitlePatch) (models.JobTitle, error) {
	if patch.Empty() {
		return s.FindJobTitle(ctx, id)
	}
	var fields []setField
	if patch.Name != nil {
		fields = append(fields, setField{"name", *patch.Name})
	}
	if patch.Description != nil {
		fields = append(fields, setField{"description", *patch.Description})
	}
	query, args := buildUpdate("job_title", fields, id, jobTitleColumns)

	var updated models.JobTitle
	err := s.db.withConn(ctx, func(q querier) error {
		var err error
		updated, err = scanJobTitle(q.QueryRow(ctx, query, args...))
		return err
	})
	return updated, err
}

// SoftDeleteJobTitle deactivates a job title.
func (s *DirectoryStore) SoftDeleteJobTitle(ctx context.Context, id int64) error {
	return s.softDelete(ctx, "job_title", id)
}

func (s *DirectoryStore) name(ctx context.Context, query string, id int64) (string, error) {
	var name string
	err := s.db.withConn(ctx, func(q querier) error {
		return notFound(q.QueryRow(ctx, query, id).Scan(&name))
	})
	return name, err
}

func (s *DirectoryStore) softDelete(ctx context.Context, table string, id int64) error {
	return s.db.withConn(ctx, func(q querier) error {
		tag, err := q.Exec(ctx,
			`UPDATE `+table+` SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true`, id)
		if err != nil {
			return fmt.Errorf("soft delete %s: %w", table, err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

type setField struct {
	column string
	value  any
}

func buildUpdate(table string, fields []setField, id int64, returning string) (string, []any) {
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, f := range fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", f.column, i+1))
		args = append(args, f.value)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE %s SET %s, updated_at = NOW() WHERE id = $%d AND is_active = true RETURNING %s`,
		table, strings.Join(sets, ", "), len(args), returning)
	return query, args
}

func scanDepartment(row pgx.Row) (models.Department, error) {
	var d models.Department
	if err := row.Scan(&d.ID, &d.Name, &d.Description, &d.ManagerID, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return models.Department{}, notFound(err)
	}
	return d, nil
}

func scanJobTitle(row pgx.Row) (models.JobTitle, error) {
	var j models.JobTitle
	if err := row.Scan(&j.ID, &j.Name, &j.Description, &j.IsActive, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return models.JobTitle{}, notFound(err)
	}
	return j, nil
}
