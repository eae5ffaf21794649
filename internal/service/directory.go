package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hongminglow/deepsea-be/internal/apperr"
	"github.com/hongminglow/deepsea-be/internal/auth"
	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/models/dto"
	"github.com/hongminglow/deepsea-be/internal/storage"
)

// NameCache is notified when a cached display name may be stale.
type NameCache interface {
	ForgetDepartment(id int64)
	ForgetJobTitle(id int64)
}

type noCache struct{}

func (noCache) ForgetDepartment(int64) {}
func (noCache) ForgetJobTitle(int64)   {}

func cacheOrNoop(c NameCache) NameCache {
	if c == nil {
		return noCache{}
	}
	return c
}

func checkName(name *string, required bool) (*string, error) {
	if name == nil {
		if required {
			return nil, apperr.New(apperr.Validation, "Name required")
		}
		return nil, nil
	}
	n := strings.TrimSpace(*name)
	if n == "" {
		if required {
			return nil, apperr.New(apperr.Validation, "Name required")
		}
		return nil, apperr.New(apperr.Validation, "Invalid name")
	}
	if len(n) > maxNameLen {
		return nil, apperr.New(apperr.Validation, "Invalid name")
	}
	return &n, nil
}

// Departments manages the department catalogue.
type Departments struct {
	gate   Gate
	store  storage.DepartmentStore
	cache  NameCache
	logger *slog.Logger
}

func NewDepartments(gate Gate, store storage.DepartmentStore, cache NameCache, logger *slog.Logger) *Departments {
	return &Departments{gate: gate, store: store, cache: cacheOrNoop(cache), logger: logger}
}

func (s *Departments) List(ctx context.Context, actor *auth.Actor) ([]models.Department, error) {
	if err := s.gate.Require(ctx, actor, auth.PermDepartmentsView); err != nil {
		return nil, err
	}
	deps, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, storeErr("list departments", err)
	}
	if deps == nil {
		deps = []models.Department{}
	}
	return deps, nil
}

func (s *Departments) Get(ctx context.Context, actor *auth.Actor, rawID string) (models.Department, error) {
	if err := s.gate.Require(ctx, actor, auth.PermDepartmentsView); err != nil {
		return models.Department{}, err
	}
	id, err := parseID(rawID, "Invalid department id")
	if err != nil {
		return models.Department{}, err
	}
	dep, err := s.store.FindDepartment(ctx, id)
	return dep, departmentErr("find department", err)
}

func (s *Departments) Create(ctx context.Context, actor *auth.Actor, req dto.DepartmentRequest) (models.Department, error) {
	if err := s.gate.Require(ctx, actor, auth.PermDepartmentsCreate); err != nil {
		return models.Department{}, err
	}
	name, err := checkName(req.Name, true)
	if err != nil {
		return models.Department{}, err
	}
	if req.ManagerID != nil && *req.ManagerID < 1 {
		return models.Department{}, apperr.New(apperr.Validation, "Invalid manager id")
	}
	dep, err := s.store.CreateDepartment(ctx, models.Department{
		Name:        *name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
		IsActive:    true,
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return models.Department{}, apperr.New(apperr.Conflict, "Department already exists")
	}
	if err != nil {
		return models.Department{}, storeErr("create department", err)
	}
	s.logger.Info("department created", slog.Int64("department_id", dep.ID), slog.Int64("by", actor.ID))
	return dep, nil
}

func (s *Departments) Update(ctx context.Context, actor *auth.Actor, rawID string, req dto.DepartmentRequest) (models.Department, error) {
	if err := s.gate.Require(ctx, actor, auth.PermDepartmentsUpdate); err != nil {
		return models.Department{}, err
	}
	id, err := parseID(rawID, "Invalid department id")
	if err != nil {
		return models.Department{}, err
	}
	name, err := checkName(req.Name, false)
	if err != nil {
		return models.Department{}, err
	}
	if req.ManagerID != nil && *req.ManagerID < 1 {
		return models.Department{}, apperr.New(apperr.Validation, "Invalid manager id")
	}
	dep, err := s.store.UpdateDepartment(ctx, id, models.DepartmentPatch{
		Name:        name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
	})
	if err := departmentErr("update department", err); err != nil {
		return models.Department{}, err
	}
	s.cache.ForgetDepartment(id)
	return dep, nil
}

func (s *Departments) Delete(ctx context.Context, actor *auth.Actor, rawID string) error {
	if err := s.gate.Require(ctx, actor, auth.PermDepartmentsDelete); err != nil {
		return err
	}
	id, err := parseID(rawID, "Invalid department id")
	if err != nil {
		return err
	}
	if err := departmentErr("delete department", s.store.SoftDeleteDepartment(ctx, id)); err != nil {
		return err
	}
	s.cache.ForgetDepartment(id)
	s.logger.Info("department deleted", slog.Int64("department_id", id), slog.Int64("by", actor.ID))
	return nil
}

func departmentErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return apperr.New(apperr.NotFound, "Department not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		return apperr.New(apperr.Conflict, "Department already exists")
	default:
		return storeErr(op, err)
	}
}

// JobTitles manages the job title catalogue.
type JobTitles struct {
	gate   Gate
	store  storage.JobTitleStore
	cache  NameCache
	logger *slog.Logger
}

func NewJobTitles(gate Gate, store storage.JobTitleStore, cache NameCache, logger *slog.Logger) *JobTitles {
	return &JobTitles{gate: gate, store: store, cache: cacheOrNoop(cache), logger: logger}
}

func (s *JobTitles) List(ctx context.Context, actor *auth.Actor) ([]models.JobTitle, error) {
	if err := s.gate.Require(ctx, actor, auth.PermJobTitlesView); err != nil {
		return nil, err
	}
	titles, err := s.store.ListJobTitles(ctx)
	if err != nil {
		return nil, storeErr("list job titles", err)
	}
	if titles == nil {
		titles = []models.JobTitle{}
	}
	return titles, nil
}

func (s *JobTitles) Get(ctx context.Context, actor *auth.Actor, rawID string) (models.JobTitle, error) {
	if err := s.gate.Require(ctx, actor, auth.PermJobTitlesView); err != nil {
		return models.JobTitle{}, err
	}
	id, err := parseID(rawID, "Invalid job title id")
	if err != nil {
		return models.JobTitle{}, err
	}
	jt, err := s.store.FindJobTitle(ctx, id)
	return jt, jobTitleErr("find job title", err)
}

func (s *JobTitles) Create(ctx context.Context, actor *auth.Actor, req dto.JobTitleRequest) (models.JobTitle, error) {
	if err := s.gate.Require(ctx, actor, auth.PermJobTitlesCreate); err != nil {
		return models.JobTitle{}, err
	}
	name, err := checkName(req.Name, true)
	if err != nil {
		return models.JobTitle{}, err
	}
	jt, err := s.store.CreateJobTitle(ctx, models.JobTitle{Name: *name, Description: req.Description, IsActive: true})
	if err := jobTitleErr("create job title", err); err != nil {
		return models.JobTitle{}, err
	}
	s.logger.Info("job title created", slog.Int64("job_title_id", jt.ID), slog.Int64("by", actor.ID))
	return jt, nil
}

func (s *JobTitles) Update(ctx context.Context, actor *auth.Actor, rawID string, req dto.JobTitleRequest) (models.JobTitle, error) {
	if err := s.gate.Require(ctx, actor, auth.PermJobTitlesUpdate); err != nil {
		return models.JobTitle{}, err
	}
	id, err := parseID(rawID, "Invalid job title id")
	if err != nil {
		return models.JobTitle{}, err
	}
	name, err := checkName(req.Name, false)
	if err != nil {
		return models.JobTitle{}, err
	}
	jt, err := s.store.UpdateJobTitle(ctx, id, models.JobTitlePatch{Name: name, Description: req.Description})
	if err := jobTitleErr("update job title", err); err != nil {
		return models.JobTitle{}, err
	}
	s.cache.ForgetJobTitle(id)
	return jt, nil
}

func (s *JobTitles) Delete(ctx context.Context, actor *auth.Actor, rawID string) error {
	if err := s.gate.Require(ctx, actor, auth.PermJobTitlesDelete); err != nil {
		return err
	}
	id, err := parseID(rawID, "Invalid job title id")
	if err != nil {
		return err
	}
	if err := jobTitleErr("delete job title", s.store.SoftDeleteJobTitle(ctx, id)); err != nil {
		return err
	}
	s.cache.ForgetJobTitle(id)
	s.logger.Info("job title deleted", slog.Int64("job_title_id", id), slog.Int64("by", actor.ID))
	return nil
}

func jobTitleErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return apperr.New(apperr.NotFound, "Job title not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		return apperr.New(apperr.Conflict, "Job title already exists")
	default:
		return storeErr(op, err)
	}
}
