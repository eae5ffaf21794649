package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/hongminglow/deepsea-be/internal/apperr"
	"github.com/hongminglow/deepsea-be/internal/auth"
	"github.com/hongminglow/deepsea-be/internal/models/dto"
	"github.com/hongminglow/deepsea-be/internal/storage/memstore"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

type recordingCache struct {
	departments []int64
	jobTitles   []int64
}

func (r *recordingCache) ForgetDepartment(id int64) { r.departments = append(r.departments, id) }
func (r *recordingCache) ForgetJobTitle(id int64)   { r.jobTitles = append(r.jobTitles, id) }

func TestDepartmentsLifecycle(t *testing.T) {
	store := memstore.New()
	cache := &recordingCache{}
	svc := NewDepartments(auth.NewGate(store.Permissions(), discardLogger()), store.Departments(), cache, discardLogger())
	admin := actorWith(1, auth.PermDepartmentsView, auth.PermDepartmentsCreate, auth.PermDepartmentsUpdate, auth.PermDepartmentsDelete)
	ctx := context.Background()

	if _, err := svc.Create(ctx, admin, dto.DepartmentRequest{Name: strPtr("   ")}); err == nil {
		t.Fatal("Create(blank name) succeeded")
	} else if e, _ := apperr.As(err); e.Message != "Name required" {
		t.Fatalf("Create(blank name) message = %q", e.Message)
	}

	dep, err := svc.Create(ctx, admin, dto.DepartmentRequest{Name: strPtr(" Finance "), Description: strPtr("Money")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if dep.Name != "Finance" || !dep.IsActive {
		t.Fatalf("created = %+v", dep)
	}

	manager := int64(7)
	updated, err := svc.Update(ctx, admin, itoa(dep.ID), dto.DepartmentRequest{ManagerID: &manager})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ManagerID == nil || *updated.ManagerID != 7 || updated.Name != "Finance" {
		t.Fatalf("updated = %+v", updated)
	}

	if err := svc.Delete(ctx, admin, itoa(dep.ID)); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	list, err := svc.List(ctx, admin)
	if err != nil || len(list) != 0 {
		t.Fatalf("List() after delete = %v, %v", list, err)
	}
	if _, err := svc.Get(ctx, admin, itoa(dep.ID)); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("Get(deleted) kind = %v", apperr.KindOf(err))
	}
	if len(cache.departments) != 2 {
		t.Fatalf("cache invalidations = %v, want update and delete", cache.departments)
	}
}

func TestDepartmentsCheckOrder(t *testing.T) {
	store := memstore.New()
	svc := NewDepartments(auth.NewGate(store.Permissions(), discardLogger()), store.Departments(), nil, discardLogger())
	ctx := context.Background()

	if _, err := svc.Get(ctx, actorWith(1), "nope"); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("Get() without permission kind = %v", apperr.KindOf(err))
	}
	viewer := actorWith(1, auth.PermDepartmentsView)
	_, err := svc.Get(ctx, viewer, "nope")
	if e, ok := apperr.As(err); !ok || e.Message != "Invalid department id" {
		t.Fatalf("Get(bad id) error = %v", err)
	}
	_, err = svc.Get(ctx, viewer, "12")
	if e, ok := apperr.As(err); !ok || e.Message != "Department not found" {
		t.Fatalf("Get(missing) error = %v", err)
	}
}

func TestJobTitlesLifecycle(t *testing.T) {
	store := memstore.New()
	cache := &recordingCache{}
	svc := NewJobTitles(auth.NewGate(store.Permissions(), discardLogger()), store.JobTitles(), cache, discardLogger())
	ctx := context.Background()

	// Store-resolved grants work as well as a pre-resolved actor.
	store.GrantRole(3, "hr", auth.PermJobTitlesView, auth.PermJobTitlesCreate, auth.PermJobTitlesUpdate)
	hr := actorWith(3)
	hr.Permissions = nil

	jt, err := svc.Create(ctx, hr, dto.JobTitleRequest{Name: strPtr("Analyst")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	renamed, err := svc.Update(ctx, hr, itoa(jt.ID), dto.JobTitleRequest{Name: strPtr("Senior Analyst")})
	if err != nil || renamed.Name != "Senior Analyst" {
		t.Fatalf("Update() = %+v, %v", renamed, err)
	}
	if _, err := svc.Update(ctx, hr, itoa(jt.ID), dto.JobTitleRequest{Name: strPtr("")}); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("Update(blank name) kind = %v", apperr.KindOf(err))
	}

	err = svc.Delete(ctx, hr, itoa(jt.ID))
	if e, ok := apperr.As(err); !ok || e.Message != "Forbidden: missing permission job_titles.delete" {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(cache.jobTitles) != 1 || cache.jobTitles[0] != jt.ID {
		t.Fatalf("cache invalidations = %v", cache.jobTitles)
	}

	titles, err := svc.List(ctx, hr)
	if err != nil || len(titles) != 1 {
		t.Fatalf("List() = %v, %v", titles, err)
	}
	if _, err := svc.Get(ctx, hr, "0"); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("Get(0) kind = %v", apperr.KindOf(err))
	}
}
