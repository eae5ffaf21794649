package memstore

import (
	"context"
	"sort"

	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/storage"
)

type directoryStore struct{ st *state }

func (s directoryStore) ListDepartments(context.Context) ([]models.Department, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	out := []models.Department{}
	for _, d := range s.st.departments {
		if d.IsActive {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s directoryStore) FindDepartment(_ context.Context, id int64) (models.Department, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	d, ok := s.st.departments[id]
	if !ok || !d.IsActive {
		return models.Department{}, storage.ErrNotFound
	}
	return d, nil
}

func (s directoryStore) DepartmentName(_ context.Context, id int64) (string, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	d, ok := s.st.departments[id]
	if !ok {
		return "", storage.ErrNotFound
	}
	return d.Name, nil
}

func (s directoryStore) CreateDepartment(_ context.Context, dep models.Department) (models.Department, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	now := s.st.now()
	dep.ID = s.st.id()
	dep.IsActive = true
	dep.CreatedAt, dep.UpdatedAt = now, now
	s.st.departments[dep.ID] = dep
	return dep, nil
}

func (s directoryStore) UpdateDepartment(_ context.Context, id int64, patch models.DepartmentPatch) (models.Department, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	d, ok := s.st.departments[id]
	if !ok || !d.IsActive {
		return models.Department{}, storage.ErrNotFound
	}
	if patch.Empty() {
		return d, nil
	}
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.Description != nil {
		d.Description = patch.Description
	}
	if patch.ManagerID != nil {
		d.ManagerID = patch.ManagerID
	}
	d.UpdatedAt = s.st.now()
	s.st.departments[id] = d
	return d, nil
}

func (s directoryStore) SoftDeleteDepartment(_ context.Context, id int64) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	d, ok := s.st.departments[id]
	if !ok || !d.IsActive {
		return storage.ErrNotFound
	}
	d.IsActive = false
	d.UpdatedAt = s.st.now()
	s.st.departments[id] = d
	return nil
}

func (s directoryStore) ListJobTitles(context.Context) ([]models.JobTitle, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	out := []models.JobTitle{}
	for _, j := range s.st.jobTitles {
		if j.IsActive {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s directoryStore) FindJobTitle(_ context.Context, id int64) (models.JobTitle, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	j, ok := s.st.jobTitles[id]
	if !ok || !j.IsActive {
		return models.JobTitle{}, storage.ErrNotFound
	}
	return j, nil
}

func (s directoryStore) JobTitleName(_ context.Context, id int64) (string, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	j, ok := s.st.jobTitles[id]
	if !ok {
		return "", storage.ErrNotFound
	}
	return j.Name, nil
}

func (s directoryStore) CreateJobTitle(_ context.Context, jt models.JobTitle) (models.JobTitle, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	now := s.st.now()
	jt.ID = s.st.id()
	jt.IsActive = true
	jt.CreatedAt, jt.UpdatedAt = now, now
	s.st.jobTitles[jt.ID] = jt
	return jt, nil
}

func (s directoryStore) UpdateJobTitle(_ context.Context, id int64, patch models.JobTitlePatch) (models.JobTitle, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	j, ok := s.st.jobTitles[id]
	if !ok || !j.IsActive {
		return models.JobTitle{}, storage.ErrNotFound
	}
	if patch.Empty() {
		return j, nil
	}
	if patch.Name != nil {
		j.Name = *patch.Name
	}
	if patch.Description != nil {
		j.Description = patch.Description
	}
	j.UpdatedAt = s.st.now()
	s.st.jobTitles[id] = j
	return j, nil
}

func (s directoryStore) SoftDeleteJobTitle(_ context.Context, id int64) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	j, ok := s.st.jobTitles[id]
	if !ok || !j.IsActive {
		return storage.ErrNotFound
	}
	j.IsActive = false
	j.UpdatedAt = s.st.now()
	s.st.jobTitles[id] = j
	return nil
}
