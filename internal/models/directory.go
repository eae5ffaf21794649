package models

import "time"

type Department struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	ManagerID   *int64    `json:"manager_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type DepartmentPatch struct {
	Name        *string
	Description *string
	ManagerID   *int64
}

func (p DepartmentPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.ManagerID == nil
}

type JobTitle struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type JobTitlePatch struct {
	Name        *string
	Description *string
}

func (p JobTitlePatch) Empty() bool {
	return p.Name == nil && p.Description == nil
}
