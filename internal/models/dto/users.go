package dto

import "github.com/hongminglow/deepsea-be/internal/models"

type CreateUserRequest struct {
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Password     string  `json:"password"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	MiddleName   *string `json:"middle_name"`
	DepartmentID *int64  `json:"department_id"`
	JobTitleID   *int64  `json:"job_title_id"`
	IsActive     *bool   `json:"is_active"`
	IsVerified   *bool   `json:"is_verified"`
}

// UpdateUserRequest carries a partial update. Password is decoded only so it
// can be rejected.
type UpdateUserRequest struct {
	Username     *string `json:"username"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Password     *string `json:"password"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	MiddleName   *string `json:"middle_name"`
	DepartmentID *int64  `json:"department_id"`
	JobTitleID   *int64  `json:"job_title_id"`
	IsActive     *bool   `json:"is_active"`
	IsVerified   *bool   `json:"is_verified"`
}

type UserResponse struct {
	User models.User `json:"user"`
}

type CreateUserResponse struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
}

type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type UserListResponse struct {
	Data []models.User `json:"data"`
	Meta PageMeta      `json:"meta"`
}
