package models

import (
	"math"
	"time"
)

// User captures application-facing fields for a directory identity.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	PasswordHash string     `json:"-"`
	FirstName    *string    `json:"first_name"`
	LastName     *string    `json:"last_name"`
	MiddleName   *string    `json:"middle_name"`
	DepartmentID *int64     `json:"department_id"`
	JobTitleID   *int64     `json:"job_title_id"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PublicUser is the projection returned alongside issued tokens.
type PublicUser struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// Public strips everything but the identity fields.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// UserPatch lists the fields a partial update may touch. Nil means untouched.
type UserPatch struct {
	Username     *string
	Email        *string
	Phone        *string
	FirstName    *string
	LastName     *string
	MiddleName   *string
	DepartmentID *int64
	JobTitleID   *int64
	IsActive     *bool
	IsVerified   *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.Phone == nil &&
		p.FirstName == nil && p.LastName == nil && p.MiddleName == nil &&
		p.DepartmentID == nil && p.JobTitleID == nil &&
		p.IsActive == nil && p.IsVerified == nil
}

// UserFilter narrows a paginated user listing.
type UserFilter struct {
	Search string
	Page   int
	Limit  int
}

// Offset returns the row offset for the filter's page. Pages whose offset
// would overflow saturate at math.MaxInt32, past any real result set.
func (f UserFilter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt32/f.Limit {
		return math.MaxInt32
	}
	return (f.Page - 1) * f.Limit
}
