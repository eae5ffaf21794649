package models

// DefaultAdminRole is the role granted every permission by the admin bootstrap.
const DefaultAdminRole = "admin"

type Permission struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}
