package service

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hongminglow/deepsea-be/internal/apperr"
	"github.com/hongminglow/deepsea-be/internal/models/dto"
)

const (
	maxUsernameLen = 100
	maxEmailLen    = 255
	maxPhoneLen    = 32
	maxNameLen     = 100
	minPasswordLen = 6
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type problems []string

func (p *problems) add(msg string) { *p = append(*p, msg) }

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return apperr.Invalid("Validation error", p...)
}

func validateCreateUser(req dto.CreateUserRequest) error {
	var p problems
	checkUsername(&p, &req.Username)
	checkEmail(&p, &req.Email)
	checkPhone(&p, &req.Phone)

	switch {
	case req.Password == "":
		p.add("Password is required")
	case utf8.RuneCountInString(req.Password) < minPasswordLen:
		p.add("Password must be at least 6 characters long")
	}

	checkNames(&p, req.FirstName, req.LastName, req.MiddleName)
	checkRefs(&p, req.DepartmentID, req.JobTitleID)
	return p.err()
}

func validateUpdateUser(req dto.UpdateUserRequest) error {
	if req.Password != nil {
		return apperr.New(apperr.Validation, "Password cannot be changed via this endpoint")
	}
	var p problems
	checkUsername(&p, req.Username)
	checkEmail(&p, req.Email)
	checkPhone(&p, req.Phone)
	checkNames(&p, req.FirstName, req.LastName, req.MiddleName)
	checkRefs(&p, req.DepartmentID, req.JobTitleID)
	return p.err()
}

// Nil pointers are fields absent from a partial update; present but blank
// values are always rejected.
func checkUsername(p *problems, v *string) {
	if v == nil {
		return
	}
	switch {
	case strings.TrimSpace(*v) == "":
		p.add("Username is required")
	case utf8.RuneCountInString(*v) > maxUsernameLen:
		p.add("Username must be 100 characters or less")
	}
}

func checkEmail(p *problems, v *string) {
	if v == nil {
		return
	}
	if strings.TrimSpace(*v) == "" {
		p.add("Email is required")
		return
	}
	if !emailPattern.MatchString(*v) {
		p.add("Invalid email format")
	}
	if utf8.RuneCountInString(*v) > maxEmailLen {
		p.add("Email must be 255 characters or less")
	}
}

func checkPhone(p *problems, v *string) {
	if v == nil {
		return
	}
	switch {
	case strings.TrimSpace(*v) == "":
		p.add("Phone is required")
	case utf8.RuneCountInString(*v) > maxPhoneLen:
		p.add("Phone must be 32 characters or less")
	}
}

func checkNames(p *problems, first, last, middle *string) {
	for _, f := range []struct {
		label string
		value *string
	}{
		{"First name", first},
		{"Last name", last},
		{"Middle name", middle},
	} {
		if f.value != nil && utf8.RuneCountInString(*f.value) > maxNameLen {
			p.add(f.label + " must be 100 characters or less")
		}
	}
}

func checkRefs(p *problems, department, jobTitle *int64) {
	if department != nil && *department < 1 {
		p.add("Department ID must be a positive integer")
	}
	if jobTitle != nil && *jobTitle < 1 {
		p.add("Job title ID must be a positive integer")
	}
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	return &s
}

func parseID(raw, message string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.New(apperr.Validation, message)
	}
	return id, nil
}
