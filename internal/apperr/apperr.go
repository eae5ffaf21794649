package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independently of any transport.
type Kind int

const (
	Internal Kind = iota
	AuthRequired
	InvalidToken
	SessionInvalid
	SessionExpired
	AccountDeactivated
	InvalidCredentials
	Forbidden
	MissingToken
	InvalidRefreshToken
	Validation
	NotFound
	Conflict
)

var kindNames = map[Kind]string{
	Internal:            "internal",
	AuthRequired:        "auth_required",
	InvalidToken:        "invalid_token",
	SessionInvalid:      "session_invalid",
	SessionExpired:      "session_expired",
	AccountDeactivated:  "account_deactivated",
	InvalidCredentials:  "invalid_credentials",
	Forbidden:           "forbidden",
	MissingToken:        "missing_token",
	InvalidRefreshToken: "invalid_refresh_token",
	Validation:          "validation_error",
	NotFound:            "not_found",
	Conflict:            "conflict",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure carrying a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	// Details lists individual validation problems, if any.
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// New returns an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an Error of the given kind that keeps err as its cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Invalid builds a validation error listing each problem.
func Invalid(message string, details ...string) *Error {
	return &Error{Kind: Validation, Message: message, Details: details}
}

// KindOf extracts the kind from err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As returns the classified error inside err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
