package auth

import "errors"

type ErrorKind int

const (
	Unknown ErrorKind = iota
	InvalidEmail
	UserDisabled
	UserNotFound
	WrongPassword
	TooManyRequests
	MissingFields
)

var messages = map[ErrorKind]string{
	InvalidEmail:    "Invalid email address",
	UserDisabled:    "This account has been disabled",
	UserNotFound:    "No account found with this email",
	WrongPassword:   "Incorrect password",
	TooManyRequests: "Too many failed attempts. Please try again later",
	MissingFields:   "Please fill in all fields",
	Unknown:         "Login failed. Please try again",
}

// Message returns the text shown on the login page for kind.
func (k ErrorKind) Message() string {
	if m, ok := messages[k]; ok {
		return m
	}
	return messages[Unknown]
}

func (k ErrorKind) String() string {
	switch k {
	case InvalidEmail:
		return "invalid_email"
	case UserDisabled:
		return "user_disabled"
	case UserNotFound:
		return "user_not_found"
	case WrongPassword:
		return "wrong_password"
	case TooManyRequests:
		return "too_many_requests"
	case MissingFields:
		return "missing_fields"
	default:
		return "unknown"
	}
}

// Error is a sign-in failure. Err carries the underlying cause for Unknown.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind carried by err, or Unknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
