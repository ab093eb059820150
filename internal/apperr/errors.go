package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can map it to a transport status
// without inspecting messages.
type Kind string

const (
	Unauthenticated     Kind = "unauthenticated"
	Blocked             Kind = "blocked"
	PendingApproval     Kind = "pending_approval"
	InsufficientRole    Kind = "insufficient_role"
	NotFound            Kind = "not_found"
	NotFoundOrForbidden Kind = "not_found_or_forbidden"
	Validation          Kind = "validation"
	UnenrolledStudent   Kind = "unenrolled_student"
	Conflict            Kind = "conflict"
	Internal            Kind = "internal"
)

// FieldError points at a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// Error is the structured failure every core operation returns.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause. Unexpected storage or verifier failures are wrapped
// as Internal so no backend detail leaks to the caller.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// NewValidation reports per-field problems.
func NewValidation(msg string, fields ...FieldError) *Error {
	return &Error{Kind: Validation, Message: msg, Fields: fields}
}

// NewUnenrolled reports the student ids that are not enrolled in the class.
func NewUnenrolled(ids []string) *Error {
	return &Error{
		Kind:    UnenrolledStudent,
		Message: "students not enrolled in class: " + strings.Join(ids, ", "),
	}
}

// KindOf extracts the kind, defaulting to Internal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
