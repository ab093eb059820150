package policy

import (
	"classledger/internal/apperr"
)

// Role is the domain role carried by a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// Principal is the resolved, authenticated actor performing a request.
type Principal struct {
	UserID     string
	SubjectID  string
	Email      string
	Role       Role
	IsApproved bool
	IsBlocked  bool
}

// Authorize is the single gate every protected operation passes through.
// It is a pure function of its inputs: no I/O, no hidden state.
//
// Deny order matters: a blocked admin must be denied before any approval
// shortcut could let them through.
func Authorize(p *Principal, required []Role, requireApproved bool) error {
	if p == nil {
		return apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if p.IsBlocked {
		return apperr.New(apperr.Blocked, "account is blocked")
	}
	if len(required) > 0 && !roleIn(p.Role, required) {
		return apperr.New(apperr.InsufficientRole, "role not permitted for this operation")
	}
	if requireApproved && !p.IsApproved {
		return apperr.New(apperr.PendingApproval, "account is awaiting approval")
	}
	return nil
}

func roleIn(r Role, set []Role) bool {
	for _, want := range set {
		if r == want {
			return true
		}
	}
	return false
}
