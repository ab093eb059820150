package identity

import (
	"time"

	"classledger/internal/policy"
)

// Profile holds the contact details submitted at signup.
type Profile struct {
	Phone         string   `json:"phone,omitempty"`
	Address       string   `json:"address,omitempty"`
	Grade         string   `json:"grade,omitempty"`
	Stream        string   `json:"stream,omitempty"`
	GuardianName  string   `json:"guardian_name,omitempty"`
	GuardianPhone string   `json:"guardian_phone,omitempty"`
	Subjects      []string `json:"subjects,omitempty"`
}

// Empty reports whether no profile field was supplied.
func (p Profile) Empty() bool {
	return p.Phone == "" && p.Address == "" && p.Grade == "" && p.Stream == "" &&
		p.GuardianName == "" && p.GuardianPhone == "" && len(p.Subjects) == 0
}

// User is the domain identity record.
type User struct {
	ID          string      `json:"id"`
	SubjectID   string      `json:"subject_id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Role        policy.Role `json:"role"`
	IsApproved  bool        `json:"is_approved"`
	IsBlocked   bool        `json:"is_blocked"`
	BlockedAt   *time.Time  `json:"blocked_at,omitempty"`
	BlockedBy   *string     `json:"blocked_by,omitempty"`
	Profile     Profile     `json:"profile"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// RequestStatus tracks the approval workflow state of a UserRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
	RequestBlocked  RequestStatus = "blocked"
)

// UserRequest is one instance of the approval workflow. A request leaves
// pending exactly once; re-application after rejection creates a fresh
// instance so history is never rewritten.
type UserRequest struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	RequestedRole policy.Role   `json:"requested_role"`
	Status        RequestStatus `json:"status"`
	RequestedAt   time.Time     `json:"requested_at"`
	ProcessedAt   *time.Time    `json:"processed_at,omitempty"`
	ProcessedBy   *string       `json:"processed_by,omitempty"`
	AdminNotes    string        `json:"admin_notes,omitempty"`
	Profile       Profile       `json:"profile"`
}

// Principal converts the user into the policy-layer actor.
func (u *User) Principal() *policy.Principal {
	if u == nil {
		return nil
	}
	return &policy.Principal{
		UserID:     u.ID,
		SubjectID:  u.SubjectID,
		Email:      u.Email,
		Role:       u.Role,
		IsApproved: u.IsApproved,
		IsBlocked:  u.IsBlocked,
	}
}
