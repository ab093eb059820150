package identity

import (
	"context"
	"encoding/json"
	"log"

	"classledger/internal/apperr"
	"classledger/internal/policy"
	"classledger/internal/queue"
	"classledger/internal/verifier"
)

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	GetBySubject(ctx context.Context, subjectID string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, u User) (*User, bool, error)
	PromoteAdmin(ctx context.Context, userID string) error
	SetApproval(ctx context.Context, userID string, role policy.Role) error
	SetBlocked(ctx context.Context, userID string, blocked bool, byAdmin string) error
	UpdateProfile(ctx context.Context, userID string, p Profile) error
	CreateRequest(ctx context.Context, req UserRequest) (*UserRequest, error)
	LatestRequest(ctx context.Context, userID string) (*UserRequest, error)
	GetRequest(ctx context.Context, id string) (*UserRequest, error)
	ListRequests(ctx context.Context, status RequestStatus, limit, offset int) ([]UserRequest, error)
	ProcessRequest(ctx context.Context, id string, status RequestStatus, adminID, notes string) (bool, error)
}

// Publisher enqueues notification messages for the worker.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// AdminList reports whether an email is on the configured admin allow-list.
type AdminList func(email string) bool

// Notification is the JSON payload carried on the queue.
type Notification struct {
	Kind        string `json:"kind"` // "signup" or "decision"
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Service owns login, principal resolution and the approval workflow.
type Service struct {
	store   Store
	publish Publisher
	isAdmin AdminList
}

// NewService creates the identity service. isAdmin and publish may be nil
// (no allow-list, no notifications).
func NewService(store Store, publish Publisher, isAdmin AdminList) *Service {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &Service{store: store, publish: publish, isAdmin: isAdmin}
}

// LoginResult is the outcome of a login: the user plus whether this call
// registered them. An AlreadyExists outcome is Created=false, never an error.
type LoginResult struct {
	User    User
	Created bool
}

// Login resolves-or-creates the user behind a verified identity and applies
// the approval policy. Allow-listed emails are promoted to admin here, as an
// idempotent write; the resolver itself stays read-only.
func (s *Service) Login(ctx context.Context, id verifier.Identity, submitted Profile) (LoginResult, error) {
	if id.SubjectID == "" {
		return LoginResult{}, apperr.NewValidation("subject id required",
			apperr.FieldError{Field: "subject_id", Error: "required"})
	}

	usr, err := s.store.GetBySubject(ctx, id.SubjectID)
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.Internal, "user lookup failed", err)
	}

	if usr == nil {
		role := policy.RoleStudent
		if r := policy.Role(id.Role); r == policy.RoleTeacher {
			role = policy.RoleTeacher
		}
		created, isNew, err := s.store.CreateUser(ctx, User{
			SubjectID:   id.SubjectID,
			Email:       id.Email,
			DisplayName: id.DisplayName,
			Role:        role,
			Profile:     submitted,
		})
		if err != nil {
			return LoginResult{}, apperr.Wrap(apperr.Internal, "user create failed", err)
		}
		usr = created
		if isNew {
			if s.isAdmin(usr.Email) {
				if err := s.promote(ctx, usr); err != nil {
					return LoginResult{}, err
				}
				return LoginResult{User: *usr, Created: true}, nil
			}
			if _, err := s.store.CreateRequest(ctx, UserRequest{
				UserID:        usr.ID,
				RequestedRole: role,
				Profile:       submitted,
			}); err != nil {
				return LoginResult{}, apperr.Wrap(apperr.Internal, "approval request create failed", err)
			}
			s.notify(ctx, Notification{Kind: "signup", UserID: usr.ID, Email: usr.Email, DisplayName: usr.DisplayName})
			return LoginResult{User: *usr, Created: true}, nil
		}
		// Lost the insert race; continue as an existing user.
	}

	if usr.IsBlocked {
		return LoginResult{}, apperr.New(apperr.Blocked, "account is blocked")
	}

	if s.isAdmin(usr.Email) && (usr.Role != policy.RoleAdmin || !usr.IsApproved) {
		if err := s.promote(ctx, usr); err != nil {
			return LoginResult{}, err
		}
	}

	if !usr.IsApproved {
		latest, err := s.store.LatestRequest(ctx, usr.ID)
		if err != nil {
			return LoginResult{}, apperr.Wrap(apperr.Internal, "request lookup failed", err)
		}
		// A rejected applicant re-authenticating gets a fresh pending
		// instance; the rejected record stays untouched. Corrected details
		// submitted with the re-application replace the stored profile.
		if latest == nil || latest.Status == RequestRejected {
			if !submitted.Empty() {
				if err := s.store.UpdateProfile(ctx, usr.ID, submitted); err != nil {
					return LoginResult{}, apperr.Wrap(apperr.Internal, "profile update failed", err)
				}
				usr.Profile = submitted
			}
			if _, err := s.store.CreateRequest(ctx, UserRequest{
				UserID:        usr.ID,
				RequestedRole: usr.Role,
				Profile:       usr.Profile,
			}); err != nil {
				return LoginResult{}, apperr.Wrap(apperr.Internal, "approval request create failed", err)
			}
			s.notify(ctx, Notification{Kind: "signup", UserID: usr.ID, Email: usr.Email, DisplayName: usr.DisplayName})
		}
		return LoginResult{}, apperr.New(apperr.PendingApproval, "account is awaiting approval")
	}

	return LoginResult{User: *usr, Created: false}, nil
}

func (s *Service) promote(ctx context.Context, usr *User) error {
	if err := s.store.PromoteAdmin(ctx, usr.ID); err != nil {
		return apperr.Wrap(apperr.Internal, "admin promotion failed", err)
	}
	usr.Role = policy.RoleAdmin
	usr.IsApproved = true
	return nil
}

// ResolvePrincipal maps a verified subject id to the domain principal.
// Read-only; registration must have happened through Login first.
func (s *Service) ResolvePrincipal(ctx context.Context, subjectID string) (*policy.Principal, error) {
	usr, err := s.store.GetBySubject(ctx, subjectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "user lookup failed", err)
	}
	if usr == nil {
		return nil, apperr.New(apperr.NotFound, "user not registered")
	}
	return usr.Principal(), nil
}

// Approve moves a pending request to approved and grants the role.
func (s *Service) Approve(ctx context.Context, adminID, requestID string, role policy.Role) (*UserRequest, error) {
	if role != policy.RoleStudent && role != policy.RoleTeacher {
		return nil, apperr.NewValidation("role must be student or teacher",
			apperr.FieldError{Field: "role", Error: "must be student or teacher"})
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "request lookup failed", err)
	}
	if req == nil {
		return nil, apperr.New(apperr.NotFound, "request not found")
	}
	ok, err := s.store.ProcessRequest(ctx, requestID, RequestApproved, adminID, "")
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "request update failed", err)
	}
	if !ok {
		return nil, apperr.New(apperr.Conflict, "request already processed")
	}
	if err := s.store.SetApproval(ctx, req.UserID, role); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "user approval failed", err)
	}
	usr, err := s.store.GetByID(ctx, req.UserID)
	if err == nil && usr != nil {
		s.notify(ctx, Notification{Kind: "decision", UserID: usr.ID, Email: usr.Email,
			DisplayName: usr.DisplayName, Status: string(RequestApproved)})
	}
	return s.store.GetRequest(ctx, requestID)
}

// Reject moves a pending request to rejected with admin notes.
func (s *Service) Reject(ctx context.Context, adminID, requestID, notes string) (*UserRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "request lookup failed", err)
	}
	if req == nil {
		return nil, apperr.New(apperr.NotFound, "request not found")
	}
	ok, err := s.store.ProcessRequest(ctx, requestID, RequestRejected, adminID, notes)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "request update failed", err)
	}
	if !ok {
		return nil, apperr.New(apperr.Conflict, "request already processed")
	}
	usr, err := s.store.GetByID(ctx, req.UserID)
	if err == nil && usr != nil {
		s.notify(ctx, Notification{Kind: "decision", UserID: usr.ID, Email: usr.Email,
			DisplayName: usr.DisplayName, Status: string(RequestRejected), Notes: notes})
	}
	return s.store.GetRequest(ctx, requestID)
}

// SetBlocked blocks or unblocks a user.
func (s *Service) SetBlocked(ctx context.Context, adminID, userID string, blocked bool) error {
	usr, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "user lookup failed", err)
	}
	if usr == nil {
		return apperr.New(apperr.NotFound, "user not found")
	}
	if err := s.store.SetBlocked(ctx, userID, blocked, adminID); err != nil {
		return apperr.Wrap(apperr.Internal, "block update failed", err)
	}
	return nil
}

// ListRequests returns approval requests, optionally filtered by status.
func (s *Service) ListRequests(ctx context.Context, status RequestStatus, limit, offset int) ([]UserRequest, error) {
	reqs, err := s.store.ListRequests(ctx, status, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "request list failed", err)
	}
	return reqs, nil
}

func (s *Service) notify(ctx context.Context, n Notification) {
	if s.publish == nil {
		return
	}
	body, err := json.Marshal(n)
	if err != nil {
		return
	}
	if err := s.publish.Publish(ctx, queue.Message{Type: n.Kind, Body: body}); err != nil {
		log.Printf("notification publish failed: %v", err)
	}
}
