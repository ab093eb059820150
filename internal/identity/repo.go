package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"classledger/internal/policy"
)

// Repository persists users and approval requests in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, subject_id, email, display_name, role, is_approved, is_blocked, blocked_at, blocked_by, profile, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var profile []byte
	err := row.Scan(&u.ID, &u.SubjectID, &u.Email, &u.DisplayName, &u.Role, &u.IsApproved,
		&u.IsBlocked, &u.BlockedAt, &u.BlockedBy, &profile, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &u.Profile); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

// GetBySubject looks a user up by external identity reference. Returns
// (nil, nil) when absent.
func (r *Repository) GetBySubject(ctx context.Context, subjectID string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE subject_id = $1
	`, subjectID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetByID returns a user by internal id, (nil, nil) when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// CreateUser inserts a new user keyed by subject id. The insert races with
// concurrent logins for the same subject, so the conflict is resolved by the
// constraint: when another writer got there first the existing row is
// returned with created=false instead of surfacing a duplicate-key error.
func (r *Repository) CreateUser(ctx context.Context, u User) (*User, bool, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return nil, false, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, subject_id, email, display_name, role, is_approved, profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (subject_id) DO NOTHING
		RETURNING `+userColumns+`
	`, u.ID, u.SubjectID, u.Email, u.DisplayName, u.Role, u.IsApproved, profile)
	created, err := scanUser(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}
	existing, err := r.GetBySubject(ctx, u.SubjectID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("user vanished between insert and lookup")
	}
	return existing, false, nil
}

// PromoteAdmin grants the admin role with approval. Running it on an
// already-admin, already-approved user is a no-op.
func (r *Repository) PromoteAdmin(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET role = $2, is_approved = TRUE, updated_at = NOW()
		WHERE id = $1 AND (role <> $2 OR is_approved = FALSE)
	`, userID, policy.RoleAdmin)
	return err
}

// SetApproval assigns a role and marks the user approved.
func (r *Repository) SetApproval(ctx context.Context, userID string, role policy.Role) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET role = $2, is_approved = TRUE, updated_at = NOW() WHERE id = $1
	`, userID, role)
	return err
}

// SetBlocked flips the block flag, recording who acted and when.
func (r *Repository) SetBlocked(ctx context.Context, userID string, blocked bool, byAdmin string) error {
	var blockedAt any
	var blockedBy any
	if blocked {
		blockedAt = time.Now().UTC()
		blockedBy = byAdmin
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET is_blocked = $2, blocked_at = $3, blocked_by = $4, updated_at = NOW()
		WHERE id = $1
	`, userID, blocked, blockedAt, blockedBy)
	return err
}

// UpdateProfile replaces the profile sub-record. Only the profile is
// mutable through this path; role and lifecycle flags have their own
// explicit operations.
func (r *Repository) UpdateProfile(ctx context.Context, userID string, p Profile) error {
	profile, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE users SET profile = $2, updated_at = NOW() WHERE id = $1
	`, userID, profile)
	return err
}

const requestColumns = `id, user_id, requested_role, status, requested_at, processed_at, processed_by, admin_notes, profile`

func scanRequest(row interface{ Scan(...any) error }) (*UserRequest, error) {
	var req UserRequest
	var profile []byte
	err := row.Scan(&req.ID, &req.UserID, &req.RequestedRole, &req.Status, &req.RequestedAt,
		&req.ProcessedAt, &req.ProcessedBy, &req.AdminNotes, &profile)
	if err != nil {
		return nil, err
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &req.Profile); err != nil {
			return nil, err
		}
	}
	return &req, nil
}

// CreateRequest opens a fresh pending approval request.
func (r *Repository) CreateRequest(ctx context.Context, req UserRequest) (*UserRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = RequestPending
	}
	profile, err := json.Marshal(req.Profile)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO user_requests (id, user_id, requested_role, status, admin_notes, profile)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+requestColumns+`
	`, req.ID, req.UserID, req.RequestedRole, req.Status, req.AdminNotes, profile)
	return scanRequest(row)
}

// LatestRequest returns the most recent request for a user, (nil, nil) when
// the user never applied.
func (r *Repository) LatestRequest(ctx context.Context, userID string) (*UserRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM user_requests
		WHERE user_id = $1
		ORDER BY requested_at DESC
		LIMIT 1
	`, userID)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

// GetRequest returns a request by id, (nil, nil) when absent.
func (r *Repository) GetRequest(ctx context.Context, id string) (*UserRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM user_requests WHERE id = $1
	`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

// ListRequests returns requests filtered by status, newest first. An empty
// status returns all.
func (r *Repository) ListRequests(ctx context.Context, status RequestStatus, limit, offset int) ([]UserRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + requestColumns + ` FROM user_requests`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY requested_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []UserRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *req)
	}
	return res, rows.Err()
}

// ProcessRequest moves a pending request to a terminal status. The WHERE
// guard makes the pending→terminal transition happen at most once per
// instance; a request already processed reports processed=false.
func (r *Repository) ProcessRequest(ctx context.Context, id string, status RequestStatus, adminID, notes string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_requests
		SET status = $2, processed_at = NOW(), processed_by = $3, admin_notes = $4
		WHERE id = $1 AND status = $5
	`, id, status, adminID, notes, RequestPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }
