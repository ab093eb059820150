package attendance

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

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, class_id, teacher_id, day, students, teacher_status, teacher_lat, teacher_lng, teacher_marked_at, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	var students []byte
	var lat, lng sql.NullFloat64
	var markedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.ClassID, &rec.TeacherID, &rec.Day, &students,
		&rec.Teacher.Status, &lat, &lng, &markedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	if len(students) > 0 {
		if err := json.Unmarshal(students, &rec.Students); err != nil {
			return Record{}, err
		}
	}
	if lat.Valid && lng.Valid {
		rec.Teacher.Geo = &Geo{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	if markedAt.Valid {
		rec.Teacher.MarkedAt = markedAt.Time
	}
	return rec, nil
}

// UpsertDay writes the day record for (class, day). The unique constraint on
// (class_id, day) makes the insert itself the deduplication point: a racing
// second writer lands on DO UPDATE and merges into the surviving row, which
// keeps its identity while the student list and teacher sub-record are
// replaced.
func (r *Repository) UpsertDay(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	students, err := json.Marshal(rec.Students)
	if err != nil {
		return Record{}, err
	}
	var lat, lng any
	if rec.Teacher.Geo != nil {
		lat = rec.Teacher.Geo.Latitude
		lng = rec.Teacher.Geo.Longitude
	}
	var markedAt any
	if !rec.Teacher.MarkedAt.IsZero() {
		markedAt = rec.Teacher.MarkedAt
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, class_id, teacher_id, day, students, teacher_status, teacher_lat, teacher_lng, teacher_marked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (class_id, day) DO UPDATE SET
			students = EXCLUDED.students,
			teacher_id = EXCLUDED.teacher_id,
			teacher_status = EXCLUDED.teacher_status,
			teacher_lat = EXCLUDED.teacher_lat,
			teacher_lng = EXCLUDED.teacher_lng,
			teacher_marked_at = EXCLUDED.teacher_marked_at,
			updated_at = NOW()
		RETURNING `+recordColumns+`
	`, rec.ID, rec.ClassID, rec.TeacherID, DayOf(rec.Day), students, rec.Teacher.Status, lat, lng, markedAt)
	return scanRecord(row)
}

// GetByID returns a record, (nil, nil) when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE id = $1
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteOwned removes a record only when both the id and the teacher
// ownership match, so a non-owner cannot distinguish "absent" from
// "not yours".
func (r *Repository) DeleteOwned(ctx context.Context, recordID, teacherID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM attendance_records WHERE id = $1 AND teacher_id = $2
	`, recordID, teacherID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Filter composes the report scope with optional request filters. The
// date range is inclusive on both ends at day granularity.
type Filter struct {
	Scope     policy.Scope
	ClassID   string
	TeacherID string
	Start     *time.Time
	End       *time.Time
}

// Find returns a page of records matching the filter plus the total count.
// Ordered by day descending.
func (r *Repository) Find(ctx context.Context, f Filter, page, limit int) ([]Record, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}

	args := []any{}
	clauses := []string{}
	add := func(clause string, val any) {
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Scope.TeacherID != "" {
		add("teacher_id = $%d", f.Scope.TeacherID)
	}
	if f.Scope.StudentID != "" {
		member, _ := json.Marshal([]map[string]string{{"student_id": f.Scope.StudentID}})
		add("students @> $%d::jsonb", string(member))
	}
	if f.ClassID != "" {
		add("class_id = $%d", f.ClassID)
	}
	if f.TeacherID != "" {
		add("teacher_id = $%d", f.TeacherID)
	}
	if f.Start != nil {
		add("day >= $%d", DayOf(*f.Start))
	}
	if f.End != nil {
		add("day <= $%d", DayOf(*f.End))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + joinClauses(clauses, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + recordColumns + ` FROM attendance_records` + where +
		fmt.Sprintf(" ORDER BY day DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, rec)
	}
	return res, total, rows.Err()
}

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
