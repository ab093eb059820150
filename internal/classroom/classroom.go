package classroom

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Class is a teaching unit owned by a single teacher.
type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	TeacherID string    `json:"teacher_id"`
	Students  []string  `json:"students,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository persists classes and enrollment in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a class.
func (r *Repository) Create(ctx context.Context, c Class) (Class, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO classes (id, name, subject, teacher_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Subject, c.TeacherID)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return Class{}, err
	}
	return c, nil
}

// Get returns a class with its enrolled students, (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Class, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, subject, teacher_id, created_at, updated_at
		FROM classes WHERE id = $1
	`, id)
	var c Class
	if err := row.Scan(&c.ID, &c.Name, &c.Subject, &c.TeacherID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	students, err := r.Enrolled(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Students = students
	return &c, nil
}

// Enrolled returns the student ids enrolled in a class.
func (r *Repository) Enrolled(ctx context.Context, classID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id FROM class_students WHERE class_id = $1 ORDER BY added_at
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		students = append(students, id)
	}
	return students, rows.Err()
}

// Enroll adds a student to a class. Enrollment is a set: re-enrolling an
// already-enrolled student is a no-op, never a duplicate.
func (r *Repository) Enroll(ctx context.Context, classID, studentID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO class_students (class_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (class_id, student_id) DO NOTHING
	`, classID, studentID)
	return err
}

// Unenroll removes a student from a class.
func (r *Repository) Unenroll(ctx context.Context, classID, studentID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM class_students WHERE class_id = $1 AND student_id = $2
	`, classID, studentID)
	return err
}

// ListForTeacher returns classes owned by the teacher.
func (r *Repository) ListForTeacher(ctx context.Context, teacherID string) ([]Class, error) {
	return r.list(ctx, `
		SELECT id, name, subject, teacher_id, created_at, updated_at
		FROM classes WHERE teacher_id = $1 ORDER BY name
	`, teacherID)
}

// ListForStudent returns classes the student is enrolled in.
func (r *Repository) ListForStudent(ctx context.Context, studentID string) ([]Class, error) {
	return r.list(ctx, `
		SELECT c.id, c.name, c.subject, c.teacher_id, c.created_at, c.updated_at
		FROM classes c
		JOIN class_students cs ON cs.class_id = c.id
		WHERE cs.student_id = $1 ORDER BY c.name
	`, studentID)
}

// ListAll returns every class.
func (r *Repository) ListAll(ctx context.Context) ([]Class, error) {
	return r.list(ctx, `
		SELECT id, name, subject, teacher_id, created_at, updated_at
		FROM classes ORDER BY name
	`)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Subject, &c.TeacherID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
