package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// Migrate applies the schema. Statements are idempotent so repeated boots
// are safe. The UNIQUE(class_id, day) constraint is what makes the
// one-record-per-class-per-day invariant structural rather than advisory.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Client.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	subject_id TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'student',
	is_approved BOOLEAN NOT NULL DEFAULT FALSE,
	is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
	blocked_at TIMESTAMPTZ,
	blocked_by UUID,
	profile JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users (lower(email));

CREATE TABLE IF NOT EXISTS user_requests (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	requested_role TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	processed_at TIMESTAMPTZ,
	processed_by UUID,
	admin_notes TEXT NOT NULL DEFAULT '',
	profile JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS user_requests_user_idx ON user_requests (user_id, requested_at DESC);

CREATE TABLE IF NOT EXISTS classes (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	teacher_id UUID NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS classes_teacher_idx ON classes (teacher_id);

CREATE TABLE IF NOT EXISTS class_students (
	class_id UUID NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
	student_id UUID NOT NULL REFERENCES users(id),
	added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (class_id, student_id)
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id UUID PRIMARY KEY,
	class_id UUID NOT NULL REFERENCES classes(id),
	teacher_id UUID NOT NULL REFERENCES users(id),
	day DATE NOT NULL,
	students JSONB NOT NULL DEFAULT '[]',
	teacher_status TEXT NOT NULL DEFAULT 'present',
	teacher_lat DOUBLE PRECISION,
	teacher_lng DOUBLE PRECISION,
	teacher_marked_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (class_id, day)
);
CREATE INDEX IF NOT EXISTS attendance_teacher_idx ON attendance_records (teacher_id, day DESC);
CREATE INDEX IF NOT EXISTS attendance_students_idx ON attendance_records USING GIN (students);

CREATE TABLE IF NOT EXISTS study_materials (
	id UUID PRIMARY KEY,
	class_id UUID NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	file_url TEXT NOT NULL DEFAULT '',
	uploaded_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS study_materials_class_idx ON study_materials (class_id);
`
