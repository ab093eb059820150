package material

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// StudyMaterial is metadata for an externally stored file, returned
// alongside attendance in class detail views.
type StudyMaterial struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	FileURL     string    `json:"file_url"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository persists study material metadata.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts material metadata.
func (r *Repository) Create(ctx context.Context, m StudyMaterial) (StudyMaterial, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO study_materials (id, class_id, title, description, file_url, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, m.ID, m.ClassID, m.Title, m.Description, m.FileURL, m.UploadedBy)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return StudyMaterial{}, err
	}
	return m, nil
}

// ListForClass returns a class's materials, newest first.
func (r *Repository) ListForClass(ctx context.Context, classID string) ([]StudyMaterial, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, class_id, title, description, file_url, uploaded_by, created_at
		FROM study_materials WHERE class_id = $1 ORDER BY created_at DESC
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []StudyMaterial
	for rows.Next() {
		var m StudyMaterial
		if err := rows.Scan(&m.ID, &m.ClassID, &m.Title, &m.Description, &m.FileURL, &m.UploadedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
