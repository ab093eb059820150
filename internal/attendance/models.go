package attendance

import "time"

// Status is a per-person presence mark.
type Status string

const (
	Present Status = "present"
	Absent  Status = "absent"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s == Present || s == Absent }

// StudentStatus is one student's mark inside a day record.
type StudentStatus struct {
	StudentID string `json:"student_id"`
	Status    Status `json:"status"`
}

// Geo is an optional teacher location stamp. Absent means not supplied,
// never defaulted to 0,0.
type Geo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TeacherEntry is the teacher's own attendance sub-record.
type TeacherEntry struct {
	Status   Status    `json:"status"`
	Geo      *Geo      `json:"geo,omitempty"`
	MarkedAt time.Time `json:"marked_at"`
}

// Record is the ledger entity: at most one exists per (class, calendar day).
type Record struct {
	ID        string          `json:"id"`
	ClassID   string          `json:"class_id"`
	TeacherID string          `json:"teacher_id"`
	Day       time.Time       `json:"day"`
	Students  []StudentStatus `json:"students"`
	Teacher   TeacherEntry    `json:"teacher"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HasStudent reports whether the record contains a mark for the student.
func (r Record) HasStudent(studentID string) bool {
	for _, s := range r.Students {
		if s.StudentID == studentID {
			return true
		}
	}
	return false
}

// DayOf normalizes a timestamp to its UTC calendar day. Day lookup at this
// granularity is the ledger's deduplication key.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
