package attendance

import (
	"context"
	"time"

	"classledger/internal/apperr"
	"classledger/internal/classroom"
	"classledger/internal/policy"
)

// Ledger is the persistence surface the service needs. *Repository satisfies it.
type Ledger interface {
	UpsertDay(ctx context.Context, rec Record) (Record, error)
	GetByID(ctx context.Context, id string) (*Record, error)
	DeleteOwned(ctx context.Context, recordID, teacherID string) (bool, error)
	Find(ctx context.Context, f Filter, page, limit int) ([]Record, int, error)
}

// ClassDirectory exposes class ownership and enrollment.
// *classroom.Repository satisfies it.
type ClassDirectory interface {
	Get(ctx context.Context, id string) (*classroom.Class, error)
}

// Service coordinates ledger writes and scoped reads.
type Service struct {
	ledger    Ledger
	classes   ClassDirectory
	graceDays int
}

// NewService creates a service. graceDays limits how far back records may be
// written; zero disables the check.
func NewService(ledger Ledger, classes ClassDirectory, graceDays int) *Service {
	return &Service{ledger: ledger, classes: classes, graceDays: graceDays}
}

// UpsertInput is the validated write command for a day record. Only the
// fields listed here are writable; record identity and timestamps are owned
// by the ledger.
type UpsertInput struct {
	ClassID       string
	Date          time.Time
	Students      []StudentStatus
	TeacherStatus Status
	Geo           *Geo
}

// UpsertDay creates or merges the attendance record for (class, day).
// The caller must own the class and every marked student must be enrolled;
// a violation fails the whole write, nothing partial is applied.
func (s *Service) UpsertDay(ctx context.Context, teacherID string, in UpsertInput) (Record, error) {
	var fields []apperr.FieldError
	if in.ClassID == "" {
		fields = append(fields, apperr.FieldError{Field: "class_id", Error: "required"})
	}
	if in.Date.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "date", Error: "required"})
	}
	if len(in.Students) == 0 {
		fields = append(fields, apperr.FieldError{Field: "students", Error: "required"})
	}
	for _, st := range in.Students {
		if st.StudentID == "" || !st.Status.Valid() {
			fields = append(fields, apperr.FieldError{Field: "students", Error: "each entry needs student and status present|absent"})
			break
		}
	}
	if len(fields) > 0 {
		return Record{}, apperr.NewValidation("invalid attendance payload", fields...)
	}

	cls, err := s.classes.Get(ctx, in.ClassID)
	if err != nil {
		return Record{}, apperr.Wrap(apperr.Internal, "class lookup failed", err)
	}
	if cls == nil {
		return Record{}, apperr.New(apperr.NotFound, "class not found")
	}
	if cls.TeacherID != teacherID {
		return Record{}, apperr.New(apperr.InsufficientRole, "only the class owner may mark attendance")
	}

	enrolled := make(map[string]bool, len(cls.Students))
	for _, id := range cls.Students {
		enrolled[id] = true
	}
	seen := make(map[string]bool, len(in.Students))
	var offenders []string
	for _, st := range in.Students {
		if seen[st.StudentID] {
			return Record{}, apperr.NewValidation("duplicate student in payload",
				apperr.FieldError{Field: "students", Error: "duplicate student " + st.StudentID})
		}
		seen[st.StudentID] = true
		if !enrolled[st.StudentID] {
			offenders = append(offenders, st.StudentID)
		}
	}
	if len(offenders) > 0 {
		return Record{}, apperr.NewUnenrolled(offenders)
	}

	day := DayOf(in.Date)
	if s.graceDays > 0 {
		cutoff := DayOf(time.Now()).AddDate(0, 0, -s.graceDays)
		if day.Before(cutoff) {
			return Record{}, apperr.NewValidation("day is outside the edit window",
				apperr.FieldError{Field: "date", Error: "too far in the past"})
		}
	}

	status := in.TeacherStatus
	if status == "" {
		status = Present
	}
	if !status.Valid() {
		return Record{}, apperr.NewValidation("invalid teacher status",
			apperr.FieldError{Field: "teacher_status", Error: "must be present or absent"})
	}

	rec, err := s.ledger.UpsertDay(ctx, Record{
		ClassID:   in.ClassID,
		TeacherID: teacherID,
		Day:       day,
		Students:  in.Students,
		Teacher: TeacherEntry{
			Status:   status,
			Geo:      in.Geo,
			MarkedAt: time.Now().UTC(),
		},
	})
	if err != nil {
		upsertsTotal.WithLabelValues("error").Inc()
		return Record{}, apperr.Wrap(apperr.Internal, "attendance write failed", err)
	}
	upsertsTotal.WithLabelValues("ok").Inc()
	return rec, nil
}

// Get returns a single record. Teachers see only their own; absence and
// foreign ownership are reported identically so existence never leaks.
func (s *Service) Get(ctx context.Context, p *policy.Principal, recordID string) (Record, error) {
	rec, err := s.ledger.GetByID(ctx, recordID)
	if err != nil {
		return Record{}, apperr.Wrap(apperr.Internal, "attendance lookup failed", err)
	}
	if rec == nil || p == nil || (p.Role != policy.RoleAdmin && rec.TeacherID != p.UserID) {
		return Record{}, apperr.New(apperr.NotFoundOrForbidden, "record not found")
	}
	return *rec, nil
}

// Delete removes a record the requester owns. Absence and foreign ownership
// are reported identically so existence never leaks.
func (s *Service) Delete(ctx context.Context, recordID, requesterID string) error {
	ok, err := s.ledger.DeleteOwned(ctx, recordID, requesterID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "attendance delete failed", err)
	}
	if !ok {
		return apperr.New(apperr.NotFoundOrForbidden, "record not found")
	}
	return nil
}

// FindQuery carries the caller-supplied report filters.
type FindQuery struct {
	ClassID   string
	TeacherID string // honored for admins only
	StudentID string // applied as a post-filter over the scoped page
	Start     *time.Time
	End       *time.Time
	Page      int
	Limit     int
}

// Find returns role-scoped records. The optional student filter is applied
// after the scoped query because membership lives inside the record's
// nested student list, not in a top-level column.
func (s *Service) Find(ctx context.Context, p *policy.Principal, q FindQuery) ([]Record, int, error) {
	f := Filter{
		Scope:   policy.ScopeFor(p),
		ClassID: q.ClassID,
		Start:   q.Start,
		End:     q.End,
	}
	if p != nil && p.Role == policy.RoleAdmin {
		f.TeacherID = q.TeacherID
	}
	records, total, err := s.ledger.Find(ctx, f, q.Page, q.Limit)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "attendance query failed", err)
	}
	findsTotal.Inc()
	if q.StudentID != "" {
		filtered := records[:0]
		for _, rec := range records {
			if rec.HasStudent(q.StudentID) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	return records, total, nil
}

// ClassStats aggregates a class over an optional date range. Teachers may
// only report on classes they own.
func (s *Service) ClassStats(ctx context.Context, p *policy.Principal, classID string, start, end *time.Time) (ClassStats, error) {
	cls, err := s.classes.Get(ctx, classID)
	if err != nil {
		return ClassStats{}, apperr.Wrap(apperr.Internal, "class lookup failed", err)
	}
	if cls == nil {
		return ClassStats{}, apperr.New(apperr.NotFound, "class not found")
	}
	if p == nil || (p.Role != policy.RoleAdmin && cls.TeacherID != p.UserID) {
		return ClassStats{}, apperr.New(apperr.InsufficientRole, "only the class owner may view class stats")
	}
	records, err := s.allRecords(ctx, Filter{ClassID: classID, Start: start, End: end})
	if err != nil {
		return ClassStats{}, err
	}
	return PerClassStats(records, cls.Students), nil
}

// StudentHistory returns a student's records and cumulative stats. Students
// may only request their own id; teachers see the intersection with their
// own classes.
func (s *Service) StudentHistory(ctx context.Context, p *policy.Principal, studentID string, start, end *time.Time, page, limit int) ([]Record, StudentStats, int, error) {
	if !policy.AllowStudentHistory(p, studentID) {
		return nil, StudentStats{}, 0, apperr.New(apperr.InsufficientRole, "students may only view their own attendance")
	}
	f := Filter{Scope: policy.Scope{StudentID: studentID}, Start: start, End: end}
	if p.Role == policy.RoleTeacher {
		f.Scope.TeacherID = p.UserID
	}
	records, total, err := s.ledger.Find(ctx, f, page, limit)
	if err != nil {
		return nil, StudentStats{}, 0, apperr.Wrap(apperr.Internal, "attendance query failed", err)
	}
	all, err := s.allRecords(ctx, f)
	if err != nil {
		return nil, StudentStats{}, 0, err
	}
	return records, PerStudentStats(all, studentID), total, nil
}

// StudentMonthly computes the dashboard rollup for a month window.
func (s *Service) StudentMonthly(ctx context.Context, p *policy.Principal, studentID string, monthStart, monthEnd time.Time) (Rollup, error) {
	if !policy.AllowStudentHistory(p, studentID) {
		return Rollup{}, apperr.New(apperr.InsufficientRole, "students may only view their own attendance")
	}
	start, end := DayOf(monthStart), DayOf(monthEnd)
	records, err := s.allRecords(ctx, Filter{
		Scope: policy.Scope{StudentID: studentID},
		Start: &start,
		End:   &end,
	})
	if err != nil {
		return Rollup{}, err
	}
	return MonthlyRollup(records, studentID, monthStart, monthEnd), nil
}

// AdminDailySummary returns the unrestricted per-day aggregation.
func (s *Service) AdminDailySummary(ctx context.Context, classID string, start, end *time.Time) ([]DaySummary, error) {
	records, err := s.allRecords(ctx, Filter{ClassID: classID, Start: start, End: end})
	if err != nil {
		return nil, err
	}
	return DailySummary(records), nil
}

// allRecords pages through the ledger so aggregations see every matching
// record, not just the first page. Snapshot-at-read consistency only.
func (s *Service) allRecords(ctx context.Context, f Filter) ([]Record, error) {
	const pageSize = 500
	var all []Record
	for page := 1; ; page++ {
		records, total, err := s.ledger.Find(ctx, f, page, pageSize)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "attendance query failed", err)
		}
		all = append(all, records...)
		if len(all) >= total || len(records) == 0 {
			return all, nil
		}
	}
}
