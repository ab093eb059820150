package attendance

import (
	"context"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classledger/internal/apperr"
	"classledger/internal/classroom"
	"classledger/internal/policy"
)

// fakeLedger enforces the (class, day) uniqueness the way the storage
// constraint does: the day key itself deduplicates.
type fakeLedger struct {
	records map[string]Record // key class|day
	nextID  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]Record)}
}

func (f *fakeLedger) key(classID string, d time.Time) string {
	return classID + "|" + DayOf(d).Format("2006-01-02")
}

func (f *fakeLedger) UpsertDay(_ context.Context, rec Record) (Record, error) {
	key := f.key(rec.ClassID, rec.Day)
	if existing, ok := f.records[key]; ok {
		// Same identity, replaced content.
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		f.nextID++
		rec.ID = "rec-" + strconv.Itoa(f.nextID)
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Day = DayOf(rec.Day)
	rec.UpdatedAt = time.Now().UTC()
	f.records[key] = rec
	return rec, nil
}

func (f *fakeLedger) GetByID(_ context.Context, id string) (*Record, error) {
	for _, rec := range f.records {
		if rec.ID == id {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) DeleteOwned(_ context.Context, recordID, teacherID string) (bool, error) {
	for key, rec := range f.records {
		if rec.ID == recordID && rec.TeacherID == teacherID {
			delete(f.records, key)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) Find(_ context.Context, flt Filter, page, limit int) ([]Record, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	var matched []Record
	for _, rec := range f.records {
		if flt.Scope.TeacherID != "" && rec.TeacherID != flt.Scope.TeacherID {
			continue
		}
		if flt.Scope.StudentID != "" && !rec.HasStudent(flt.Scope.StudentID) {
			continue
		}
		if flt.ClassID != "" && rec.ClassID != flt.ClassID {
			continue
		}
		if flt.TeacherID != "" && rec.TeacherID != flt.TeacherID {
			continue
		}
		if flt.Start != nil && rec.Day.Before(DayOf(*flt.Start)) {
			continue
		}
		if flt.End != nil && rec.Day.After(DayOf(*flt.End)) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Day.After(matched[j].Day) })
	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

type stubClasses struct {
	classes map[string]*classroom.Class
}

func (s *stubClasses) Get(_ context.Context, id string) (*classroom.Class, error) {
	return s.classes[id], nil
}

func newTestService() (*Service, *fakeLedger) {
	ledger := newFakeLedger()
	classes := &stubClasses{classes: map[string]*classroom.Class{
		"c1": {ID: "c1", Name: "Physics", TeacherID: "t1", Students: []string{"s1", "s2"}},
	}}
	return NewService(ledger, classes, 0), ledger
}

func markDay(status1, status2 Status) UpsertInput {
	return UpsertInput{
		ClassID: "c1",
		Date:    day("2026-03-02"),
		Students: []StudentStatus{
			{StudentID: "s1", Status: status1},
			{StudentID: "s2", Status: status2},
		},
	}
}

func TestUpsertDayIdempotent(t *testing.T) {
	svc, ledger := newTestService()
	ctx := context.Background()

	first, err := svc.UpsertDay(ctx, "t1", markDay(Present, Absent))
	require.NoError(t, err)

	second, err := svc.UpsertDay(ctx, "t1", markDay(Absent, Present))
	require.NoError(t, err)

	assert.Len(t, ledger.records, 1, "one record per (class, day)")
	assert.Equal(t, first.ID, second.ID, "merge keeps record identity")
	assert.Equal(t, Absent, second.Students[0].Status, "second call's content wins")
}

func TestUpsertDayNormalizesTimeOfDay(t *testing.T) {
	svc, ledger := newTestService()
	ctx := context.Background()

	in := markDay(Present, Absent)
	in.Date = time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	_, err := svc.UpsertDay(ctx, "t1", in)
	require.NoError(t, err)

	in.Date = time.Date(2026, 3, 2, 18, 45, 0, 0, time.UTC)
	_, err = svc.UpsertDay(ctx, "t1", in)
	require.NoError(t, err)

	assert.Len(t, ledger.records, 1, "different times of the same day merge")
}

func TestUpsertDayRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := markDay(Present, Absent)
	in.Date = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	_, err := svc.UpsertDay(ctx, "t1", in)
	require.NoError(t, err)

	start, end := day("2026-03-01"), day("2026-03-03")
	teacher := &policy.Principal{UserID: "t1", Role: policy.RoleTeacher, IsApproved: true}
	records, total, err := svc.Find(ctx, teacher, FindQuery{Start: &start, End: &end})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "c1", records[0].ClassID)
}

func TestUpsertDayUnenrolledStudent(t *testing.T) {
	svc, ledger := newTestService()
	ctx := context.Background()

	in := markDay(Present, Absent)
	in.Students = append(in.Students, StudentStatus{StudentID: "intruder", Status: Present})
	_, err := svc.UpsertDay(ctx, "t1", in)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.UnenrolledStudent))
	assert.Contains(t, err.Error(), "intruder", "offending id must be reported")
	assert.Empty(t, ledger.records, "no partial write")
}

func TestUpsertDayNotOwner(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.UpsertDay(context.Background(), "t2", markDay(Present, Absent))
	assert.True(t, apperr.Is(err, apperr.InsufficientRole))
}

func TestUpsertDayValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertDay(ctx, "t1", UpsertInput{})
	assert.True(t, apperr.Is(err, apperr.Validation))

	dup := markDay(Present, Absent)
	dup.Students = append(dup.Students, StudentStatus{StudentID: "s1", Status: Absent})
	_, err = svc.UpsertDay(ctx, "t1", dup)
	assert.True(t, apperr.Is(err, apperr.Validation), "duplicate student rejected")

	unknown := markDay(Present, Absent)
	unknown.Students[0].Status = "late"
	_, err = svc.UpsertDay(ctx, "t1", unknown)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestUpsertDayGeoOptional(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.UpsertDay(ctx, "t1", markDay(Present, Absent))
	require.NoError(t, err)
	assert.Nil(t, rec.Teacher.Geo, "geo omitted when not supplied")

	in := markDay(Present, Absent)
	in.Geo = &Geo{Latitude: 12.97, Longitude: 77.59}
	rec, err = svc.UpsertDay(ctx, "t1", in)
	require.NoError(t, err)
	require.NotNil(t, rec.Teacher.Geo)
	assert.Equal(t, 12.97, rec.Teacher.Geo.Latitude)
}

func TestGetCollapsesExistenceAndOwnership(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.UpsertDay(ctx, "t1", markDay(Present, Absent))
	require.NoError(t, err)

	owner := &policy.Principal{UserID: "t1", Role: policy.RoleTeacher, IsApproved: true}
	got, err := svc.Get(ctx, owner, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	admin := &policy.Principal{UserID: "a1", Role: policy.RoleAdmin, IsApproved: true}
	_, err = svc.Get(ctx, admin, rec.ID)
	assert.NoError(t, err, "admin reads any record")

	other := &policy.Principal{UserID: "t2", Role: policy.RoleTeacher, IsApproved: true}
	_, err = svc.Get(ctx, other, rec.ID)
	assert.True(t, apperr.Is(err, apperr.NotFoundOrForbidden))

	_, err = svc.Get(ctx, owner, "no-such-record")
	assert.True(t, apperr.Is(err, apperr.NotFoundOrForbidden), "absent record reads the same")
}

func TestDeleteCollapsesExistenceAndOwnership(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.UpsertDay(ctx, "t1", markDay(Present, Absent))
	require.NoError(t, err)

	err = svc.Delete(ctx, rec.ID, "t2")
	assert.True(t, apperr.Is(err, apperr.NotFoundOrForbidden), "foreign owner sees not-found")

	err = svc.Delete(ctx, "no-such-record", "t1")
	assert.True(t, apperr.Is(err, apperr.NotFoundOrForbidden), "absent record sees the same error")

	require.NoError(t, svc.Delete(ctx, rec.ID, "t1"))
}

func TestFindScopesAndPostFilter(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertDay(ctx, "t1", markDay(Present, Absent))
	require.NoError(t, err)
	in := markDay(Absent, Present)
	in.Date = day("2026-03-03")
	_, err = svc.UpsertDay(ctx, "t1", in)
	require.NoError(t, err)

	teacher := &policy.Principal{UserID: "t1", Role: policy.RoleTeacher, IsApproved: true}
	records, _, err := svc.Find(ctx, teacher, FindQuery{StudentID: "s1"})
	require.NoError(t, err)
	assert.Len(t, records, 2, "student filter keeps records containing s1")

	other := &policy.Principal{UserID: "t2", Role: policy.RoleTeacher, IsApproved: true}
	records, total, err := svc.Find(ctx, other, FindQuery{})
	require.NoError(t, err)
	assert.Empty(t, records, "teacher scope hides foreign records")
	assert.Zero(t, total)

	// The teacher filter param is admin-only; a teacher cannot widen scope.
	records, _, err = svc.Find(ctx, other, FindQuery{TeacherID: "t1"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClassStatsScenario(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertDay(ctx, "t1", markDay(Present, Absent))
	require.NoError(t, err)

	teacher := &policy.Principal{UserID: "t1", Role: policy.RoleTeacher, IsApproved: true}
	stats, err := svc.ClassStats(ctx, teacher, "c1", nil, nil)
	require.NoError(t, err)
	require.Len(t, stats.Students, 2)
	assert.Equal(t, 100, stats.Students[0].Percentage)
	assert.Equal(t, 0, stats.Students[1].Percentage)
	assert.Equal(t, 50, stats.AverageAttendance)

	other := &policy.Principal{UserID: "t2", Role: policy.RoleTeacher, IsApproved: true}
	_, err = svc.ClassStats(ctx, other, "c1", nil, nil)
	assert.True(t, apperr.Is(err, apperr.InsufficientRole))
}

func TestStudentHistoryOwnOnly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertDay(ctx, "t1", markDay(Present, Absent))
	require.NoError(t, err)

	student := &policy.Principal{UserID: "s1", Role: policy.RoleStudent, IsApproved: true}
	_, _, _, err = svc.StudentHistory(ctx, student, "s2", nil, nil, 1, 20)
	assert.True(t, apperr.Is(err, apperr.InsufficientRole), "student cannot read another student")

	records, stats, total, err := svc.StudentHistory(ctx, student, "s1", nil, nil, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, 1, stats.Present)
}

func TestStudentMonthly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertDay(ctx, "t1", markDay(Present, Absent))
	require.NoError(t, err)
	in := markDay(Absent, Present)
	in.Date = day("2026-03-03")
	_, err = svc.UpsertDay(ctx, "t1", in)
	require.NoError(t, err)

	student := &policy.Principal{UserID: "s1", Role: policy.RoleStudent, IsApproved: true}
	roll, err := svc.StudentMonthly(ctx, student, "s1", day("2026-03-01"), day("2026-03-31"))
	require.NoError(t, err)
	assert.Equal(t, Rollup{TotalClasses: 2, PresentClasses: 1, AbsentClasses: 1, AttendancePercentage: 50}, roll)
}

func TestGraceWindow(t *testing.T) {
	ledger := newFakeLedger()
	classes := &stubClasses{classes: map[string]*classroom.Class{
		"c1": {ID: "c1", TeacherID: "t1", Students: []string{"s1", "s2"}},
	}}
	svc := NewService(ledger, classes, 7)

	in := markDay(Present, Absent)
	in.Date = time.Now().UTC().AddDate(0, 0, -30)
	_, err := svc.UpsertDay(context.Background(), "t1", in)
	assert.True(t, apperr.Is(err, apperr.Validation), "stale day rejected when grace window set")

	in.Date = time.Now().UTC()
	_, err = svc.UpsertDay(context.Background(), "t1", in)
	assert.NoError(t, err)
}
