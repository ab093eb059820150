package attendance

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rec(classID string, d string, students ...StudentStatus) Record {
	return Record{ID: classID + "-" + d, ClassID: classID, Day: day(d), Students: students}
}

func TestPerStudentStatsZeroTotal(t *testing.T) {
	stats := PerStudentStats(nil, "s1")
	if stats.Total != 0 || stats.Percentage != 0 {
		t.Fatalf("empty records: got %+v, want zero total and exactly 0 percentage", stats)
	}
	// A student absent from every record also has zero sessions.
	records := []Record{rec("c1", "2026-03-02", StudentStatus{StudentID: "s2", Status: Present})}
	if got := PerStudentStats(records, "s1"); got.Total != 0 || got.Percentage != 0 {
		t.Fatalf("unmarked student: got %+v, want zeroes", got)
	}
}

func TestPerStudentStatsCumulative(t *testing.T) {
	// Day 1: s1 present, s2 absent. Day 2: s1 absent, s2 present.
	records := []Record{
		rec("c1", "2026-03-02",
			StudentStatus{StudentID: "s1", Status: Present},
			StudentStatus{StudentID: "s2", Status: Absent}),
		rec("c1", "2026-03-03",
			StudentStatus{StudentID: "s1", Status: Absent},
			StudentStatus{StudentID: "s2", Status: Present}),
	}
	got := PerStudentStats(records, "s1")
	want := StudentStats{StudentID: "s1", Total: 2, Present: 1, Absent: 1, Percentage: 50}
	if got != want {
		t.Fatalf("PerStudentStats = %+v, want %+v", got, want)
	}
}

func TestPerStudentStatsBounds(t *testing.T) {
	records := []Record{
		rec("c1", "2026-03-02", StudentStatus{StudentID: "s1", Status: Present}),
		rec("c1", "2026-03-03", StudentStatus{StudentID: "s1", Status: Present}),
		rec("c1", "2026-03-04", StudentStatus{StudentID: "s1", Status: Absent}),
	}
	got := PerStudentStats(records, "s1")
	if got.Percentage < 0 || got.Percentage > 100 {
		t.Fatalf("percentage out of bounds: %d", got.Percentage)
	}
	if got.Percentage != 67 {
		t.Fatalf("2/3 should round to 67, got %d", got.Percentage)
	}
}

func TestPerClassStatsSingleDay(t *testing.T) {
	records := []Record{
		rec("c1", "2026-03-02",
			StudentStatus{StudentID: "s1", Status: Present},
			StudentStatus{StudentID: "s2", Status: Absent}),
	}
	got := PerClassStats(records, []string{"s1", "s2"})
	if len(got.Students) != 2 {
		t.Fatalf("want 2 student entries, got %d", len(got.Students))
	}
	if got.Students[0].Percentage != 100 || got.Students[1].Percentage != 0 {
		t.Fatalf("want s1=100%%, s2=0%%, got %+v", got.Students)
	}
	if got.AverageAttendance != 50 {
		t.Fatalf("average = %d, want 50", got.AverageAttendance)
	}
}

func TestPerClassStatsMeanOfPercentages(t *testing.T) {
	// s1: 1/1 = 100%. s2: 1/3 = 33%. Mean of percentages is 67 (global
	// would be 2/4 = 50) — the mean is the contract.
	records := []Record{
		rec("c1", "2026-03-02",
			StudentStatus{StudentID: "s1", Status: Present},
			StudentStatus{StudentID: "s2", Status: Present}),
		rec("c1", "2026-03-03", StudentStatus{StudentID: "s2", Status: Absent}),
		rec("c1", "2026-03-04", StudentStatus{StudentID: "s2", Status: Absent}),
	}
	got := PerClassStats(records, []string{"s1", "s2"})
	if got.AverageAttendance != 67 {
		t.Fatalf("average = %d, want 67 (mean of 100 and 33)", got.AverageAttendance)
	}
}

func TestPerClassStatsEmptyRoster(t *testing.T) {
	got := PerClassStats(nil, nil)
	if got.AverageAttendance != 0 || len(got.Students) != 0 {
		t.Fatalf("empty roster: got %+v, want zeroes", got)
	}
}

func TestDailySummary(t *testing.T) {
	records := []Record{
		rec("c1", "2026-03-02",
			StudentStatus{StudentID: "s1", Status: Present},
			StudentStatus{StudentID: "s2", Status: Absent}),
		rec("c2", "2026-03-02",
			StudentStatus{StudentID: "s3", Status: Present}),
		rec("c1", "2026-03-03",
			StudentStatus{StudentID: "s1", Status: Absent},
			StudentStatus{StudentID: "s2", Status: Absent}),
	}
	got := DailySummary(records)
	if len(got) != 2 {
		t.Fatalf("want 2 days, got %d", len(got))
	}
	// Descending by date.
	if got[0].Date != "2026-03-03" || got[1].Date != "2026-03-02" {
		t.Fatalf("days out of order: %s then %s", got[0].Date, got[1].Date)
	}
	if got[1].TotalSessions != 2 || got[1].TotalStudents != 3 || got[1].TotalPresent != 2 {
		t.Fatalf("2026-03-02 summary wrong: %+v", got[1])
	}
	if got[1].AttendancePercentage != 67 {
		t.Fatalf("2026-03-02 percentage = %d, want 67", got[1].AttendancePercentage)
	}
	if got[0].AttendancePercentage != 0 {
		t.Fatalf("all-absent day percentage = %d, want 0", got[0].AttendancePercentage)
	}
}

func TestDailySummaryTruncatesTimeOfDay(t *testing.T) {
	morning := Record{ClassID: "c1", Day: time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC),
		Students: []StudentStatus{{StudentID: "s1", Status: Present}}}
	evening := Record{ClassID: "c2", Day: time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC),
		Students: []StudentStatus{{StudentID: "s2", Status: Present}}}
	got := DailySummary([]Record{morning, evening})
	if len(got) != 1 {
		t.Fatalf("same calendar day must group together, got %d days", len(got))
	}
	if got[0].TotalSessions != 2 {
		t.Fatalf("want 2 sessions, got %d", got[0].TotalSessions)
	}
}

func TestMonthlyRollup(t *testing.T) {
	records := []Record{
		rec("c1", "2026-02-27", StudentStatus{StudentID: "s1", Status: Present}),
		rec("c1", "2026-03-02", StudentStatus{StudentID: "s1", Status: Present}),
		rec("c1", "2026-03-09", StudentStatus{StudentID: "s1", Status: Absent}),
		rec("c1", "2026-04-01", StudentStatus{StudentID: "s1", Status: Present}),
	}
	got := MonthlyRollup(records, "s1", day("2026-03-01"), day("2026-03-31"))
	want := Rollup{TotalClasses: 2, PresentClasses: 1, AbsentClasses: 1, AttendancePercentage: 50}
	if got != want {
		t.Fatalf("MonthlyRollup = %+v, want %+v", got, want)
	}

	empty := MonthlyRollup(records, "s1", day("2026-05-01"), day("2026-05-31"))
	if empty.AttendancePercentage != 0 {
		t.Fatalf("empty month percentage = %d, want 0", empty.AttendancePercentage)
	}
}

func TestDayOf(t *testing.T) {
	in := time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)
	if got := DayOf(in); !got.Equal(day("2026-03-02")) {
		t.Fatalf("DayOf = %v, want 2026-03-02", got)
	}
}
