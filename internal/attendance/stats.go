package attendance

import (
	"math"
	"sort"
	"time"
)

// The aggregator is a set of pure reductions over records already fetched
// under a report scope. It holds no state and does no I/O.

// StudentStats summarizes one student's presence across records.
type StudentStats struct {
	StudentID  string `json:"student_id"`
	Total      int    `json:"total"`
	Present    int    `json:"present"`
	Absent     int    `json:"absent"`
	Percentage int    `json:"percentage"`
}

// PerStudentStats reduces records to a single student's counts. Percentage
// is 0 when the student appears in no records, never NaN.
func PerStudentStats(records []Record, studentID string) StudentStats {
	stats := StudentStats{StudentID: studentID}
	for _, rec := range records {
		for _, s := range rec.Students {
			if s.StudentID != studentID {
				continue
			}
			stats.Total++
			if s.Status == Present {
				stats.Present++
			} else {
				stats.Absent++
			}
		}
	}
	stats.Percentage = percent(stats.Present, stats.Total)
	return stats
}

// ClassStats carries per-student breakdowns plus the class-level average.
type ClassStats struct {
	Students []StudentStats `json:"students"`
	// AverageAttendance is the rounded mean of per-student percentages,
	// not a globally aggregated present/total ratio. The two differ when
	// students have different session counts.
	AverageAttendance int `json:"average_attendance"`
}

// PerClassStats reduces records to per-student stats for the given roster
// and the class average.
func PerClassStats(records []Record, studentIDs []string) ClassStats {
	out := ClassStats{Students: make([]StudentStats, 0, len(studentIDs))}
	sum := 0
	for _, id := range studentIDs {
		s := PerStudentStats(records, id)
		out.Students = append(out.Students, s)
		sum += s.Percentage
	}
	if len(out.Students) > 0 {
		out.AverageAttendance = int(math.Round(float64(sum) / float64(len(out.Students))))
	}
	return out
}

// DaySummary is one calendar day's aggregate across all supplied records.
type DaySummary struct {
	Date                 string `json:"date"`
	TotalSessions        int    `json:"total_sessions"`
	TotalStudents        int    `json:"total_students"`
	TotalPresent         int    `json:"total_present"`
	AttendancePercentage int    `json:"attendance_percentage"`
}

// DailySummary groups records by calendar day (ISO date portion only) and
// returns the days ordered descending.
func DailySummary(records []Record) []DaySummary {
	byDay := make(map[string]*DaySummary)
	for _, rec := range records {
		key := rec.Day.UTC().Format("2006-01-02")
		day, ok := byDay[key]
		if !ok {
			day = &DaySummary{Date: key}
			byDay[key] = day
		}
		day.TotalSessions++
		for _, s := range rec.Students {
			day.TotalStudents++
			if s.Status == Present {
				day.TotalPresent++
			}
		}
	}
	out := make([]DaySummary, 0, len(byDay))
	for _, day := range byDay {
		day.AttendancePercentage = percent(day.TotalPresent, day.TotalStudents)
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// Rollup summarizes one student's month for dashboard views.
type Rollup struct {
	TotalClasses         int `json:"total_classes"`
	PresentClasses       int `json:"present_classes"`
	AbsentClasses        int `json:"absent_classes"`
	AttendancePercentage int `json:"attendance_percentage"`
}

// MonthlyRollup reduces a student's records inside the [monthStart, monthEnd]
// window (inclusive, day granularity).
func MonthlyRollup(records []Record, studentID string, monthStart, monthEnd time.Time) Rollup {
	start := DayOf(monthStart)
	end := DayOf(monthEnd)
	var roll Rollup
	for _, rec := range records {
		day := DayOf(rec.Day)
		if day.Before(start) || day.After(end) {
			continue
		}
		for _, s := range rec.Students {
			if s.StudentID != studentID {
				continue
			}
			roll.TotalClasses++
			if s.Status == Present {
				roll.PresentClasses++
			} else {
				roll.AbsentClasses++
			}
		}
	}
	roll.AttendancePercentage = percent(roll.PresentClasses, roll.TotalClasses)
	return roll
}

// percent rounds present/total to a whole percentage, 0 when total is 0.
func percent(present, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}
