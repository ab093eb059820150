package policy

// Scope is the query filter a principal's role imposes on report reads.
// The zero value is unrestricted (admin).
type Scope struct {
	// TeacherID restricts results to records owned by this teacher.
	TeacherID string
	// StudentID restricts results to records containing this student.
	StudentID string
}

// Unrestricted reports whether the scope imposes no filter.
func (s Scope) Unrestricted() bool {
	return s.TeacherID == "" && s.StudentID == ""
}

// ScopeFor derives the report filter from the principal's role:
// admins see everything, teachers see their own records, students see
// records that contain them.
func ScopeFor(p *Principal) Scope {
	if p == nil {
		// An unauthenticated caller never reaches a scoped query; the
		// policy gate rejects first. Scope to nothing visible anyway.
		return Scope{TeacherID: "-", StudentID: "-"}
	}
	switch p.Role {
	case RoleAdmin:
		return Scope{}
	case RoleTeacher:
		return Scope{TeacherID: p.UserID}
	default:
		return Scope{StudentID: p.UserID}
	}
}

// AllowStudentHistory reports whether the principal may read the attendance
// history of the given student. Students may only read their own.
func AllowStudentHistory(p *Principal, studentID string) bool {
	if p == nil {
		return false
	}
	if p.Role == RoleStudent {
		return p.UserID == studentID
	}
	return true
}
