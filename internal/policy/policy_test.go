package policy

import (
	"testing"

	"classledger/internal/apperr"
)

func TestAuthorizeExhaustive(t *testing.T) {
	roles := []Role{RoleStudent, RoleTeacher, RoleAdmin}
	requiredSets := [][]Role{
		nil,
		{RoleTeacher},
		{RoleAdmin},
		{RoleTeacher, RoleAdmin},
		{RoleStudent, RoleTeacher, RoleAdmin},
	}

	for _, role := range roles {
		for _, approved := range []bool{false, true} {
			for _, blocked := range []bool{false, true} {
				for _, required := range requiredSets {
					for _, requireApproved := range []bool{false, true} {
						p := &Principal{UserID: "u1", Role: role, IsApproved: approved, IsBlocked: blocked}

						want := ""
						switch {
						case blocked:
							want = string(apperr.Blocked)
						case len(required) > 0 && !roleIn(role, required):
							want = string(apperr.InsufficientRole)
						case requireApproved && !approved:
							want = string(apperr.PendingApproval)
						}

						err := Authorize(p, required, requireApproved)
						if want == "" {
							if err != nil {
								t.Errorf("Authorize(%s approved=%v blocked=%v req=%v reqApproved=%v) = %v, want allow",
									role, approved, blocked, required, requireApproved, err)
							}
							continue
						}
						if err == nil || string(apperr.KindOf(err)) != want {
							t.Errorf("Authorize(%s approved=%v blocked=%v req=%v reqApproved=%v) = %v, want kind %s",
								role, approved, blocked, required, requireApproved, err, want)
						}
					}
				}
			}
		}
	}
}

func TestAuthorizeNilPrincipal(t *testing.T) {
	err := Authorize(nil, nil, false)
	if !apperr.Is(err, apperr.Unauthenticated) {
		t.Fatalf("Authorize(nil) = %v, want Unauthenticated", err)
	}
}

func TestAuthorizeBlockedAdminDenied(t *testing.T) {
	// The block check must run before any role or approval shortcut.
	p := &Principal{UserID: "a1", Role: RoleAdmin, IsApproved: true, IsBlocked: true}
	err := Authorize(p, []Role{RoleAdmin}, true)
	if !apperr.Is(err, apperr.Blocked) {
		t.Fatalf("blocked admin: got %v, want Blocked", err)
	}
}

func TestScopeFor(t *testing.T) {
	tests := []struct {
		name string
		p    *Principal
		want Scope
	}{
		{name: "admin unrestricted", p: &Principal{UserID: "a", Role: RoleAdmin}, want: Scope{}},
		{name: "teacher own records", p: &Principal{UserID: "t", Role: RoleTeacher}, want: Scope{TeacherID: "t"}},
		{name: "student own membership", p: &Principal{UserID: "s", Role: RoleStudent}, want: Scope{StudentID: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScopeFor(tt.p); got != tt.want {
				t.Errorf("ScopeFor() = %+v, want %+v", got, tt.want)
			}
		})
	}

	if s := ScopeFor(nil); s.Unrestricted() {
		t.Error("ScopeFor(nil) must not be unrestricted")
	}
}

func TestAllowStudentHistory(t *testing.T) {
	student := &Principal{UserID: "s1", Role: RoleStudent}
	if AllowStudentHistory(student, "s2") {
		t.Error("student must not read another student's history")
	}
	if !AllowStudentHistory(student, "s1") {
		t.Error("student must read their own history")
	}
	if !AllowStudentHistory(&Principal{UserID: "t1", Role: RoleTeacher}, "s2") {
		t.Error("teacher may read student history")
	}
	if AllowStudentHistory(nil, "s1") {
		t.Error("nil principal must be denied")
	}
}
