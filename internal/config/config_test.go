package config

import "testing"

func TestAdminMatch(t *testing.T) {
	app := App{AdminEmails: []string{"head@school.example", "@staff.example", " ops@school.example "}}

	tests := []struct {
		email string
		want  bool
	}{
		{"head@school.example", true},
		{"HEAD@School.Example", true},
		{"  head@school.example ", true},
		{"other@school.example", false},
		{"anyone@staff.example", true},
		{"anyone@other.example", false},
		{"ops@school.example", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := app.AdminMatch(tt.email); got != tt.want {
			t.Errorf("AdminMatch(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}

	if (App{}).AdminMatch("head@school.example") {
		t.Error("empty allow-list must match nothing")
	}
}

func TestSplitEnv(t *testing.T) {
	t.Setenv("TEST_SPLIT", "a@x.example, @y.example ,,b@z.example")
	got := splitEnv("TEST_SPLIT")
	want := []string{"a@x.example", "@y.example", "b@z.example"}
	if len(got) != len(want) {
		t.Fatalf("splitEnv = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitEnv[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	if !boolEnv("TEST_BOOL", false) {
		t.Error("boolEnv(true) = false")
	}
	t.Setenv("TEST_BOOL", "nope")
	if boolEnv("TEST_BOOL", false) {
		t.Error("boolEnv(invalid) must fall back")
	}
	t.Setenv("TEST_INT", "42")
	if got := intEnv("TEST_INT", 7); got != 42 {
		t.Errorf("intEnv = %d, want 42", got)
	}
	if got := intEnv("TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("intEnv fallback = %d, want 7", got)
	}
}
