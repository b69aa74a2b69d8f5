package domain

import "testing"

func TestParseRole(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Role
	}{
		{"publisher", RolePublisher},
		{"camera", RolePublisher},
		{"subscriber", RoleSubscriber},
		{"viewer", RoleSubscriber},
	} {
		got, err := ParseRole(tc.in)
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRole(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseRole_RejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "admin", "Publisher"} {
		if _, err := ParseRole(in); err != ErrUnknownRole {
			t.Fatalf("ParseRole(%q) err=%v, want %v", in, err, ErrUnknownRole)
		}
	}
}
