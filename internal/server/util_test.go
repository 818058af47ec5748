package server

import "testing"

func TestSanitizeBase(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"/", ""},
		{"api", "/api"},
		{"/api", "/api"},
		{"/api/", "/api"},
		{"  /api  ", "/api"},
	}
	for _, c := range cases {
		if got := sanitizeBase(c.in); got != c.want {
			t.Errorf("sanitizeBase(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsSafeName(t *testing.T) {
	valid := []string{"web", "proc-1", "a.b_c", "UPPER"}
	for _, s := range valid {
		if !isSafeName(s) {
			t.Errorf("isSafeName(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "..", "a/b", `a\b`, "a b", "name..x", "p$d"}
	for _, s := range invalid {
		if isSafeName(s) {
			t.Errorf("isSafeName(%q) = true, want false", s)
		}
	}
}

func TestIsSafeAbsPath(t *testing.T) {
	valid := []string{"", "/", "/usr/bin/env", "/tmp/work/"}
	for _, p := range valid {
		if !isSafeAbsPath(p) {
			t.Errorf("isSafeAbsPath(%q) = false, want true", p)
		}
	}
	invalid := []string{"relative/path", "./x", "/usr/../etc/passwd"}
	for _, p := range invalid {
		if isSafeAbsPath(p) {
			t.Errorf("isSafeAbsPath(%q) = true, want false", p)
		}
	}
}
