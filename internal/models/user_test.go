package models

import "testing"

func TestNormalizePlanLineEndings(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"one\r\ntwo", "one\ntwo"},
		{"one\rtwo", "one\ntwo"},
		{"one\ntwo\n", "one\ntwo"},
		{"one\ntwo\n\n", "one\ntwo\n"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizePlan(c.raw); got != c.want {
			t.Fatalf("NormalizePlan(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}
