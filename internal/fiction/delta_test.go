package fiction

import (
	"testing"
	"time"
)

func TestParseDelta(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"0s", 0},
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"2h30m", 2*time.Hour + 30*time.Minute},
		{"1w", 7 * 24 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1j", 24 * time.Hour},
		{"1w2d3h4m5s", 7*24*time.Hour + 2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second},
		{"-10s", -10 * time.Second},
		{"-1m30s", -(90 * time.Second)},
	}
	for _, c := range cases {
		got, err := ParseDelta(c.raw)
		if err != nil {
			t.Fatalf("ParseDelta(%q) returned error: %v", c.raw, err)
		}
		if got != c.want {
			t.Fatalf("ParseDelta(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestParseDeltaRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "-", "10", "s", "10x", "1h-30m", "ten seconds", "10 s"} {
		if _, err := ParseDelta(raw); err == nil {
			t.Fatalf("ParseDelta(%q) should have failed", raw)
		}
	}
}

func TestFormatDelta(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 30*time.Minute, "2h30m"},
		{9*24*time.Hour + 3*time.Hour, "1w2d3h"},
		{7 * 24 * time.Hour, "1w"},
	}
	for _, c := range cases {
		if got := FormatDelta(c.d); got != c.want {
			t.Fatalf("FormatDelta(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

// Negative offsets are only ever echoed back in diagnostics, where a
// raw second count is clearer than a mixed-unit rendering.
func TestFormatDeltaNegative(t *testing.T) {
	if got := FormatDelta(-90 * time.Second); got != "-90s" {
		t.Fatalf("FormatDelta(-90s) = %q, want %q", got, "-90s")
	}
}

func TestDeltaRoundTrip(t *testing.T) {
	for _, raw := range []string{"0s", "45s", "3m", "1m30s", "5h4m", "1w2d3h4m5s"} {
		d, err := ParseDelta(raw)
		if err != nil {
			t.Fatalf("ParseDelta(%q) returned error: %v", raw, err)
		}
		if got := FormatDelta(d); got != raw {
			t.Fatalf("round trip of %q gave %q", raw, got)
		}
	}
}
