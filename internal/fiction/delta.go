// Package fiction implements the scriptable finger data source: a
// state store of made-up users and sessions, a scenario of timed
// mutations, and the scheduler that replays the scenario against a
// simulated clock.
package fiction

import (
	"fmt"
	"strings"
	"time"
)

const (
	week = 7 * 24 * time.Hour
	day  = 24 * time.Hour
)

// ParseDelta decodes a time offset such as "1h30m", "2w1j" or "-15s".
// The grammar is an optional leading '-' followed by one or more
// integer/unit pairs; units are w (weeks), d or j (days), h, m and s.
// Pairs accumulate and the sign negates the whole sum.
func ParseDelta(s string) (time.Duration, error) {
	rest := s
	negative := strings.HasPrefix(rest, "-")
	if negative {
		rest = rest[1:]
	}
	if rest == "" {
		return 0, fmt.Errorf("invalid time offset %q", s)
	}

	var total time.Duration
	pairs := 0
	for rest != "" {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i == len(rest) {
			return 0, fmt.Errorf("invalid time offset %q", s)
		}

		var n int64
		for _, c := range rest[:i] {
			n = n*10 + int64(c-'0')
		}

		var unit time.Duration
		switch rest[i] {
		case 'w':
			unit = week
		case 'd', 'j':
			unit = day
		case 'h':
			unit = time.Hour
		case 'm':
			unit = time.Minute
		case 's':
			unit = time.Second
		default:
			return 0, fmt.Errorf("invalid time offset %q", s)
		}

		total += time.Duration(n) * unit
		rest = rest[i+1:]
		pairs++
	}
	if pairs == 0 {
		return 0, fmt.Errorf("invalid time offset %q", s)
	}

	if negative {
		total = -total
	}
	return total, nil
}

// FormatDelta is the inverse of ParseDelta, greedy from the largest
// unit down. A seconds component is always present for sub-minute
// durations and nonzero second remainders. Strictly negative
// durations are expressed in seconds only, keeping the reference
// behavior rather than decomposing the magnitude.
func FormatDelta(d time.Duration) string {
	if d < 0 {
		return fmt.Sprintf("-%ds", int64(-d/time.Second))
	}

	secs := int64(d / time.Second)
	var b strings.Builder

	for _, step := range []struct {
		unit  string
		width int64
	}{
		{"w", int64(week / time.Second)},
		{"d", int64(day / time.Second)},
		{"h", 3600},
		{"m", 60},
	} {
		if secs >= step.width {
			fmt.Fprintf(&b, "%d%s", secs/step.width, step.unit)
			secs %= step.width
		}
	}

	if secs > 0 || b.Len() == 0 {
		fmt.Fprintf(&b, "%ds", secs)
	}
	return b.String()
}
