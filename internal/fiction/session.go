package fiction

import (
	"math"
	"time"

	"github.com/goatkit/fingerd/internal/models"
)

// session is one live connection of a fictional user. The anchor
// timestamp is idleSince while idle and activeSince while active.
type session struct {
	name   *string
	start  time.Time
	line   *string
	host   *string
	isIdle bool
	anchor time.Time
}

// ComputeIdle returns the simulated last-activity timestamp of an
// active session. The reading drifts from now by a bounded
// pseudo-random number of seconds derived from the elapsed time
// since activeSince, summing two sine waves of different periods so
// the user appears to pause and resume at a plausible, irregular
// rate. The function is pure: the same (now, activeSince) pair
// always yields the same timestamp.
func ComputeIdle(now, activeSince time.Time) time.Time {
	s := func(x float64) float64 {
		return math.Sin(x * (math.Pi / 2))
	}

	// Seconds within the day, like the reference's timedelta.seconds.
	elapsed := int64(now.Sub(activeSince)/time.Second) % 86400
	if elapsed < 0 {
		elapsed += 86400
	}

	x := float64(elapsed)
	drift := int(math.Abs(s(x) + s(x/4)))
	return now.Add(-time.Duration(drift) * time.Second)
}

// snapshot renders the session for a caller, computing the simulated
// idle reading for active sessions.
func (s *session) snapshot(now time.Time) *models.Session {
	idle := s.anchor
	if !s.isIdle {
		idle = ComputeIdle(now, s.anchor)
	}
	out := &models.Session{Start: s.start, Idle: idle}
	if s.line != nil {
		line := *s.line
		out.Line = &line
	}
	if s.host != nil {
		host := *s.host
		out.Host = &host
	}
	return out
}
