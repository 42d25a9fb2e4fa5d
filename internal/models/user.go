package models

import (
	"strings"
	"time"
)

// User represents a user known to a finger data source.
// Sources own the records they return; callers receive snapshots and
// may not assume any of them stays current after the call.
type User struct {
	Login     string     `json:"login"`
	Name      string     `json:"name"`
	Home      *string    `json:"home,omitempty"`
	Shell     *string    `json:"shell,omitempty"`
	Office    *string    `json:"office,omitempty"`
	Plan      *string    `json:"plan,omitempty"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	// Sessions are ordered most-recent first.
	Sessions []*Session `json:"sessions,omitempty"`
}

// Session represents one connection a user has to the host.
type Session struct {
	Start time.Time `json:"start"`
	// Idle is the timestamp of the last sign of activity on the session.
	Idle time.Time `json:"idle"`
	Line *string   `json:"line,omitempty"`
	Host *string   `json:"host,omitempty"`
}

// NormalizePlan rewrites plan text with "\n" line endings and no
// trailing terminator.
func NormalizePlan(plan string) string {
	return strings.Join(splitLines(plan), "\n")
}

// splitLines splits on "\n", "\r\n" or bare "\r", dropping a single
// trailing terminator so round-tripping does not grow the text.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
