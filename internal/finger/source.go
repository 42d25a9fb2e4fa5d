package finger

import "github.com/goatkit/fingerd/internal/models"

// Source answers user queries for the finger server. Implementations
// must be safe for concurrent use: every accepted connection may call
// into the source from its own goroutine.
type Source interface {
	// SearchUsers returns the users matching the query. A nil query
	// matches every login; otherwise matching is a case-sensitive
	// substring test on the login. A nil active returns all users,
	// true only users with at least one live session, false the
	// complement. Returned users are snapshots owned by the caller.
	SearchUsers(query *string, active *bool) []*models.User

	// TransmitQuery relays a query to a foreign host and returns the
	// distant answer, already formatted.
	TransmitQuery(host, username string, verbose bool) string
}

// DummySource is the fallback source used when none is configured.
// It knows no users and refuses to relay, so an unconfigured server
// cannot be used as an open relay.
type DummySource struct{}

// SearchUsers implements Source.
func (DummySource) SearchUsers(query *string, active *bool) []*models.User {
	return nil
}

// TransmitQuery implements Source.
func (DummySource) TransmitQuery(host, username string, verbose bool) string {
	return "This server won't transmit finger queries.\r\n"
}
