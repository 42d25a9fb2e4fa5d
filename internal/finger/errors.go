// Package finger implements the RFC 1288 query protocol: request
// decoding, answer formatting, the data source capability and the
// TCP server that ties them together.
package finger

import (
	"errors"
	"fmt"
)

// ErrNoBinds is returned when the configured bind list is empty.
var ErrNoBinds = errors.New("finger: no binds configured")

// MalformedQueryError reports a request line the decoder rejected.
// It is answered on the wire with the formatter's query-error text and
// never terminates the server.
type MalformedQueryError struct {
	Query  string
	Reason string
}

func (e *MalformedQueryError) Error() string {
	return fmt.Sprintf("finger: malformed query %q: %s", e.Query, e.Reason)
}

// HostnameError reports a configured hostname that is not plain
// letters, digits, hyphens and dots.
type HostnameError struct {
	Hostname string
}

func (e *HostnameError) Error() string {
	return fmt.Sprintf("finger: invalid hostname %q", e.Hostname)
}

// BindError reports an entry of the bind list that could not be parsed.
type BindError struct {
	Bind   string
	Reason string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("finger: invalid bind %q: %s", e.Bind, e.Reason)
}
