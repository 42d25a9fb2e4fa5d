package finger

import (
	"net"
	"strings"
)

// DefaultBinds is the listening endpoint used when none is configured.
const DefaultBinds = "localhost:79"

// Bind is one resolved listening endpoint.
type Bind struct {
	Host string
	Port string
}

// Addr returns the bind in net.Listen form.
func (b Bind) Addr() string {
	return net.JoinHostPort(b.Host, b.Port)
}

// ParseBinds decodes a comma-separated host:port list. IPv6 addresses
// use the usual bracket form ("[::1]:79"). An entry without a port
// listens on the finger port. An empty list is ErrNoBinds.
func ParseBinds(binds string) ([]Bind, error) {
	var out []Bind
	for _, entry := range strings.Split(binds, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		host, port, err := net.SplitHostPort(entry)
		if err != nil {
			// No port component; take the whole entry as the host.
			if strings.Contains(err.Error(), "missing port") {
				host = strings.Trim(entry, "[]")
				port = "79"
			} else {
				return nil, &BindError{Bind: entry, Reason: err.Error()}
			}
		}
		if host == "" {
			return nil, &BindError{Bind: entry, Reason: "empty host"}
		}
		out = append(out, Bind{Host: host, Port: port})
	}

	if len(out) == 0 {
		return nil, ErrNoBinds
	}
	return out, nil
}
