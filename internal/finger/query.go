package finger

import "strings"

// Query is one decoded finger request. RFC 1288 recognizes three
// shapes: {C} lists online users, {Q1} asks about a local user and
// {Q2} asks a remote host about a user.
type Query struct {
	// Host is the target of a relay request, nil for local queries.
	Host *string
	// Username is the requested login, nil for a plain listing.
	Username *string
	// Verbose is set by the /W flag.
	Verbose bool
	// Raw is the filtered request line, kept for logging and echoing.
	Raw string
}

// DecodeQuery parses one raw request line.
//
// Bytes outside printable 7-bit ASCII, tabs and line terminators are
// dropped before tokenizing, per the RFC 1288 robustness guidance;
// the filter itself never fails. A MalformedQueryError is returned
// for an empty flag block, an unknown flag letter or more than one
// non-flag token.
func DecodeQuery(raw []byte) (*Query, error) {
	line := filterQueryBytes(raw)

	q := &Query{Raw: line}
	for _, token := range strings.Fields(line) {
		if token[0] == '/' {
			flags := token[1:]
			if flags == "" {
				return nil, &MalformedQueryError{
					Query:  line,
					Reason: "missing feature flags after '/'",
				}
			}
			for _, letter := range flags {
				if letter != 'W' {
					return nil, &MalformedQueryError{
						Query:  line,
						Reason: "unknown feature flag " + string(letter),
					}
				}
				q.Verbose = true
			}
			continue
		}
		if q.Username != nil {
			return nil, &MalformedQueryError{
				Query:  line,
				Reason: "multiple query arguments",
			}
		}
		username := token
		q.Username = &username
	}

	if q.Username != nil && strings.Contains(*q.Username, "@") {
		// The final @-segment is the relay host; everything before it,
		// rejoined, stays the username.
		parts := strings.Split(*q.Username, "@")
		host := parts[len(parts)-1]
		username := strings.Join(parts[:len(parts)-1], "@")
		q.Host = &host
		q.Username = &username
	}

	return q, nil
}

// filterQueryBytes keeps printable 7-bit ASCII (0x20-0x7E) and tabs;
// every other byte, the line terminator included, is silently dropped.
func filterQueryBytes(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if (c >= 0x20 && c <= 0x7e) || c == '\t' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
