package finger

import (
	"fmt"
	"strings"
	"time"

	"github.com/goatkit/fingerd/internal/models"
)

// Formatter renders answers for the finger server. Implementations
// are pure renderers: no I/O, no stored state beyond presentation
// configuration such as the timezone.
type Formatter interface {
	// FormatQueryError renders the answer for a malformed query.
	FormatQueryError(hostname, rawQuery string) string
	// FormatShort renders the column-aligned user table.
	FormatShort(hostname, rawQuery string, users []*models.User) string
	// FormatLong renders the verbose per-user listing.
	FormatLong(hostname, rawQuery string, users []*models.User) string
}

// TextFormatter is the default RFC 1288 formatter.
type TextFormatter struct {
	loc *time.Location
	now func() time.Time
}

// NewTextFormatter returns a formatter rendering timestamps in the
// given location. A nil location means the local timezone.
func NewTextFormatter(loc *time.Location) *TextFormatter {
	if loc == nil {
		loc = time.Local
	}
	return &TextFormatter{loc: loc, now: time.Now}
}

// FormatQueryError implements Formatter.
func (f *TextFormatter) FormatQueryError(hostname, rawQuery string) string {
	return "Site: " + hostname + "\r\n" +
		"You have made a mistake in your query!\r\n"
}

// FormatShort implements Formatter.
func (f *TextFormatter) FormatShort(hostname, rawQuery string, users []*models.User) string {
	if len(users) == 0 {
		return "No user list available.\r\n"
	}

	now := f.now()

	type row struct {
		user    *models.User
		session *models.Session
	}
	var rows []row
	for _, user := range users {
		if len(user.Sessions) == 0 {
			rows = append(rows, row{user: user})
		}
		for _, session := range user.Sessions {
			rows = append(rows, row{user: user, session: session})
		}
	}

	columns := make([][]string, 6)
	columns[0] = append(columns[0], "Login")
	columns[1] = append(columns[1], "Name")
	columns[2] = append(columns[2], "TTY")
	columns[3] = append(columns[3], "Idle")
	columns[4] = append(columns[4], "When")
	columns[5] = append(columns[5], "Office")

	for _, r := range rows {
		var line, idle, when, office string
		if r.session != nil {
			if r.session.Line != nil {
				line = *r.session.Line
			}
			idle = f.formatTime(now.Sub(r.session.Idle))
			when = r.session.Start.In(f.loc).Format("Mon 15:04")
		}
		switch {
		case r.session != nil && r.session.Host != nil:
			office = "(" + *r.session.Host + ")"
		case r.user.Office != nil:
			office = *r.user.Office
		}
		columns[0] = append(columns[0], r.user.Login)
		columns[1] = append(columns[1], r.user.Name)
		columns[2] = append(columns[2], line)
		columns[3] = append(columns[3], idle)
		columns[4] = append(columns[4], when)
		columns[5] = append(columns[5], office)
	}

	// Column width is the widest natural value plus one; Idle and
	// When are centered, everything else left-justified.
	sizes := make([]int, len(columns))
	for i, column := range columns {
		for _, cell := range column {
			if len(cell) >= sizes[i] {
				sizes[i] = len(cell) + 1
			}
		}
	}
	centered := []bool{false, false, false, true, true, false}

	var lines []string
	for li := range columns[0] {
		cells := make([]string, len(columns))
		for i := range columns {
			cell := columns[i][li]
			if len(cell) > sizes[i] {
				cell = cell[:sizes[i]]
			}
			if centered[i] {
				cells[i] = pad(cell, sizes[i], true)
			} else {
				cells[i] = pad(cell, sizes[i], false)
			}
		}
		lines = append(lines, strings.Join(cells, " "))
	}

	return f.formatHeader(hostname, rawQuery) +
		strings.Join(lines, "\r\n") + "\r\n" +
		f.formatFooter()
}

// FormatLong implements Formatter.
func (f *TextFormatter) FormatLong(hostname, rawQuery string, users []*models.User) string {
	if len(users) == 0 {
		return "No user list available.\r\n"
	}

	now := f.now()
	var b strings.Builder

	for _, user := range users {
		name := user.Name
		if name == "" {
			name = user.Login
		}
		home := deref(user.Home)
		fmt.Fprintf(&b, "Login name: %-27s Name: %s\r\n", clip(user.Login, 27), name)
		fmt.Fprintf(&b, "Directory: %-28s Shell: %s\r\n", clip(home, 28), deref(user.Shell))
		if user.Office != nil {
			fmt.Fprintf(&b, "Office: %s\r\n", *user.Office)
		}

		switch {
		case len(user.Sessions) > 0:
			for _, session := range user.Sessions {
				since := session.Start.In(f.loc).Format("Mon Jan _2 15:04")
				fmt.Fprintf(&b, "On since %s (%s)", since, f.loc)
				if session.Line != nil {
					fmt.Fprintf(&b, " on %s", *session.Line)
				}
				if session.Host != nil {
					fmt.Fprintf(&b, " from %s", *session.Host)
				}
				b.WriteString("\r\n")

				if idle := now.Sub(session.Idle); idle >= 4*time.Second {
					fmt.Fprintf(&b, "   %s\r\n", f.formatIdle(idle))
				}
			}
		case user.LastLogin != nil:
			date := user.LastLogin.In(f.loc).Format("Mon Jan _2 15:04")
			fmt.Fprintf(&b, "Last login %s (%s) on console\r\n", date, f.loc)
		default:
			b.WriteString("Never logged in.\r\n")
		}

		if user.Plan == nil {
			b.WriteString("No plan.\r\n")
		} else {
			b.WriteString("Plan:\r\n")
			b.WriteString(strings.Join(strings.Split(*user.Plan, "\n"), "\r\n"))
			b.WriteString("\r\n")
		}

		b.WriteString("\r\n")
	}

	return f.formatHeader(hostname, rawQuery) + b.String() + f.formatFooter()
}

func (f *TextFormatter) formatHeader(hostname, rawQuery string) string {
	if rawQuery != "" {
		rawQuery = " " + rawQuery
	}
	return "Site: " + hostname + "\r\n" +
		"Command line:" + rawQuery + "\r\n" +
		"\r\n"
}

func (f *TextFormatter) formatFooter() string {
	return ""
}

// formatIdle renders an idle duration as "N days N hours N minutes
// N seconds idle", omitting zero components.
func (f *TextFormatter) formatIdle(idle time.Duration) string {
	days, secs := splitDuration(idle)
	hours := secs / 3600
	mins := secs % 3600 / 60
	seconds := secs % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if mins > 0 {
		parts = append(parts, plural(mins, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}
	return strings.Join(parts, " ") + " idle"
}

// formatTime renders an elapsed duration for the short format's Idle
// column: "Nd" beyond a day, "HH:MM" beyond a minute, else empty.
func (f *TextFormatter) formatTime(d time.Duration) string {
	if d < 0 {
		return ""
	}
	days, secs := splitDuration(d)
	hours := secs / 3600
	mins := secs % 3600 / 60

	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	if hours > 0 || mins > 0 {
		return fmt.Sprintf("%02d:%02d", hours, mins)
	}
	return ""
}

// splitDuration decomposes a duration into whole days and the
// remaining seconds within the day.
func splitDuration(d time.Duration) (days, secs int) {
	total := int(d / time.Second)
	return total / 86400, total % 86400
}

func plural(n int, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss", n, unit)
	}
	return fmt.Sprintf("%d %s", n, unit)
}

func pad(s string, width int, center bool) string {
	if len(s) >= width {
		return s
	}
	if !center {
		return s + strings.Repeat(" ", width-len(s))
	}
	left := (width - len(s)) / 2
	right := width - len(s) - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
