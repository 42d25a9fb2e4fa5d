package finger

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goatkit/fingerd/internal/models"
)

var formatNow = time.Date(2026, 5, 1, 15, 30, 0, 0, time.UTC)

func testFormatter() *TextFormatter {
	f := NewTextFormatter(time.UTC)
	f.now = func() time.Time { return formatNow }
	return f
}

func sPtr(s string) *string { return &s }

func activeUser() *models.User {
	start := formatNow.Add(-2 * time.Hour)
	return &models.User{
		Login:  "alice",
		Name:   "Alice Liddell",
		Home:   sPtr("/home/alice"),
		Shell:  sPtr("/bin/zsh"),
		Office: sPtr("room 101"),
		Sessions: []*models.Session{{
			Start: start,
			Idle:  formatNow,
			Line:  sPtr("tty1"),
		}},
	}
}

func TestFormatQueryError(t *testing.T) {
	f := testFormatter()
	got := f.FormatQueryError("EXAMPLE", "/Z bob")
	want := "Site: EXAMPLE\r\nYou have made a mistake in your query!\r\n"
	require.Equal(t, want, got)
}

func TestFormatShortNoUsers(t *testing.T) {
	f := testFormatter()
	require.Equal(t, "No user list available.\r\n", f.FormatShort("EXAMPLE", "", nil))
}

func TestFormatShortHeaderAndColumns(t *testing.T) {
	f := testFormatter()
	got := f.FormatShort("EXAMPLE", "", []*models.User{activeUser()})

	lines := strings.Split(got, "\r\n")
	require.Equal(t, "Site: EXAMPLE", lines[0])
	require.Equal(t, "Command line:", lines[1])
	require.Equal(t, "", lines[2])

	header := lines[3]
	for _, col := range []string{"Login", "Name", "TTY", "Idle", "When", "Office"} {
		require.Contains(t, header, col)
	}

	row := lines[4]
	require.True(t, strings.HasPrefix(row, "alice "), "row %q should start with the login", row)
	require.Contains(t, row, "Alice Liddell")
	require.Contains(t, row, "tty1")
	require.Contains(t, row, "Fri 13:30")
	require.Contains(t, row, "room 101")

	// The answer ends with a terminated last line.
	require.True(t, strings.HasSuffix(got, "\r\n"))
}

func TestFormatShortEchoesQuery(t *testing.T) {
	f := testFormatter()
	got := f.FormatShort("EXAMPLE", "/W", []*models.User{activeUser()})
	require.Contains(t, got, "Command line: /W\r\n")
}

func TestFormatShortIdleColumn(t *testing.T) {
	f := testFormatter()

	cases := []struct {
		idle time.Duration
		want string
	}{
		{30 * time.Second, ""},
		{5 * time.Minute, "00:05"},
		{3*time.Hour + 7*time.Minute, "03:07"},
		{49 * time.Hour, "2d"},
	}
	for _, c := range cases {
		u := activeUser()
		u.Sessions[0].Idle = formatNow.Add(-c.idle)
		got := f.FormatShort("EXAMPLE", "", []*models.User{u})
		row := strings.Split(got, "\r\n")[4]
		if c.want == "" {
			// Only the When column carries a colon.
			require.Equal(t, 1, strings.Count(row, ":"), "row %q", row)
		} else {
			require.Contains(t, row, c.want)
		}
	}
}

func TestFormatShortSessionHostShownAsOffice(t *testing.T) {
	f := testFormatter()
	u := activeUser()
	u.Sessions[0].Host = sPtr("198.51.100.7")

	got := f.FormatShort("EXAMPLE", "", []*models.User{u})
	require.Contains(t, got, "(198.51.100.7)")
	require.NotContains(t, got, "room 101")
}

func TestFormatShortOfflineUserStillListed(t *testing.T) {
	f := testFormatter()
	u := activeUser()
	u.Sessions = nil

	got := f.FormatShort("EXAMPLE", "", []*models.User{u})
	row := strings.Split(got, "\r\n")[4]
	require.True(t, strings.HasPrefix(row, "alice "))
	require.Contains(t, row, "room 101")
}

func TestFormatShortOneRowPerSession(t *testing.T) {
	f := testFormatter()
	u := activeUser()
	u.Sessions = append(u.Sessions, &models.Session{
		Start: formatNow.Add(-time.Hour),
		Idle:  formatNow,
		Line:  sPtr("tty2"),
	})

	got := f.FormatShort("EXAMPLE", "", []*models.User{u})
	lines := strings.Split(strings.TrimSuffix(got, "\r\n"), "\r\n")
	// Header block, column header, two session rows.
	require.Len(t, lines, 6)
}

func TestFormatLongNoUsers(t *testing.T) {
	f := testFormatter()
	require.Equal(t, "No user list available.\r\n", f.FormatLong("EXAMPLE", "alice", nil))
}

func TestFormatLongActiveUser(t *testing.T) {
	f := testFormatter()
	got := f.FormatLong("EXAMPLE", "alice", []*models.User{activeUser()})

	require.Contains(t, got, "Site: EXAMPLE\r\n")
	require.Contains(t, got, "Command line: alice\r\n")
	require.Contains(t, got, "Login name: alice")
	require.Contains(t, got, "Name: Alice Liddell")
	require.Contains(t, got, "Directory: /home/alice")
	require.Contains(t, got, "Shell: /bin/zsh")
	require.Contains(t, got, "Office: room 101\r\n")
	require.Contains(t, got, "On since Fri May  1 13:30 (UTC) on tty1\r\n")
	require.Contains(t, got, "No plan.\r\n")
	require.NotContains(t, got, "idle")
}

func TestFormatLongIdleSession(t *testing.T) {
	f := testFormatter()
	u := activeUser()
	u.Sessions[0].Idle = formatNow.Add(-(26*time.Hour + 61*time.Second))

	got := f.FormatLong("EXAMPLE", "alice", []*models.User{u})
	require.Contains(t, got, "   1 day 2 hours 1 minute 1 second idle\r\n")
}

func TestFormatLongFreshSessionHidesIdle(t *testing.T) {
	f := testFormatter()
	u := activeUser()
	u.Sessions[0].Idle = formatNow.Add(-3 * time.Second)

	got := f.FormatLong("EXAMPLE", "alice", []*models.User{u})
	require.NotContains(t, got, "idle")
}

func TestFormatLongSessionHost(t *testing.T) {
	f := testFormatter()
	u := activeUser()
	u.Sessions[0].Host = sPtr("198.51.100.7")

	got := f.FormatLong("EXAMPLE", "alice", []*models.User{u})
	require.Contains(t, got, "on tty1 from 198.51.100.7\r\n")
}

func TestFormatLongLastLogin(t *testing.T) {
	f := testFormatter()
	u := activeUser()
	u.Sessions = nil
	last := formatNow.Add(-48 * time.Hour)
	u.LastLogin = &last

	got := f.FormatLong("EXAMPLE", "alice", []*models.User{u})
	require.Contains(t, got, "Last login Wed Apr 29 15:30 (UTC) on console\r\n")
}

func TestFormatLongNeverLoggedIn(t *testing.T) {
	f := testFormatter()
	u := activeUser()
	u.Sessions = nil

	got := f.FormatLong("EXAMPLE", "alice", []*models.User{u})
	require.Contains(t, got, "Never logged in.\r\n")
}

func TestFormatLongPlan(t *testing.T) {
	f := testFormatter()
	u := activeUser()
	u.Plan = sPtr("first line\nsecond line")

	got := f.FormatLong("EXAMPLE", "alice", []*models.User{u})
	require.Contains(t, got, "Plan:\r\nfirst line\r\nsecond line\r\n")
}

func TestFormatLongFallsBackToLoginAsName(t *testing.T) {
	f := testFormatter()
	u := activeUser()
	u.Name = ""

	got := f.FormatLong("EXAMPLE", "alice", []*models.User{u})
	require.Contains(t, got, "Name: alice\r\n")
}
