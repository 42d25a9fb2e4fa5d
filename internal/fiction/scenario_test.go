package fiction

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func minimalScenario(actions ...timedAction) *Scenario {
	sc := &Scenario{}
	for _, ta := range actions {
		sc.Add(ta.offset, ta.action)
	}
	sc.SetEnding(EndingFreeze)
	sc.SetDuration(time.Hour)
	return sc
}

func TestParseEndingType(t *testing.T) {
	cases := map[string]EndingType{
		"freeze":    EndingFreeze,
		"interrupt": EndingFreeze,
		"stop":      EndingStop,
		"repeat":    EndingRepeat,
	}
	for raw, want := range cases {
		got, err := ParseEndingType(raw)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseEndingType("explode")
	require.Error(t, err)
}

func TestScenarioVerifyNeedsEnding(t *testing.T) {
	sc := &Scenario{}
	sc.Add(0, CreateUser{Login: "alice"})
	require.Error(t, sc.Verify())

	sc.SetDuration(time.Minute)
	require.Error(t, sc.Verify())

	sc.SetEnding(EndingFreeze)
	require.NoError(t, sc.Verify())
}

func TestScenarioVerifyCatchesMissingUser(t *testing.T) {
	sc := minimalScenario()
	sc.Add(10*time.Second, Login{Login: "ghost"})

	err := sc.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), `user "ghost" does not exist`)
	require.Contains(t, err.Error(), "10s")
}

func TestScenarioVerifyIgnoresDeadActions(t *testing.T) {
	sc := &Scenario{}
	sc.Add(0, CreateUser{Login: "alice"})
	// This action sits at the duration boundary; it will never play,
	// so its dangling user reference must not fail verification.
	sc.Add(10*time.Second, Login{Login: "ghost"})
	sc.SetEnding(EndingFreeze)
	sc.SetDuration(10 * time.Second)

	require.NoError(t, sc.Verify())
}

func TestScenarioVerifyCatchesDuplicateCreate(t *testing.T) {
	sc := minimalScenario()
	sc.Add(0, CreateUser{Login: "alice"})
	sc.Add(time.Second, CreateUser{Login: "alice"})

	err := sc.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), `user "alice" already exists`)
}

func TestScenarioVerifyCatchesUseAfterDelete(t *testing.T) {
	sc := minimalScenario()
	sc.Add(0, CreateUser{Login: "alice"})
	sc.Add(time.Second, DeleteUser{Login: "alice"})
	sc.Add(2*time.Second, EditUser{Login: "alice"})

	err := sc.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestScenarioVerifyCatchesMissingSession(t *testing.T) {
	sc := minimalScenario()
	sc.Add(0, CreateUser{Login: "alice"})
	sc.Add(time.Second, Logout{Login: "alice"})

	err := sc.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), `user "alice" has no session`)
}

func TestScenarioVerifyCatchesMissingNamedSession(t *testing.T) {
	sc := minimalScenario()
	sc.Add(0, CreateUser{Login: "alice"})
	sc.Add(time.Second, Login{Login: "alice"})
	sc.Add(2*time.Second, SessionChange{Login: "alice", SessionName: strPtr("work"), Idle: SetBool(true)})

	err := sc.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), `no session named "work"`)
}

func TestScenarioVerifyFlagsFirstOffense(t *testing.T) {
	sc := minimalScenario()
	sc.Add(0, CreateUser{Login: "alice"})
	sc.Add(5*time.Second, EditUser{Login: "bob"})
	sc.Add(10*time.Second, EditUser{Login: "carol"})

	err := sc.Verify()
	require.Error(t, err)
	require.Contains(t, err.Error(), "#2 at 5s")
	require.NotContains(t, err.Error(), "carol")
}

func TestScenarioBetweenHalfOpen(t *testing.T) {
	sc := minimalScenario()
	sc.Add(10*time.Second, CreateUser{Login: "a"})
	sc.Add(20*time.Second, CreateUser{Login: "b"})
	sc.Add(30*time.Second, CreateUser{Login: "c"})

	since := 10 * time.Second
	got := sc.Between(&since, 30*time.Second)
	require.Len(t, got, 2)
	require.Equal(t, 20*time.Second, got[0].offset)
	require.Equal(t, 30*time.Second, got[1].offset)

	require.Len(t, sc.Between(nil, 10*time.Second), 1)
}

func TestScenarioBetweenSkipsActionsPastDuration(t *testing.T) {
	sc := &Scenario{}
	sc.Add(10*time.Second, CreateUser{Login: "a"})
	sc.Add(time.Hour, CreateUser{Login: "late"})
	sc.SetEnding(EndingFreeze)
	sc.SetDuration(time.Hour)

	got := sc.Between(nil, 2*time.Hour)
	require.Len(t, got, 1)
	require.Equal(t, 10*time.Second, got[0].offset)
}

func TestScenarioKeepsInsertionOrderAtEqualOffsets(t *testing.T) {
	sc := minimalScenario()
	sc.Add(time.Second, CreateUser{Login: "alice"})
	sc.Add(time.Second, Login{Login: "alice"})
	sc.Add(0, CreateUser{Login: "bob"})

	got := sc.Between(nil, time.Minute)
	require.Len(t, got, 3)
	require.Equal(t, "bob", got[0].action.(CreateUser).Login)
	if _, ok := got[1].action.(CreateUser); !ok {
		t.Fatalf("create should stay before the login it enables, got %T", got[1].action)
	}
}

// A scenario that passes Verify must replay cleanly against a real
// store.
func TestVerifiedScenarioReplaysWithoutStoreErrors(t *testing.T) {
	sc := minimalScenario()
	sc.Add(0, CreateUser{Login: "alice", Name: strPtr("Alice")})
	sc.Add(time.Second, Login{Login: "alice", SessionName: strPtr("work")})
	sc.Add(2*time.Second, SessionChange{Login: "alice", SessionName: strPtr("work"), Idle: SetBool(true)})
	sc.Add(3*time.Second, Logout{Login: "alice", SessionName: strPtr("work")})
	sc.Add(4*time.Second, DeleteUser{Login: "alice"})

	require.NoError(t, sc.Verify())

	st := NewStore()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, ta := range sc.Between(nil, time.Hour) {
		if err := st.Apply(ta.action, base.Add(ta.offset)); err != nil {
			t.Fatalf("verified scenario failed against the store: %v", err)
		}
	}
	require.Empty(t, st.SearchUsers(nil, nil, base.Add(time.Hour)))
}

func TestEndingTypeString(t *testing.T) {
	if !strings.Contains(EndingRepeat.String(), "repeat") {
		t.Fatalf("unexpected String: %q", EndingRepeat.String())
	}
}
