package fiction

import (
	"fmt"
	"sort"
	"time"
)

// EndingType is what the scheduler does once the scenario's duration
// has elapsed.
type EndingType int

const (
	// EndingFreeze keeps serving the final state forever.
	EndingFreeze EndingType = iota

	// EndingStop shuts the server down.
	EndingStop

	// EndingRepeat replays the scenario from the beginning.
	EndingRepeat
)

func (e EndingType) String() string {
	switch e {
	case EndingFreeze:
		return "freeze"
	case EndingStop:
		return "stop"
	case EndingRepeat:
		return "repeat"
	default:
		return fmt.Sprintf("EndingType(%d)", int(e))
	}
}

// ParseEndingType reads an ending type from its scenario file
// spelling. "interrupt" is accepted as an alias for "freeze".
func ParseEndingType(raw string) (EndingType, error) {
	switch raw {
	case "freeze", "interrupt":
		return EndingFreeze, nil
	case "stop":
		return EndingStop, nil
	case "repeat":
		return EndingRepeat, nil
	default:
		return 0, fmt.Errorf("fiction: unknown ending type %q", raw)
	}
}

type timedAction struct {
	offset time.Duration
	action Action
	// index preserves insertion order between actions sharing an
	// offset.
	index int
}

// Scenario is an ordered list of timed actions plus an ending. The
// zero value is an empty scenario with no ending set; Add, SetEnding
// and SetDuration build it up, Verify checks it replays cleanly.
type Scenario struct {
	actions []timedAction
	nextIdx int

	ending    EndingType
	endingSet bool

	duration    time.Duration
	durationSet bool
}

// Add appends an action at the given offset from scenario start.
// Actions at equal offsets keep their insertion order.
func (sc *Scenario) Add(offset time.Duration, action Action) {
	sc.actions = append(sc.actions, timedAction{offset: offset, action: action, index: sc.nextIdx})
	sc.nextIdx++
	sort.SliceStable(sc.actions, func(i, j int) bool {
		if sc.actions[i].offset != sc.actions[j].offset {
			return sc.actions[i].offset < sc.actions[j].offset
		}
		return sc.actions[i].index < sc.actions[j].index
	})
}

// SetEnding sets the ending type.
func (sc *Scenario) SetEnding(e EndingType) {
	sc.ending = e
	sc.endingSet = true
}

// SetDuration sets the scenario duration. Actions at or past the
// duration are never played.
func (sc *Scenario) SetDuration(d time.Duration) {
	sc.duration = d
	sc.durationSet = true
}

// Ending returns the ending type; it is only meaningful once
// SetEnding has been called.
func (sc *Scenario) Ending() EndingType { return sc.ending }

// Duration returns the scenario duration; it is only meaningful once
// SetDuration has been called.
func (sc *Scenario) Duration() time.Duration { return sc.duration }

// clone returns an independent copy of the scenario.
func (sc *Scenario) clone() *Scenario {
	out := *sc
	out.actions = append([]timedAction(nil), sc.actions...)
	return &out
}

// Between returns the actions with offsets in (since, to], in play
// order. A nil since means from the very beginning, inclusive.
// Actions at or past the duration are excluded.
func (sc *Scenario) Between(since *time.Duration, to time.Duration) []timedAction {
	var out []timedAction
	for _, ta := range sc.actions {
		if since != nil && ta.offset <= *since {
			continue
		}
		if ta.offset > to {
			break
		}
		if sc.durationSet && ta.offset >= sc.duration {
			continue
		}
		out = append(out, ta)
	}
	return out
}

// Verify checks that the scenario is complete and that its actions,
// replayed in order, never address a missing user or session, nor
// create a duplicate user. The returned error names the first
// offending action by its play order and offset.
func (sc *Scenario) Verify() error {
	if !sc.durationSet {
		return fmt.Errorf("fiction: scenario has no duration; does it have an ending?")
	}
	if !sc.endingSet {
		return fmt.Errorf("fiction: scenario has no ending type")
	}

	// Shadow replay tracking only existence: which users exist and
	// how many live sessions each holds per name. That is enough to
	// predict every lookup the store will make.
	type userShadow struct {
		sessions map[string]int
		total    int
	}
	users := make(map[string]*userShadow)

	checkSession := func(login string, name *string) (*userShadow, error) {
		u, ok := users[login]
		if !ok {
			return nil, fmt.Errorf("user %q does not exist", login)
		}
		if name == nil {
			if u.total == 0 {
				return nil, fmt.Errorf("user %q has no session", login)
			}
			return u, nil
		}
		if u.sessions[*name] == 0 {
			return nil, fmt.Errorf("user %q has no session named %q", login, *name)
		}
		return u, nil
	}

	for n, ta := range sc.actions {
		// Actions at or past the duration never play, so their
		// references are not checked either.
		if ta.offset >= sc.duration {
			continue
		}
		err := func() error {
			switch a := ta.action.(type) {
			case CreateUser:
				if _, ok := users[a.Login]; ok {
					return fmt.Errorf("user %q already exists", a.Login)
				}
				users[a.Login] = &userShadow{sessions: make(map[string]int)}
			case EditUser:
				if _, ok := users[a.Login]; !ok {
					return fmt.Errorf("user %q does not exist", a.Login)
				}
			case DeleteUser:
				if _, ok := users[a.Login]; !ok {
					return fmt.Errorf("user %q does not exist", a.Login)
				}
				delete(users, a.Login)
			case Login:
				u, ok := users[a.Login]
				if !ok {
					return fmt.Errorf("user %q does not exist", a.Login)
				}
				if a.SessionName != nil {
					u.sessions[*a.SessionName]++
				}
				u.total++
			case SessionChange:
				_, err := checkSession(a.Login, a.SessionName)
				return err
			case Logout:
				u, err := checkSession(a.Login, a.SessionName)
				if err != nil {
					return err
				}
				// An anonymous logout may remove a named session, so
				// the per-name counts are only decremented for named
				// logouts and stay upper bounds otherwise.
				if a.SessionName != nil {
					u.sessions[*a.SessionName]--
				}
				u.total--
			}
			return nil
		}()
		if err != nil {
			return fmt.Errorf("fiction: at action #%d at %s: %s", n+1, FormatDelta(ta.offset), err)
		}
	}
	return nil
}
