package fiction

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goatkit/fingerd/internal/models"
)

// ErrStore marks store-usage errors: a scenario or caller addressed
// a user or session that does not exist, created a duplicate login,
// or applied actions out of time order. These indicate a scenario
// that escaped validation or a clock handling bug, never a client
// mistake, so callers must not swallow them.
var ErrStore = errors.New("store usage error")

func storeErrorf(format string, args ...any) error {
	return fmt.Errorf("fiction: %w: %s", ErrStore, fmt.Sprintf(format, args...))
}

// Store is the authoritative registry of fictional users and their
// sessions. Its only mutation entry point is Apply; reads return
// deep snapshots. The store is safe for one writer and any number of
// concurrent readers, the deployment shape the scheduler and the
// connection handlers produce.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*user
	lastTime *time.Time
}

type user struct {
	login     string
	name      string
	home      *string
	shell     *string
	office    *string
	plan      *string
	lastLogin *time.Time
	// sessions are ordered most-recent first.
	sessions []*session
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{users: make(map[string]*user)}
}

// Reset reverts every action, returning the store to its initial
// empty state.
func (st *Store) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.users = make(map[string]*user)
	st.lastTime = nil
}

// Apply runs one action against the store at the given time. Times
// must be non-decreasing across calls; an earlier time is a store
// usage error. Each action is atomic: on error the visible state is
// unchanged.
func (st *Store) Apply(action Action, at time.Time) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.lastTime != nil && st.lastTime.After(at) {
		return storeErrorf("actions were not applied in order")
	}
	st.lastTime = &at

	switch a := action.(type) {
	case CreateUser:
		return st.applyCreate(a)
	case EditUser:
		return st.applyEdit(a)
	case DeleteUser:
		return st.applyDelete(a)
	case Login:
		return st.applyLogin(a, at)
	case SessionChange:
		return st.applySessionChange(a, at)
	case Logout:
		return st.applyLogout(a)
	default:
		return storeErrorf("unknown action %T", action)
	}
}

func (st *Store) applyCreate(a CreateUser) error {
	if a.Login == "" {
		return storeErrorf("missing login")
	}
	if _, ok := st.users[a.Login]; ok {
		return storeErrorf("already got a user with login %q", a.Login)
	}

	u := &user{login: a.Login}
	if a.Name != nil {
		u.name = *a.Name
	}
	u.home = copyString(a.Home)
	u.shell = copyString(a.Shell)
	u.office = copyString(a.Office)
	u.setPlan(a.Plan)

	st.users[a.Login] = u
	return nil
}

func (st *Store) applyEdit(a EditUser) error {
	u, err := st.lookup(a.Login)
	if err != nil {
		return err
	}

	if a.Name.Changed() {
		u.name = ""
		if v := a.Name.Value(); v != nil {
			u.name = *v
		}
	}
	if a.Home.Changed() {
		u.home = a.Home.Value()
	}
	if a.Shell.Changed() {
		u.shell = a.Shell.Value()
	}
	if a.Office.Changed() {
		u.office = a.Office.Value()
	}
	if a.Plan.Changed() {
		u.setPlan(a.Plan.Value())
	}
	return nil
}

func (st *Store) applyDelete(a DeleteUser) error {
	if _, err := st.lookup(a.Login); err != nil {
		return err
	}
	delete(st.users, a.Login)
	return nil
}

func (st *Store) applyLogin(a Login, at time.Time) error {
	u, err := st.lookup(a.Login)
	if err != nil {
		return err
	}

	// Duplicate session names are allowed; actions addressing a name
	// act on the most recent live session bearing it.
	s := &session{
		name:   copyString(a.SessionName),
		start:  at,
		line:   copyString(a.Line),
		host:   copyString(a.Host),
		anchor: at,
	}
	u.sessions = append([]*session{s}, u.sessions...)

	if u.lastLogin == nil || u.lastLogin.Before(at) {
		t := at
		u.lastLogin = &t
	}
	return nil
}

func (st *Store) applySessionChange(a SessionChange, at time.Time) error {
	u, err := st.lookup(a.Login)
	if err != nil {
		return err
	}
	i := u.findSession(a.SessionName)
	if i < 0 {
		return storeErrorf("got no session %s for user %q", sessionName(a.SessionName), a.Login)
	}

	if !a.Idle.Changed() {
		return nil
	}
	s := u.sessions[i]
	s.isIdle = a.Idle.Value()
	s.anchor = at
	return nil
}

func (st *Store) applyLogout(a Logout) error {
	u, err := st.lookup(a.Login)
	if err != nil {
		return err
	}
	i := u.findSession(a.SessionName)
	if i < 0 {
		return storeErrorf("got no session %s for user %q", sessionName(a.SessionName), a.Login)
	}
	u.sessions = append(u.sessions[:i], u.sessions[i+1:]...)
	return nil
}

func (st *Store) lookup(login string) (*user, error) {
	if login == "" {
		return nil, storeErrorf("missing login")
	}
	u, ok := st.users[login]
	if !ok {
		return nil, storeErrorf("got no user with login %q", login)
	}
	return u, nil
}

// findSession returns the index of the addressed session: the most
// recent one for a nil name, the most recent with a matching name
// otherwise, -1 when there is none.
func (u *user) findSession(name *string) int {
	if name == nil {
		if len(u.sessions) == 0 {
			return -1
		}
		return 0
	}
	for i, s := range u.sessions {
		if s.name != nil && *s.name == *name {
			return i
		}
	}
	return -1
}

func (u *user) setPlan(plan *string) {
	if plan == nil {
		u.plan = nil
		return
	}
	normalized := models.NormalizePlan(*plan)
	u.plan = &normalized
}

// SearchUsers returns snapshots of the users matching the query; the
// semantics are those of finger.Source.SearchUsers. The simulated
// idle reading of active sessions is computed against now.
func (st *Store) SearchUsers(query *string, active *bool, now time.Time) []*models.User {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*models.User
	for _, u := range st.users {
		if query != nil && !strings.Contains(u.login, *query) {
			continue
		}
		if active != nil && *active != (len(u.sessions) > 0) {
			continue
		}
		out = append(out, u.snapshot(now))
	}
	return out
}

// UserCount returns the number of live users.
func (st *Store) UserCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.users)
}

func (u *user) snapshot(now time.Time) *models.User {
	out := &models.User{
		Login:  u.login,
		Name:   u.name,
		Home:   copyString(u.home),
		Shell:  copyString(u.shell),
		Office: copyString(u.office),
		Plan:   copyString(u.plan),
	}
	if u.lastLogin != nil {
		t := *u.lastLogin
		out.LastLogin = &t
	}
	for _, s := range u.sessions {
		out.Sessions = append(out.Sessions, s.snapshot(now))
	}
	return out
}

func sessionName(name *string) string {
	if name == nil {
		return "<latest>"
	}
	return fmt.Sprintf("%q", *name)
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
