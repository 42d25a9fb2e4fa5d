package fiction

// OptString is a tri-state edit field: leave the target unchanged,
// set it to a value, or clear it explicitly.
type OptString struct {
	changed bool
	value   *string
}

// SetString returns an OptString that sets the field to v.
func SetString(v string) OptString {
	return OptString{changed: true, value: &v}
}

// ClearString returns an OptString that clears the field.
func ClearString() OptString {
	return OptString{changed: true}
}

// Changed reports whether the field is edited at all.
func (o OptString) Changed() bool { return o.changed }

// Value returns the new value; nil means an explicit clear. Only
// meaningful when Changed is true.
func (o OptString) Value() *string {
	if o.value == nil {
		return nil
	}
	v := *o.value
	return &v
}

// OptBool is the boolean counterpart of OptString.
type OptBool struct {
	changed bool
	value   bool
}

// SetBool returns an OptBool that sets the field to v.
func SetBool(v bool) OptBool {
	return OptBool{changed: true, value: v}
}

// Changed reports whether the field is edited at all.
func (o OptBool) Changed() bool { return o.changed }

// Value returns the new value. Only meaningful when Changed is true.
func (o OptBool) Value() bool { return o.value }

// Action is one mutation of the fictional state. It is a closed set:
// the store switches over the concrete types below and nothing else
// may implement the interface. Actions carry no time of their own;
// time is attached when they are added to a scenario or applied
// directly.
type Action interface {
	isAction()
}

// CreateUser introduces a new user.
type CreateUser struct {
	Login  string
	Name   *string
	Home   *string
	Shell  *string
	Office *string
	Plan   *string
}

// EditUser modifies an existing user; fields left unchanged keep
// their current value, cleared fields become absent.
type EditUser struct {
	Login  string
	Name   OptString
	Home   OptString
	Shell  OptString
	Office OptString
	Plan   OptString
}

// DeleteUser removes a user and every session it owns.
type DeleteUser struct {
	Login string
}

// Login opens a new session for an existing user. The session name
// is an opaque key later actions may address the session by.
type Login struct {
	Login       string
	SessionName *string
	Line        *string
	Host        *string
}

// SessionChange toggles a session between idle and active. A nil
// SessionName addresses the most recent session.
type SessionChange struct {
	Login       string
	SessionName *string
	Idle        OptBool
}

// Logout closes a session. A nil SessionName addresses the most
// recent session; a named logout closes the most recent session
// bearing that name.
type Logout struct {
	Login       string
	SessionName *string
}

func (CreateUser) isAction()    {}
func (EditUser) isAction()      {}
func (DeleteUser) isAction()    {}
func (Login) isAction()         {}
func (SessionChange) isAction() {}
func (Logout) isAction()        {}
