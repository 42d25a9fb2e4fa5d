package fiction

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// LoadScenario reads a scenario from a TOML file. Every top-level key
// is a time offset in delta syntax and holds an array of records;
// plan files referenced by records are resolved relative to the
// scenario file's directory.
//
// When the file sets no ending, the scenario freezes ten seconds
// after its last action.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fiction: reading scenario: %w", err)
	}

	var doc map[string]any
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("fiction: parsing scenario: %w", err)
	}

	type entry struct {
		key     string
		offset  time.Duration
		records []map[string]any
	}
	entries := make([]entry, 0, len(doc))
	for key, value := range doc {
		offset, err := ParseDelta(key)
		if err != nil {
			return nil, fmt.Errorf("fiction: invalid scenario time %q", key)
		}
		arr, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("fiction: at %s: expected an array of actions; "+
				"did you write [%s] instead of [[%s]]?", key, key, key)
		}
		e := entry{key: key, offset: offset}
		for _, item := range arr {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("fiction: at %s: expected an action table", key)
			}
			e.records = append(e.records, rec)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].offset != entries[j].offset {
			return entries[i].offset < entries[j].offset
		}
		return entries[i].key < entries[j].key
	})

	sc := &Scenario{}
	dir := filepath.Dir(path)

	// The earliest ending record wins; a later one at the same
	// offset is ignored.
	var endingAt *time.Duration
	lastAction := time.Duration(0)

	for _, e := range entries {
		for n, rec := range e.records {
			typ, err := recordString(rec, "type")
			if err != nil || typ == nil {
				return nil, loadErrorf(n, e.key, "missing action type")
			}

			switch *typ {
			case "freeze", "interrupt", "stop", "repeat":
				if endingAt != nil && *endingAt <= e.offset {
					continue
				}
				ending, _ := ParseEndingType(*typ)
				sc.SetEnding(ending)
				sc.SetDuration(e.offset)
				d := e.offset
				endingAt = &d
				continue
			}

			action, err := buildAction(*typ, rec, dir)
			if err != nil {
				return nil, loadErrorf(n, e.key, "%s", err)
			}
			sc.Add(e.offset, action)
			if e.offset > lastAction {
				lastAction = e.offset
			}
		}
	}

	if endingAt == nil {
		sc.SetEnding(EndingFreeze)
		sc.SetDuration(lastAction + 10*time.Second)
	}
	return sc, nil
}

func loadErrorf(n int, key string, format string, args ...any) error {
	return fmt.Errorf("fiction: at action #%d at %s: %s", n+1, key, fmt.Sprintf(format, args...))
}

func buildAction(typ string, rec map[string]any, dir string) (Action, error) {
	login, err := recordString(rec, "login")
	if err != nil {
		return nil, err
	}
	if login == nil || *login == "" {
		return nil, fmt.Errorf("missing user login")
	}

	switch typ {
	case "create":
		a := CreateUser{Login: *login}
		if a.Name, err = recordString(rec, "name"); err != nil {
			return nil, err
		}
		if a.Home, err = recordString(rec, "home"); err != nil {
			return nil, err
		}
		if a.Shell, err = recordString(rec, "shell"); err != nil {
			return nil, err
		}
		if a.Office, err = recordString(rec, "office"); err != nil {
			return nil, err
		}
		if a.Plan, err = recordPlan(rec, dir); err != nil {
			return nil, err
		}
		return a, nil

	case "update":
		a := EditUser{Login: *login}
		for _, f := range []struct {
			key string
			opt *OptString
		}{
			{"name", &a.Name},
			{"home", &a.Home},
			{"shell", &a.Shell},
			{"office", &a.Office},
		} {
			raw, ok := rec[f.key]
			if !ok {
				continue
			}
			// A string sets the field, false clears it explicitly.
			switch v := raw.(type) {
			case bool:
				if v {
					return nil, fmt.Errorf("field %q cannot be true", f.key)
				}
				*f.opt = ClearString()
			case string:
				*f.opt = SetString(v)
			default:
				return nil, fmt.Errorf("field %q should be a string or false", f.key)
			}
		}
		if err := recordPlanUpdate(rec, dir, &a.Plan); err != nil {
			return nil, err
		}
		return a, nil

	case "delete":
		return DeleteUser{Login: *login}, nil

	case "login":
		a := Login{Login: *login}
		if a.SessionName, err = recordString(rec, "session"); err != nil {
			return nil, err
		}
		if a.Line, err = recordString(rec, "line"); err != nil {
			return nil, err
		}
		if a.Host, err = recordString(rec, "host"); err != nil {
			return nil, err
		}
		return a, nil

	case "logout":
		a := Logout{Login: *login}
		if a.SessionName, err = recordString(rec, "session"); err != nil {
			return nil, err
		}
		return a, nil

	case "idle", "active":
		a := SessionChange{Login: *login}
		if a.SessionName, err = recordString(rec, "session"); err != nil {
			return nil, err
		}
		a.Idle = SetBool(typ == "idle")
		return a, nil

	default:
		return nil, fmt.Errorf("unknown action type %q", typ)
	}
}

// recordString fetches an optional string field, nil when absent.
func recordString(rec map[string]any, key string) (*string, error) {
	raw, ok := rec[key]
	if !ok {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("field %q should be a string", key)
	}
	return &s, nil
}

// recordPlan resolves the "plan" field of a create record: a string
// names a plan file relative to dir, false stands for no plan.
func recordPlan(rec map[string]any, dir string) (*string, error) {
	raw, ok := rec["plan"]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case bool:
		if v {
			return nil, fmt.Errorf("field %q cannot be true", "plan")
		}
		return nil, nil
	case string:
		content, err := os.ReadFile(filepath.Join(dir, v))
		if err != nil {
			return nil, fmt.Errorf("reading plan file: %w", err)
		}
		s := string(content)
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q should be a string or false", "plan")
	}
}

// recordPlanUpdate resolves the "plan" field of an update record:
// absent leaves the plan alone, false removes it, a string loads a
// new plan file.
func recordPlanUpdate(rec map[string]any, dir string, opt *OptString) error {
	raw, ok := rec["plan"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case bool:
		if v {
			return fmt.Errorf("field %q cannot be true", "plan")
		}
		*opt = ClearString()
		return nil
	case string:
		content, err := os.ReadFile(filepath.Join(dir, v))
		if err != nil {
			return fmt.Errorf("reading plan file: %w", err)
		}
		*opt = SetString(string(content))
		return nil
	default:
		return fmt.Errorf("field %q should be a string or false", "plan")
	}
}
