package driver

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/MrEthical07/goAuthen/filter"
	"github.com/MrEthical07/goAuthen/internal/optdecode"
)

// Generic checks credentials against values held in configuration.
//
// Options:
//
//	USERS   username -> password, or username -> {password, filter}
//	TUPLES  list of complete credential lists, e.g. [["user1", "123"]]
//	FUNC    func(ctx, creds...) (string, error)
//	FILTER  filter list applied to every USERS password without its own
//
// An option map whose keys are none of the above is read as a USERS map, so
// {"user1": "123"} configures a single user. Positional arguments may be a
// users map, a tuple list or a callback.
type Generic struct {
	users   map[string]genericUser
	tuples  [][]string
	fn      Func
	filters *filter.Registry
}

type genericUser struct {
	Password string `mapstructure:"password"`
	Filter   string `mapstructure:"filter"`
}

type genericOptions struct {
	Users  map[string]any `mapstructure:"users"`
	Tuples [][]string     `mapstructure:"tuples"`
	Filter string         `mapstructure:"filter"`
}

var genericKeys = map[string]bool{"users": true, "tuples": true, "func": true, "filter": true, optdecode.ArgsKey: true}

// NewGeneric builds a Generic driver.
func NewGeneric(opts Options, deps Deps) (Driver, error) {
	raw := optdecode.Clone(opts)
	g := &Generic{users: make(map[string]genericUser), filters: deps.Filters}

	if v, ok := optdecode.Take(raw, "func"); ok {
		fn, err := asFunc(v)
		if err != nil {
			return nil, invalidOptions(err)
		}
		g.fn = fn
	}
	args, _ := optdecode.Take(raw, optdecode.ArgsKey)

	if !hasAnyKey(raw, genericKeys) && len(raw) > 0 {
		raw = map[string]any{"users": raw}
	}

	var o genericOptions
	if err := optdecode.Decode(raw, &o); err != nil {
		return nil, invalidOptions(err)
	}
	if err := g.addUsers(o.Users, o.Filter); err != nil {
		return nil, invalidOptions(err)
	}
	g.tuples = append(g.tuples, o.Tuples...)

	if err := g.addArgs(args, o.Filter); err != nil {
		return nil, invalidOptions(err)
	}
	if o.Filter != "" {
		if err := g.filters.Validate(o.Filter); err != nil {
			return nil, invalidOptions(err)
		}
	}
	if len(g.users) == 0 && len(g.tuples) == 0 && g.fn == nil {
		return nil, invalidOptions(fmt.Errorf("generic driver needs USERS, TUPLES or FUNC"))
	}
	return g, nil
}

func (g *Generic) addArgs(args any, defaultFilter string) error {
	if args == nil {
		return nil
	}
	list, ok := args.([]any)
	if !ok {
		list = []any{args}
	}
	for i, a := range list {
		switch v := a.(type) {
		case map[string]any:
			if err := g.addUsers(v, defaultFilter); err != nil {
				return err
			}
		case map[string]string:
			for name, pw := range v {
				g.users[name] = genericUser{Password: pw, Filter: defaultFilter}
			}
		case [][]string:
			g.tuples = append(g.tuples, v...)
		case []any:
			for _, t := range v {
				tuple, err := optdecode.Strings(t)
				if err != nil {
					return fmt.Errorf("argument %d: %w", i, err)
				}
				g.tuples = append(g.tuples, tuple)
			}
		default:
			fn, err := asFunc(v)
			if err != nil {
				return fmt.Errorf("argument %d: %w", i, err)
			}
			g.fn = fn
		}
	}
	return nil
}

func (g *Generic) addUsers(users map[string]any, defaultFilter string) error {
	for name, v := range users {
		u := genericUser{Filter: defaultFilter}
		switch t := v.(type) {
		case string:
			u.Password = t
		case map[string]any:
			if err := optdecode.Decode(t, &u); err != nil {
				return fmt.Errorf("user %q: %w", name, err)
			}
			if u.Filter == "" {
				u.Filter = defaultFilter
			}
		default:
			return fmt.Errorf("user %q: expected password string or map, got %T", name, v)
		}
		if u.Filter != "" {
			if err := g.filters.Validate(u.Filter); err != nil {
				return fmt.Errorf("user %q: %w", name, err)
			}
		}
		g.users[name] = u
	}
	return nil
}

// VerifyCredentials tries the users map, then the tuples, then the callback.
func (g *Generic) VerifyCredentials(ctx context.Context, creds ...string) (string, error) {
	if len(creds) == 0 || creds[0] == "" {
		return "", nil
	}
	if u, ok := g.users[creds[0]]; ok && len(creds) > 1 {
		match, err := checkSecret(g.filters, u.Filter, creds[1], u.Password)
		if err != nil {
			return "", err
		}
		if match {
			return creds[0], nil
		}
	}
	for _, tuple := range g.tuples {
		if tupleMatches(tuple, creds) {
			return creds[0], nil
		}
	}
	if g.fn != nil {
		return g.fn(ctx, creds...)
	}
	return "", nil
}

func tupleMatches(tuple, creds []string) bool {
	n := max(len(tuple), len(creds))
	ok := 1
	for i := 0; i < n; i++ {
		ok &= subtle.ConstantTimeCompare([]byte(at(tuple, i)), []byte(at(creds, i)))
	}
	return ok == 1
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

// checkSecret compares a supplied secret with a stored one, through spec when
// set and byte-exact otherwise.
func checkSecret(filters *filter.Registry, spec, supplied, stored string) (bool, error) {
	if spec == "" {
		return subtle.ConstantTimeCompare([]byte(supplied), []byte(stored)) == 1, nil
	}
	ok, err := filters.Check(spec, supplied, stored)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return ok, nil
}

func asFunc(v any) (Func, error) {
	switch fn := v.(type) {
	case Func:
		return fn, nil
	case func(context.Context, ...string) (string, error):
		return fn, nil
	case func(...string) string:
		return func(_ context.Context, creds ...string) (string, error) { return fn(creds...), nil }, nil
	default:
		return nil, fmt.Errorf("unsupported callback type %T", v)
	}
}

func hasAnyKey(m map[string]any, keys map[string]bool) bool {
	for k := range m {
		if keys[strings.ToLower(k)] {
			return true
		}
	}
	return false
}
