package goAuthen

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/goAuthen/internal/optdecode"
)

// OptionError reports a recognized option whose value has the wrong shape.
// It matches [ErrInvalidOption] with errors.Is, and [ErrInvalidDuration]
// when a duration failed to parse.
type OptionError struct {
	Option string
	Reason string
	Err    error
}

func (e *OptionError) Error() string {
	return "option " + e.Option + ": " + e.Reason
}

func (e *OptionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidOption, e.Err}
	}
	return []error{ErrInvalidOption}
}

const (
	optDriver            = "DRIVER"
	optStore             = "STORE"
	optLoginRunmode      = "LOGIN_RUNMODE"
	optLoginURL          = "LOGIN_URL"
	optLogoutRunmode     = "LOGOUT_RUNMODE"
	optLogoutURL         = "LOGOUT_URL"
	optPostLoginRunmode  = "POST_LOGIN_RUNMODE"
	optPostLoginURL      = "POST_LOGIN_URL"
	optPostLoginCallback = "POST_LOGIN_CALLBACK"
	optRenderLogin       = "RENDER_LOGIN"
	optCredentials       = "CREDENTIALS"
	optTimeout           = "LOGIN_SESSION_TIMEOUT"
)

var knownOptions = map[string]bool{
	optDriver:            true,
	optStore:             true,
	optLoginRunmode:      true,
	optLoginURL:          true,
	optLogoutRunmode:     true,
	optLogoutURL:         true,
	optPostLoginRunmode:  true,
	optPostLoginURL:      true,
	optPostLoginCallback: true,
	optRenderLogin:       true,
	optCredentials:       true,
	optTimeout:           true,
}

var optionAliases = map[string]string{
	"LOGIN_DESTINATION":      optLoginURL,
	"LOGOUT_DESTINATION":     optLogoutURL,
	"POST_LOGIN_DESTINATION": optPostLoginURL,
}

// Option names inside a flat DRIVER/STORE list look like FIELD_NAME.
var entryKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// ParseOptions builds a [Config] from either one map[string]any or
// alternating key/value arguments:
//
//	ParseOptions(map[string]any{"DRIVER": "dummy"})
//	ParseOptions("DRIVER", []any{"generic", map[string]any{"user1": "123"}},
//		"LOGIN_SESSION_TIMEOUT", "15m")
//
// Keys are case-insensitive. Unknown keys produce one error wrapping
// [ErrUnknownOption] that names all of them; a value of the wrong shape
// produces an [*OptionError].
//
// DRIVER and STORE accept a bare name, one entry list (name followed by
// either KEY, value pairs or positional arguments), a map with a "name" key,
// a [BackendSpec], or a list of any of those for several entries.
// LOGIN_SESSION_TIMEOUT accepts a duration, meaning IDLE_FOR, or a map with
// IDLE_FOR, EVERY and CUSTOM.
func ParseOptions(opts ...any) (Config, error) {
	m, err := normalizeOptions(opts...)
	if err != nil {
		return Config{}, err
	}
	return configFromOptions(m)
}

// OptionsFromYAML decodes a YAML mapping into an option map suitable for
// [ParseOptions] or [Registry.Configure].
func OptionsFromYAML(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", ErrInvalidOption, err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func normalizeOptions(opts ...any) (map[string]any, error) {
	raw := map[string]any{}
	order := []string{}

	switch {
	case len(opts) == 0:
	case len(opts) == 1:
		switch t := opts[0].(type) {
		case map[string]any:
			for k, v := range t {
				raw[k] = v
				order = append(order, k)
			}
		case map[string]string:
			for k, v := range t {
				raw[k] = v
				order = append(order, k)
			}
		case nil:
		default:
			return nil, &OptionError{Option: "options", Reason: fmt.Sprintf("expected a map or key/value pairs, got %T", opts[0])}
		}
	case len(opts)%2 != 0:
		return nil, &OptionError{Option: "options", Reason: "odd number of key/value arguments"}
	default:
		for i := 0; i < len(opts); i += 2 {
			k, ok := opts[i].(string)
			if !ok {
				return nil, &OptionError{Option: "options", Reason: fmt.Sprintf("argument %d: key must be a string, got %T", i, opts[i])}
			}
			if _, dup := raw[k]; dup {
				return nil, &OptionError{Option: strings.ToUpper(k), Reason: "given more than once"}
			}
			raw[k] = opts[i+1]
			order = append(order, k)
		}
	}

	out := make(map[string]any, len(raw))
	sort.Strings(order)
	for _, k := range order {
		name := canonicalOption(k)
		if _, dup := out[name]; dup {
			return nil, &OptionError{Option: name, Reason: "given more than once"}
		}
		out[name] = raw[k]
	}
	return out, nil
}

func canonicalOption(k string) string {
	name := strings.ToUpper(strings.TrimSpace(k))
	if alias, ok := optionAliases[name]; ok {
		return alias
	}
	return name
}

func configFromOptions(m map[string]any) (Config, error) {
	var unknown []string
	for k := range m {
		if !knownOptions[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownOption, strings.Join(unknown, ", "))
	}

	cfg := defaultConfig()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := m[k]
		var err error
		switch k {
		case optDriver:
			cfg.Drivers, err = parseBackends(k, v)
		case optStore:
			var specs []BackendSpec
			specs, err = parseBackends(k, v)
			if err == nil && len(specs) != 1 {
				err = &OptionError{Option: k, Reason: fmt.Sprintf("expected one store, got %d", len(specs))}
			}
			if err == nil {
				cfg.Store = &specs[0]
			}
		case optLoginRunmode:
			cfg.LoginRunmode, err = stringOption(k, v)
		case optLoginURL:
			cfg.LoginURL, err = stringOption(k, v)
		case optLogoutRunmode:
			cfg.LogoutRunmode, err = stringOption(k, v)
		case optLogoutURL:
			cfg.LogoutURL, err = stringOption(k, v)
		case optPostLoginRunmode:
			cfg.PostLoginRunmode, err = stringOption(k, v)
		case optPostLoginURL:
			cfg.PostLoginURL, err = stringOption(k, v)
		case optPostLoginCallback:
			fn, ok := v.(func(*Controller))
			if !ok {
				err = &OptionError{Option: k, Reason: fmt.Sprintf("expected func(*Controller), got %T", v)}
			}
			cfg.PostLoginCallback = fn
		case optRenderLogin:
			fn, ok := v.(func(*Controller) string)
			if !ok {
				err = &OptionError{Option: k, Reason: fmt.Sprintf("expected func(*Controller) string, got %T", v)}
			}
			cfg.RenderLogin = fn
		case optCredentials:
			cfg.Credentials, err = stringsOption(k, v)
		case optTimeout:
			cfg.Timeout, err = parseTimeout(v)
		}
		if err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func stringOption(option string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &OptionError{Option: option, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

func stringsOption(option string, v any) ([]string, error) {
	if s, ok := v.(string); ok {
		return []string{s}, nil
	}
	list, err := optdecode.Strings(v)
	if err != nil || len(list) == 0 {
		reason := "expected a non-empty string list"
		if err != nil {
			reason = err.Error()
		}
		return nil, &OptionError{Option: option, Reason: reason}
	}
	return list, nil
}

func parseBackends(option string, v any) ([]BackendSpec, error) {
	switch t := v.(type) {
	case []BackendSpec:
		if len(t) == 0 {
			return nil, &OptionError{Option: option, Reason: "empty entry list"}
		}
		out := make([]BackendSpec, len(t))
		for i, s := range t {
			out[i] = cloneSpec(s)
		}
		return out, nil
	case []map[string]any:
		if len(t) == 0 {
			return nil, &OptionError{Option: option, Reason: "empty entry list"}
		}
		out := make([]BackendSpec, 0, len(t))
		for _, m := range t {
			s, err := specFromMap(option, m)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		s, err := parseEntry(option, toAnySlice(t))
		if err != nil {
			return nil, err
		}
		return []BackendSpec{s}, nil
	case []any:
		if len(t) == 0 {
			return nil, &OptionError{Option: option, Reason: "empty entry list"}
		}
		if _, single := t[0].(string); single {
			s, err := parseEntry(option, t)
			if err != nil {
				return nil, err
			}
			return []BackendSpec{s}, nil
		}
		out := make([]BackendSpec, 0, len(t))
		for _, e := range t {
			s, err := parseEntry(option, e)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		s, err := parseEntry(option, v)
		if err != nil {
			return nil, err
		}
		return []BackendSpec{s}, nil
	}
}

func parseEntry(option string, v any) (BackendSpec, error) {
	switch t := v.(type) {
	case string:
		name := strings.TrimSpace(t)
		if name == "" {
			return BackendSpec{}, &OptionError{Option: option, Reason: "empty name"}
		}
		return BackendSpec{Name: name, Options: map[string]any{}}, nil
	case BackendSpec:
		return cloneSpec(t), nil
	case *BackendSpec:
		if t == nil {
			return BackendSpec{}, &OptionError{Option: option, Reason: "nil entry"}
		}
		return cloneSpec(*t), nil
	case map[string]any:
		return specFromMap(option, t)
	case []string:
		return parseEntry(option, toAnySlice(t))
	case []any:
		if len(t) == 0 {
			return BackendSpec{}, &OptionError{Option: option, Reason: "empty entry"}
		}
		name, ok := t[0].(string)
		if !ok || strings.TrimSpace(name) == "" {
			return BackendSpec{}, &OptionError{Option: option, Reason: fmt.Sprintf("entry must start with a name, got %T", t[0])}
		}
		spec := BackendSpec{Name: strings.TrimSpace(name), Options: map[string]any{}}
		rest := t[1:]
		if isKeyValueList(rest) {
			for i := 0; i < len(rest); i += 2 {
				spec.Options[rest[i].(string)] = rest[i+1]
			}
		} else if len(rest) > 0 {
			spec.Options[optdecode.ArgsKey] = append([]any(nil), rest...)
		}
		return spec, nil
	case nil:
		return BackendSpec{}, &OptionError{Option: option, Reason: "missing value"}
	default:
		return BackendSpec{}, &OptionError{Option: option, Reason: fmt.Sprintf("unsupported entry of type %T", v)}
	}
}

func specFromMap(option string, m map[string]any) (BackendSpec, error) {
	spec := BackendSpec{Options: map[string]any{}}
	for k, v := range m {
		if strings.EqualFold(k, "name") {
			name, ok := v.(string)
			if !ok || strings.TrimSpace(name) == "" {
				return BackendSpec{}, &OptionError{Option: option, Reason: "entry name must be a non-empty string"}
			}
			spec.Name = strings.TrimSpace(name)
			continue
		}
		spec.Options[k] = v
	}
	if spec.Name == "" {
		return BackendSpec{}, &OptionError{Option: option, Reason: "entry map needs a name key"}
	}
	return spec, nil
}

func isKeyValueList(rest []any) bool {
	if len(rest) == 0 || len(rest)%2 != 0 {
		return false
	}
	for i := 0; i < len(rest); i += 2 {
		k, ok := rest[i].(string)
		if !ok || !entryKeyRe.MatchString(k) {
			return false
		}
	}
	return true
}

func toAnySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func parseTimeout(v any) (*TimeoutPolicy, error) {
	var m map[string]any
	switch t := v.(type) {
	case map[string]any:
		m = t
	case TimeoutPolicy:
		return &t, nil
	case *TimeoutPolicy:
		if t == nil {
			return nil, &OptionError{Option: optTimeout, Reason: "nil policy"}
		}
		p := *t
		return &p, nil
	default:
		d, err := durationOption(optTimeout, v)
		if err != nil {
			return nil, err
		}
		return &TimeoutPolicy{IdleFor: d}, nil
	}

	p := &TimeoutPolicy{}
	var unknown []string
	for k, val := range m {
		var err error
		switch strings.ToUpper(strings.TrimSpace(k)) {
		case "IDLE_FOR":
			p.IdleFor, err = durationOption(optTimeout+".IDLE_FOR", val)
		case "EVERY":
			p.Every, err = durationOption(optTimeout+".EVERY", val)
		case "CUSTOM":
			fn, ok := val.(func(*Controller) bool)
			if !ok {
				err = &OptionError{Option: optTimeout + ".CUSTOM", Reason: fmt.Sprintf("expected func(*Controller) bool, got %T", val)}
			}
			p.Custom = fn
		default:
			unknown = append(unknown, k)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &OptionError{Option: optTimeout, Reason: "unknown keys " + strings.Join(unknown, ", ")}
	}
	return p, nil
}

func durationOption(option string, v any) (time.Duration, error) {
	var secs float64
	switch t := v.(type) {
	case time.Duration:
		if t < 0 {
			return 0, &OptionError{Option: option, Reason: "negative duration", Err: ErrInvalidDuration}
		}
		return t, nil
	case string:
		d, err := ParseDuration(t)
		if err != nil {
			return 0, &OptionError{Option: option, Reason: err.Error(), Err: ErrInvalidDuration}
		}
		return d, nil
	case int:
		secs = float64(t)
	case int64:
		secs = float64(t)
	case uint:
		secs = float64(t)
	case uint64:
		secs = float64(t)
	case float64:
		if t != math.Trunc(t) {
			return 0, &OptionError{Option: option, Reason: "seconds without a unit must be whole", Err: ErrInvalidDuration}
		}
		secs = t
	default:
		return 0, &OptionError{Option: option, Reason: fmt.Sprintf("expected duration, got %T", v), Err: ErrInvalidDuration}
	}
	if secs < 0 || secs*float64(time.Second) > math.MaxInt64 {
		return 0, &OptionError{Option: option, Reason: "duration out of range", Err: ErrInvalidDuration}
	}
	return time.Duration(secs) * time.Second, nil
}

// IsOptionError reports whether err came from option validation.
func IsOptionError(err error) bool {
	var oe *OptionError
	return errors.As(err, &oe) || errors.Is(err, ErrUnknownOption)
}
