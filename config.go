package goAuthen

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultCredentials are the request parameters read when CREDENTIALS is not
// configured.
var DefaultCredentials = []string{"authen_username", "authen_password"}

// DefaultApp is the application id used when an empty id is given.
const DefaultApp = "default"

// Config is the authentication configuration of one application.
//
// Config instances are built with [ParseOptions] or by hand and handed to
// [Registry.Configure] or [Registry.SetConfig]; after that they are treated
// as immutable.
type Config struct {
	// Drivers are tried in order; the first that accepts the credentials wins.
	Drivers []BackendSpec
	// Store is nil when unconfigured: the session store is used if the host
	// provides sessions, the cookie store otherwise.
	Store *BackendSpec

	LoginRunmode     string
	LoginURL         string
	LogoutRunmode    string
	LogoutURL        string
	PostLoginRunmode string
	PostLoginURL     string

	// PostLoginCallback runs after every login attempt, successful or not.
	PostLoginCallback func(c *Controller)
	// RenderLogin replaces the built-in login form.
	RenderLogin func(c *Controller) string

	// Credentials names the request parameters holding the credentials. The
	// first one is the username; a login is attempted when it is non-empty.
	Credentials []string

	Timeout *TimeoutPolicy

	Protected []Rule
}

// BackendSpec is one DRIVER or STORE entry. Positional arguments of the
// entry are kept under Options["args"].
type BackendSpec struct {
	Name    string
	Options map[string]any
}

// TimeoutPolicy forces re-authentication. Conditions are checked in field
// order and the first that holds ends the login.
type TimeoutPolicy struct {
	// IdleFor ends logins not used for this long.
	IdleFor time.Duration
	// Every ends logins this long after they started.
	Every time.Duration
	// Custom ends the login when it returns true.
	Custom func(c *Controller) bool
}

/*
====================================
ENGINE CONFIG
====================================
*/

// EngineConfig holds process-wide settings of an [Engine].
type EngineConfig struct {
	Audit   AuditConfig
	Metrics MetricsConfig
	Cookies CookieConfig
	// CookieSecret signs cookie and jwt store state when the store entry has
	// no SECRET. When empty, Build generates a random per-process secret, so
	// state does not survive restarts or span several processes.
	CookieSecret string
	// WatchFiles enables the shared password-file cache used by htpasswd
	// drivers configured with WATCH.
	WatchFiles bool
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// CookieConfig sets attributes for cookies written by stores whose options
// leave them unset.
type CookieConfig struct {
	RequireSecure bool
	SameSite      http.SameSite
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Credentials: append([]string(nil), DefaultCredentials...),
	}
}

func defaultEngineConfig() EngineConfig {
	return EngineConfig{
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Cookies: CookieConfig{
			RequireSecure: false,
			SameSite:      http.SameSiteLaxMode,
		},
		WatchFiles: true,
	}
}

// DefaultEngineConfig returns the engine settings used by [New].
func DefaultEngineConfig() EngineConfig {
	return defaultEngineConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Drivers = make([]BackendSpec, len(cfg.Drivers))
	for i, d := range cfg.Drivers {
		out.Drivers[i] = cloneSpec(d)
	}
	if cfg.Store != nil {
		s := cloneSpec(*cfg.Store)
		out.Store = &s
	}
	out.Credentials = append([]string(nil), cfg.Credentials...)
	if cfg.Timeout != nil {
		t := *cfg.Timeout
		out.Timeout = &t
	}
	out.Protected = append([]Rule(nil), cfg.Protected...)
	return out
}

func cloneSpec(s BackendSpec) BackendSpec {
	out := BackendSpec{Name: s.Name, Options: make(map[string]any, len(s.Options))}
	for k, v := range s.Options {
		out.Options[k] = v
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values no request could work with.
func (c *Config) Validate() error {
	for i, d := range c.Drivers {
		if strings.TrimSpace(d.Name) == "" {
			return &OptionError{Option: "DRIVER", Reason: fmt.Sprintf("entry %d has no name", i)}
		}
	}
	if c.Store != nil && strings.TrimSpace(c.Store.Name) == "" {
		return &OptionError{Option: "STORE", Reason: "entry has no name"}
	}

	if len(c.Credentials) == 0 {
		return &OptionError{Option: "CREDENTIALS", Reason: "at least one credential field is required"}
	}
	seen := make(map[string]bool, len(c.Credentials))
	for _, name := range c.Credentials {
		if strings.TrimSpace(name) == "" {
			return &OptionError{Option: "CREDENTIALS", Reason: "empty field name"}
		}
		if seen[name] {
			return &OptionError{Option: "CREDENTIALS", Reason: fmt.Sprintf("field %q listed twice", name)}
		}
		seen[name] = true
	}

	for option, raw := range map[string]string{
		"LOGIN_URL":      c.LoginURL,
		"LOGOUT_URL":     c.LogoutURL,
		"POST_LOGIN_URL": c.PostLoginURL,
	} {
		if raw == "" {
			continue
		}
		if _, err := url.Parse(raw); err != nil {
			return &OptionError{Option: option, Reason: err.Error()}
		}
	}

	if t := c.Timeout; t != nil {
		if t.IdleFor < 0 || t.Every < 0 {
			return &OptionError{Option: "LOGIN_SESSION_TIMEOUT", Reason: "durations must be >= 0"}
		}
		if t.IdleFor == 0 && t.Every == 0 && t.Custom == nil {
			return &OptionError{Option: "LOGIN_SESSION_TIMEOUT", Reason: "needs IDLE_FOR, EVERY or CUSTOM"}
		}
	}
	return nil
}

// Validate checks the engine settings.
func (c *EngineConfig) Validate() error {
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	switch c.Cookies.SameSite {
	case 0, http.SameSiteDefaultMode, http.SameSiteLaxMode, http.SameSiteStrictMode:
	case http.SameSiteNoneMode:
		if !c.Cookies.RequireSecure {
			return errors.New("Cookies SameSite=None requires RequireSecure")
		}
	default:
		return errors.New("Cookies SameSite is not a known mode")
	}
	return nil
}
