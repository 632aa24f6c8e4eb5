package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no factory is registered for a name.
	ErrNotFound = errors.New("store not found")
	// ErrMissingSecret is returned by signing stores configured without SECRET.
	ErrMissingSecret = errors.New("store secret is required")
	// ErrInvalidOptions marks option maps a factory rejected.
	ErrInvalidOptions = errors.New("invalid store options")
	// ErrNoSession is returned by the session store when the host has no
	// server-side session.
	ErrNoSession = errors.New("host does not provide a session")
	// ErrInvalidField is returned when saving a field the store cannot carry.
	ErrInvalidField = errors.New("invalid store field")
)

// Field names of the authentication state.
const (
	FieldUsername      = "username"
	FieldLoginAttempts = "login_attempts"
	FieldLastLogin     = "last_login"
	FieldLastAccess    = "last_access"
)

// DefaultFields are the fields every store carries.
var DefaultFields = []string{FieldUsername, FieldLoginAttempts, FieldLastLogin, FieldLastAccess}

// Store holds the authentication state of one request.
type Store interface {
	// Initialize loads state. It is called once before any other method.
	Initialize(ctx context.Context) error
	// Fetch returns one value per name, "" for absent fields.
	Fetch(ctx context.Context, names ...string) ([]string, error)
	Save(ctx context.Context, fields map[string]string) error
	Delete(ctx context.Context, names ...string) error
	// Clear removes every field.
	Clear(ctx context.Context) error
}

// Host is the part of the request a store may touch.
type Host interface {
	Cookie(name string) (string, bool)
	// SetCookie adds c to the response, replacing an earlier cookie of the
	// same name set during this request.
	SetCookie(c *http.Cookie)
}

// Session is a server-side key/value session owned by the host.
type Session interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Regenerator is implemented by sessions that can move to a fresh id. The
// session store regenerates on every login.
type Regenerator interface {
	Regenerate(ctx context.Context) error
}

// SessionProvider is implemented by hosts that have server-side sessions.
type SessionProvider interface {
	Session(ctx context.Context) (Session, error)
}

// Options is the option map of the configured store entry.
type Options map[string]any

// Deps carries engine-owned collaborators into stores.
type Deps struct {
	Logger *slog.Logger
	Now    func() time.Time
	// Tampered is called when a client-held payload fails verification.
	Tampered func(store string)
	// Secret signs client-held state when SECRET is not configured.
	Secret string
	// Cookie attributes applied when the options leave them unset.
	Secure   bool
	SameSite http.SameSite
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Tampered == nil {
		d.Tampered = func(string) {}
	}
	if d.SameSite == 0 {
		d.SameSite = http.SameSiteLaxMode
	}
	return d
}

// Factory builds a store for one request.
type Factory func(host Host, opts Options, deps Deps) (Store, error)

// Registry maps store names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in stores.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{
		"cookie":  NewCookie,
		"session": NewSession,
		"jwt":     NewJWT,
	}}
}

// Register adds or replaces a factory. Names are case-insensitive.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

// Names lists registered stores in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the store registered under name.
func (r *Registry) New(name string, host Host, opts Options, deps Deps) (Store, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if opts == nil {
		opts = Options{}
	}
	s, err := f(host, opts, deps.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", name, err)
	}
	return s, nil
}

// DefaultName picks the store used when none is configured.
func DefaultName(host Host) string {
	if _, ok := host.(SessionProvider); ok {
		return "session"
	}
	return "cookie"
}

// ReplaceCookie sets c on h, dropping any Set-Cookie header for the same
// cookie name already present. Hosts use it to implement SetCookie.
func ReplaceCookie(h http.Header, c *http.Cookie) {
	prefix := c.Name + "="
	kept := h.Values("Set-Cookie")[:0:0]
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	if v := c.String(); v != "" {
		h.Add("Set-Cookie", v)
	}
}

func invalidOptions(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
}
