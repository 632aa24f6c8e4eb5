package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthen/filter"
)

var (
	// ErrNotFound is returned when no factory is registered for a name.
	ErrNotFound = errors.New("driver not found")
	// ErrBackend marks a backend that could not answer.
	ErrBackend = errors.New("driver backend failure")
	// ErrInvalidOptions marks option maps a factory rejected.
	ErrInvalidOptions = errors.New("invalid driver options")
)

// Driver verifies one set of credentials.
type Driver interface {
	VerifyCredentials(ctx context.Context, creds ...string) (string, error)
}

// Func adapts an ordinary function to Driver.
type Func func(ctx context.Context, creds ...string) (string, error)

// VerifyCredentials calls f.
func (f Func) VerifyCredentials(ctx context.Context, creds ...string) (string, error) {
	return f(ctx, creds...)
}

// Options is the option map of one configured driver entry. Keys are matched
// case-insensitively; positional arguments live under "args".
type Options map[string]any

// Deps carries engine-owned collaborators into drivers.
type Deps struct {
	Logger  *slog.Logger
	Filters *filter.Registry
	DB      *DBPool
	Files   *FileCache
	Now     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Filters == nil {
		d.Filters = filter.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Factory builds a driver from its options.
type Factory func(opts Options, deps Deps) (Driver, error)

// Registry maps driver names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in drivers.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.factories["generic"] = NewGeneric
	r.factories["htpasswd"] = NewHtpasswd
	r.factories["sql"] = NewSQL
	r.factories["dbi"] = NewSQL
	r.factories["dummy"] = NewDummy
	r.factories["totp"] = NewTOTP
	r.factories["kerberos"] = NewKerberos
	return r
}

// Register adds or replaces a factory. Names are case-insensitive.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

// Names lists registered drivers in sorted order.
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

// New builds the driver registered under name.
func (r *Registry) New(name string, opts Options, deps Deps) (Driver, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if opts == nil {
		opts = Options{}
	}
	d, err := f(opts, deps.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("driver %s: %w", name, err)
	}
	return d, nil
}

func invalidOptions(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
}
