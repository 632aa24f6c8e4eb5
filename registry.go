package goAuthen

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry stores the configuration of each application, keyed by
// application id. It is safe for concurrent use. Configuration is meant to
// be set up before requests are served: the first controller of an
// application to initialize freezes that application's configuration.
type Registry struct {
	mu   sync.RWMutex
	apps map[string]*appConfig
}

type appConfig struct {
	raw       map[string]any
	cfg       Config
	protected []Rule
	frozen    atomic.Bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{apps: make(map[string]*appConfig)}
}

func appID(app string) string {
	app = strings.TrimSpace(app)
	if app == "" {
		return DefaultApp
	}
	return app
}

// Configure merges options into the application's option map and re-parses
// it; see [ParseOptions] for the accepted forms. Later calls override keys of
// earlier ones. It fails with [ErrConfigFrozen] once a controller of the
// application has initialized, and leaves the stored configuration
// untouched on any error.
func (r *Registry) Configure(app string, opts ...any) error {
	app = appID(app)
	add, err := normalizeOptions(opts...)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.apps[app]
	if a != nil && a.frozen.Load() {
		return fmt.Errorf("%w: %s", ErrConfigFrozen, app)
	}

	merged := map[string]any{}
	if a != nil {
		for k, v := range a.raw {
			merged[k] = v
		}
	}
	for k, v := range add {
		merged[k] = v
	}

	cfg, err := configFromOptions(merged)
	if err != nil {
		return err
	}

	if a == nil {
		a = &appConfig{}
		r.apps[app] = a
	}
	a.raw = merged
	a.cfg = cfg
	return nil
}

// SetConfig replaces the application's configuration with cfg.
func (r *Registry) SetConfig(app string, cfg Config) error {
	app = appID(app)
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.apps[app]
	if a != nil && a.frozen.Load() {
		return fmt.Errorf("%w: %s", ErrConfigFrozen, app)
	}
	if a == nil {
		a = &appConfig{}
		r.apps[app] = a
	}
	a.raw = nil
	a.cfg = cloneConfig(cfg)
	return nil
}

// Protect appends protection rules for the application. Rules are never
// replaced, and an application with no configuration is registered with the
// defaults.
func (r *Registry) Protect(app string, rules ...Rule) {
	app = appID(app)

	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.apps[app]
	if a == nil {
		a = &appConfig{cfg: defaultConfig()}
		r.apps[app] = a
	}
	a.protected = append(a.protected, rules...)
}

// Config returns a copy of the application's configuration. Its Protected
// field holds every rule, including those added with [Registry.Protect].
func (r *Registry) Config(app string) (Config, error) {
	app = appID(app)

	r.mu.RLock()
	defer r.mu.RUnlock()

	a := r.apps[app]
	if a == nil {
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownApp, app)
	}
	cfg := cloneConfig(a.cfg)
	cfg.Protected = append(cfg.Protected, a.protected...)
	return cfg, nil
}

// Frozen reports whether the application's configuration is frozen.
func (r *Registry) Frozen(app string) bool {
	r.mu.RLock()
	a := r.apps[appID(app)]
	r.mu.RUnlock()
	return a != nil && a.frozen.Load()
}

// Apps lists configured application ids in sorted order.
func (r *Registry) Apps() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.apps))
	for k := range r.apps {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) freeze(app string) {
	r.mu.RLock()
	a := r.apps[appID(app)]
	r.mu.RUnlock()
	if a != nil {
		a.frozen.Store(true)
	}
}
