package goAuthen

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/MrEthical07/goAuthen/driver"
	"github.com/MrEthical07/goAuthen/filter"
	"github.com/MrEthical07/goAuthen/internal/audit"
	"github.com/MrEthical07/goAuthen/store"
)

// Builder assembles an [Engine]. It is meant to be configured during
// initialization and used once.
type Builder struct {
	config   EngineConfig
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
	db       *gorm.DB

	auditSink AuditSink

	drivers map[string]driver.Factory
	stores  map[string]store.Factory
	filters map[string]filter.Func
	apps    []appOptions

	built bool
}

type appOptions struct {
	app  string
	opts []any
}

// New returns a builder with [DefaultEngineConfig].
func New() *Builder {
	return &Builder{
		config:  defaultEngineConfig(),
		drivers: map[string]driver.Factory{},
		stores:  map[string]store.Factory{},
		filters: map[string]filter.Func{},
	}
}

func (b *Builder) WithConfig(cfg EngineConfig) *Builder {
	b.config = cfg
	return b
}

// WithRegistry shares an existing configuration registry.
func (b *Builder) WithRegistry(r *Registry) *Builder {
	b.registry = r
	return b
}

// WithLogger sets the logger handed to the engine, drivers and stores.
// The default is slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock replaces time.Now. Controllers sample it once per Initialize.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithDB sets the database used by sql drivers configured without DSN.
func (b *Builder) WithDB(db *gorm.DB) *Builder {
	b.db = db
	return b
}

// WithAuditSink sets where audit events go. EngineConfig.Audit.Enabled decides
// whether any are emitted.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithDriver registers a driver factory under name, replacing a built-in
// driver of the same name.
func (b *Builder) WithDriver(name string, f driver.Factory) *Builder {
	b.drivers[name] = f
	return b
}

// WithStore registers a store factory under name.
func (b *Builder) WithStore(name string, f store.Factory) *Builder {
	b.stores[name] = f
	return b
}

// WithFilter registers a credential filter under name.
func (b *Builder) WithFilter(name string, fn filter.Func) *Builder {
	b.filters[name] = fn
	return b
}

// WithApp configures an application at build time, as
// [Registry.Configure] would.
func (b *Builder) WithApp(app string, opts ...any) *Builder {
	b.apps = append(b.apps, appOptions{app: app, opts: opts})
	return b
}

// Build validates the settings, starts the audit dispatcher and the
// password-file watcher, and returns the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	if cfg.CookieSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		cfg.CookieSecret = hex.EncodeToString(buf)
		logger.Warn("no cookie secret configured; using a random per-process secret")
	}

	// -------- REGISTRIES --------
	registry := b.registry
	if registry == nil {
		registry = NewRegistry()
	}
	for _, a := range b.apps {
		if err := registry.Configure(a.app, a.opts...); err != nil {
			return nil, err
		}
	}

	filters := filter.NewRegistry()
	for name, fn := range b.filters {
		filters.Register(name, fn)
	}
	drivers := driver.NewRegistry()
	for name, f := range b.drivers {
		drivers.Register(name, f)
	}
	stores := store.NewRegistry()
	for name, f := range b.stores {
		stores.Register(name, f)
	}

	engine := &Engine{
		config:   cfg,
		registry: registry,
		drivers:  drivers,
		stores:   stores,
		filters:  filters,
		logger:   logger,
		now:      now,
		db:       driver.NewDBPool(b.db),
		metrics:  NewMetrics(cfg.Metrics),
	}

	// -------- BACKGROUND RESOURCES --------
	if cfg.WatchFiles {
		files, err := driver.NewFileCache(logger)
		if err != nil {
			logger.Warn("password file watcher unavailable; files are read on every login", "error", err)
		} else {
			engine.files = files
		}
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
