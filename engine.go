package goAuthen

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthen/driver"
	"github.com/MrEthical07/goAuthen/filter"
	"github.com/MrEthical07/goAuthen/internal/audit"
	"github.com/MrEthical07/goAuthen/store"
)

// Engine is the process-wide half of the authentication layer. It is safe
// for concurrent use; per-request work happens in a [Controller].
type Engine struct {
	config   EngineConfig
	registry *Registry
	drivers  *driver.Registry
	stores   *store.Registry
	filters  *filter.Registry
	logger   *slog.Logger
	now      func() time.Time
	db       *driver.DBPool
	files    *driver.FileCache
	audit    *audit.Dispatcher
	metrics  *Metrics

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Close stops the audit dispatcher after draining it, stops the file
// watcher and closes databases opened from DSN options. It is idempotent.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.audit.Close()
		var errs []error
		if e.files != nil {
			errs = append(errs, e.files.Close())
		}
		errs = append(errs, e.db.Close())
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}

// Registry returns the configuration registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Configure is shorthand for Registry().Configure.
func (e *Engine) Configure(app string, opts ...any) error {
	return e.registry.Configure(app, opts...)
}

// ProtectRunmodes appends protection rules for app.
func (e *Engine) ProtectRunmodes(app string, rules ...Rule) {
	e.registry.Protect(app, rules...)
}

// Filters returns the credential filters drivers use.
func (e *Engine) Filters() *filter.Registry { return e.filters }

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	if e == nil || e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

// AuditDropped returns the number of audit events lost to backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return e.metrics.Snapshot()
}

// NewController returns the controller for one request to app. It does no
// I/O; configuration and backend problems surface from
// [Controller.Initialize]. ctx is passed to every driver and store call.
func (e *Engine) NewController(ctx context.Context, app string, host Host) *Controller {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Controller{
		engine: e,
		app:    appID(app),
		ctx:    ctx,
		host:   host,
	}
	switch {
	case e == nil || e.closed.Load():
		c.cfgErr = ErrEngineNotReady
	case host == nil:
		c.cfgErr = errors.New("nil host")
	default:
		c.cfg, c.cfgErr = e.registry.Config(c.app)
	}
	return c
}

func (e *Engine) driverDeps() driver.Deps {
	return driver.Deps{
		Logger:  e.logger,
		Filters: e.filters,
		DB:      e.db,
		Files:   e.files,
		Now:     e.now,
	}
}

func (e *Engine) storeDeps(c *Controller) store.Deps {
	return store.Deps{
		Logger: e.logger.With("app", c.app),
		Now:    e.now,
		Tampered: func(name string) {
			e.metrics.Inc(MetricStateTampered)
			e.emitAudit(c.ctx, c, AuditStateTampered, "", false, errors.New(name+" state failed verification"))
		},
		Secret:   e.config.CookieSecret,
		Secure:   e.config.Cookies.RequireSecure,
		SameSite: e.config.Cookies.SameSite,
	}
}
