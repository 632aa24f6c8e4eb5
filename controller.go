package goAuthen

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goAuthen/driver"
	"github.com/MrEthical07/goAuthen/store"
)

// Controller is the authentication state of one request. It initializes
// lazily: every query runs [Controller.Initialize] first, so credentials are
// checked at most once however many queries a request makes.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	engine *Engine
	app    string
	ctx    context.Context
	host   Host
	cfg    Config
	cfgErr error

	initialized    bool
	initErr        error
	isNewLogin     bool
	isLoginTimeout bool
	now            time.Time

	store         store.Store
	drivers       []driver.Driver
	driversLoaded bool
}

// App returns the application id.
func (c *Controller) App() string { return c.app }

// Host returns the request host.
func (c *Controller) Host() Host { return c.host }

// Context returns the request context.
func (c *Controller) Context() context.Context { return c.ctx }

// Config returns the application configuration the controller works with.
func (c *Controller) Config() Config { return c.cfg }

// Err returns the error of Initialize, if it ran.
func (c *Controller) Err() error { return c.initErr }

// Now returns the time sampled by Initialize.
func (c *Controller) Now() time.Time {
	_ = c.Initialize()
	return c.now
}

// Initialize checks credentials and the timeout policy. It runs once; later
// calls return the first result.
//
// Wrong credentials and tampered state are not errors. Errors mean the
// request cannot be served: an unknown application, a driver or store that
// is not registered or rejects its options, or a backend that failed.
func (c *Controller) Initialize() error {
	if c.initialized {
		return c.initErr
	}
	c.initialized = true

	start := time.Now()
	c.initErr = c.initialize()
	if c.engine != nil {
		c.engine.metrics.Observe(MetricInitializeLatency, time.Since(start))
	}
	return c.initErr
}

func (c *Controller) initialize() error {
	if c.cfgErr != nil {
		return c.cfgErr
	}
	c.engine.registry.freeze(c.app)
	c.now = c.engine.now()

	st, err := c.Store()
	if err != nil {
		return err
	}

	creds := make([]string, len(c.cfg.Credentials))
	for i, name := range c.cfg.Credentials {
		creds[i] = c.host.Param(name)
	}
	if creds[0] != "" {
		if err := c.attemptLogin(st, creds); err != nil {
			return err
		}
	}

	if c.cfg.Timeout != nil && !c.isNewLogin {
		return c.checkTimeout(st)
	}
	return nil
}

func (c *Controller) attemptLogin(st store.Store, creds []string) error {
	current, err := c.fetch(st, store.FieldUsername)
	if err != nil {
		return err
	}
	if current != "" {
		if err := st.Clear(c.ctx); err != nil {
			return c.storeError(err)
		}
	}

	drivers, err := c.Drivers()
	if err != nil {
		return err
	}
	if len(drivers) == 0 {
		c.engine.logger.Warn("login attempted but no drivers are configured", "app", c.app)
	}

	for i, d := range drivers {
		name := c.cfg.Drivers[i].Name
		user, err := d.VerifyCredentials(c.ctx, creds...)
		if err != nil {
			c.engine.metrics.Inc(MetricBackendError)
			c.engine.logger.Error("driver failed", "app", c.app, "driver", name, "error", err)
			c.engine.emitAudit(c.ctx, c, AuditBackendError, creds[0], false, err)
			return fmt.Errorf("%w: driver %s: %w", ErrBackend, name, err)
		}
		if user == "" {
			continue
		}

		ts := strconv.FormatInt(c.now.Unix(), 10)
		if err := st.Save(c.ctx, map[string]string{
			store.FieldUsername:      user,
			store.FieldLoginAttempts: "0",
			store.FieldLastLogin:     ts,
			store.FieldLastAccess:    ts,
		}); err != nil {
			return c.storeError(err)
		}
		c.isNewLogin = true
		c.engine.metrics.Inc(MetricLoginSuccess)
		c.engine.logger.Info("login succeeded", "app", c.app, "username", user, "driver", name)
		c.engine.emitAudit(c.ctx, c, AuditLoginSuccess, user, true, nil)
		c.postLogin()
		return nil
	}

	raw, err := c.fetch(st, store.FieldLoginAttempts)
	if err != nil {
		return err
	}
	attempts := parseCount(raw) + 1
	if err := st.Save(c.ctx, map[string]string{
		store.FieldLoginAttempts: strconv.Itoa(attempts),
	}); err != nil {
		return c.storeError(err)
	}
	c.engine.metrics.Inc(MetricLoginFailure)
	c.engine.logger.Warn("login failed", "app", c.app, "username", creds[0], "attempts", attempts)
	c.engine.emitAudit(c.ctx, c, AuditLoginFailure, creds[0], false, nil)
	c.postLogin()
	return nil
}

func (c *Controller) postLogin() {
	if c.cfg.PostLoginCallback != nil {
		c.cfg.PostLoginCallback(c)
	}
}

func (c *Controller) checkTimeout(st store.Store) error {
	vals, err := st.Fetch(c.ctx, store.FieldUsername, store.FieldLastAccess, store.FieldLastLogin)
	if err != nil {
		return c.storeError(err)
	}
	user, lastAccess, lastLogin := vals[0], parseEpoch(vals[1]), parseEpoch(vals[2])
	if user == "" {
		return nil
	}

	t := c.cfg.Timeout
	reason := ""
	switch {
	case t.IdleFor > 0 && c.now.Sub(lastAccess) >= t.IdleFor:
		reason = "idle"
	case t.Every > 0 && c.now.Sub(lastLogin) >= t.Every:
		reason = "every"
	case t.Custom != nil && t.Custom(c):
		reason = "custom"
	}
	if reason == "" {
		return nil
	}

	c.isLoginTimeout = true
	if err := st.Clear(c.ctx); err != nil {
		return c.storeError(err)
	}
	c.engine.metrics.Inc(MetricLoginTimeout)
	c.engine.logger.Info("login timed out", "app", c.app, "username", user, "reason", reason)
	c.engine.emitAudit(c.ctx, c, AuditLoginTimeout, user, true, nil)
	return nil
}

// Store returns the request's store, creating and loading it on first use.
func (c *Controller) Store() (store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	if c.cfgErr != nil {
		return nil, c.cfgErr
	}

	name := store.DefaultName(c.host)
	opts := store.Options{}
	if spec := c.cfg.Store; spec != nil {
		name = spec.Name
		for k, v := range spec.Options {
			opts[k] = v
		}
	}

	st, err := c.engine.stores.New(name, c.host, opts, c.engine.storeDeps(c))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("%w: %w", ErrStoreNotFound, err)
		case errors.Is(err, store.ErrMissingSecret):
			return nil, fmt.Errorf("%w: %w", ErrMissingSecret, err)
		case errors.Is(err, store.ErrInvalidOptions):
			return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
		default:
			return nil, c.storeError(err)
		}
	}
	if err := st.Initialize(c.ctx); err != nil {
		return nil, c.storeError(err)
	}
	c.store = st
	return st, nil
}

// Drivers returns the configured drivers in order, creating them on first
// use.
func (c *Controller) Drivers() ([]driver.Driver, error) {
	if c.driversLoaded {
		return c.drivers, nil
	}
	if c.cfgErr != nil {
		return nil, c.cfgErr
	}

	deps := c.engine.driverDeps()
	drivers := make([]driver.Driver, 0, len(c.cfg.Drivers))
	for _, spec := range c.cfg.Drivers {
		opts := make(driver.Options, len(spec.Options))
		for k, v := range spec.Options {
			opts[k] = v
		}
		d, err := c.engine.drivers.New(spec.Name, opts, deps)
		if err != nil {
			switch {
			case errors.Is(err, driver.ErrNotFound):
				return nil, fmt.Errorf("%w: %w", ErrDriverNotFound, err)
			case errors.Is(err, driver.ErrInvalidOptions):
				return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
			default:
				c.engine.metrics.Inc(MetricBackendError)
				return nil, fmt.Errorf("%w: %w", ErrBackend, err)
			}
		}
		drivers = append(drivers, d)
	}
	c.drivers = drivers
	c.driversLoaded = true
	return drivers, nil
}

func (c *Controller) storeError(err error) error {
	c.engine.metrics.Inc(MetricBackendError)
	c.engine.logger.Error("store failed", "app", c.app, "error", err)
	return fmt.Errorf("%w: store: %w", ErrBackend, err)
}

func (c *Controller) fetch(st store.Store, name string) (string, error) {
	vals, err := st.Fetch(c.ctx, name)
	if err != nil {
		return "", c.storeError(err)
	}
	return vals[0], nil
}

// get reads one field for the query methods, which report failures only
// through Err and the log.
func (c *Controller) get(name string) string {
	if c.Initialize() != nil {
		return ""
	}
	v, err := c.fetch(c.store, name)
	if err != nil {
		return ""
	}
	return v
}

// IsAuthenticated reports whether a username is set.
func (c *Controller) IsAuthenticated() bool { return c.Username() != "" }

// Username returns the authenticated username, "" when there is none.
func (c *Controller) Username() string { return c.get(store.FieldUsername) }

// LoginAttempts returns the number of failed logins since the last success.
func (c *Controller) LoginAttempts() int { return parseCount(c.get(store.FieldLoginAttempts)) }

// IsNewLogin reports whether this request logged the user in.
func (c *Controller) IsNewLogin() bool {
	_ = c.Initialize()
	return c.isNewLogin
}

// IsLoginTimeout reports whether this request ended a login by timeout.
func (c *Controller) IsLoginTimeout() bool {
	_ = c.Initialize()
	return c.isLoginTimeout
}

// LastLogin returns when the current login started; the zero time if unknown.
func (c *Controller) LastLogin() time.Time { return epochOrZero(c.get(store.FieldLastLogin)) }

// SetLastLogin stores t as the login time. It does nothing unless a user
// is authenticated.
func (c *Controller) SetLastLogin(t time.Time) error { return c.setTime(store.FieldLastLogin, t) }

// LastAccess returns the time of the last authenticated request.
func (c *Controller) LastAccess() time.Time { return epochOrZero(c.get(store.FieldLastAccess)) }

// SetLastAccess stores t as the last access time. It does nothing unless a
// user is authenticated.
func (c *Controller) SetLastAccess(t time.Time) error { return c.setTime(store.FieldLastAccess, t) }

func (c *Controller) setTime(field string, t time.Time) error {
	if err := c.Initialize(); err != nil {
		return err
	}
	if !c.IsAuthenticated() {
		return nil
	}
	if err := c.store.Save(c.ctx, map[string]string{field: strconv.FormatInt(t.Unix(), 10)}); err != nil {
		return c.storeError(err)
	}
	return nil
}

// Logout clears the whole authentication state.
func (c *Controller) Logout() error {
	if err := c.Initialize(); err != nil {
		return err
	}
	user := c.Username()
	if err := c.store.Clear(c.ctx); err != nil {
		return c.storeError(err)
	}
	if user != "" {
		c.engine.metrics.Inc(MetricLogout)
		c.engine.logger.Info("logout", "app", c.app, "username", user)
		c.engine.emitAudit(c.ctx, c, AuditLogout, user, true, nil)
	}
	return nil
}

func parseCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseEpoch treats a missing or garbled timestamp as the epoch, so
// timeouts measured from it have always elapsed.
func parseEpoch(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Unix(0, 0)
	}
	return time.Unix(n, 0)
}

func epochOrZero(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0)
}
