package runmode

import (
	"log/slog"
	"net"
	"net/http"
	"sync"

	goAuthen "github.com/MrEthical07/goAuthen"
	"github.com/MrEthical07/goAuthen/session"
)

// DefaultParam is the request parameter naming the run-mode.
const DefaultParam = "rm"

// Mux dispatches requests to run-mode handlers after running the
// authentication controller. It is safe for concurrent use once handlers
// are registered.
type Mux struct {
	engine      *goAuthen.Engine
	app         string
	param       string
	defaultMode string
	sessions    *session.Manager
	logger      *slog.Logger

	mu        sync.RWMutex
	modes     map[string]http.HandlerFunc
	protected map[string]bool
}

// Option configures a Mux.
type Option func(*Mux)

// WithParam sets the request parameter naming the run-mode.
func WithParam(name string) Option { return func(m *Mux) { m.param = name } }

// WithDefault sets the run-mode used when the request names none.
func WithDefault(mode string) Option { return func(m *Mux) { m.defaultMode = mode } }

// WithSessions enables server-side sessions for every request.
func WithSessions(s *session.Manager) Option { return func(m *Mux) { m.sessions = s } }

// NewMux returns a run-mode dispatcher for app.
func NewMux(engine *goAuthen.Engine, app string, opts ...Option) *Mux {
	m := &Mux{
		engine:      engine,
		app:         app,
		param:       DefaultParam,
		defaultMode: "start",
		modes:       map[string]http.HandlerFunc{},
		protected:   map[string]bool{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = slog.Default()
	if engine != nil {
		m.logger = engine.Logger()
	}
	return m
}

// Handle registers a public run-mode.
func (m *Mux) Handle(name string, fn http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[name] = fn
}

// HandleProtected registers a run-mode that requires a login.
func (m *Mux) HandleProtected(name string, fn http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[name] = fn
	m.protected[name] = true
}

func (m *Mux) marked(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.protected[name]
}

func (m *Mux) snapshot() map[string]http.HandlerFunc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]http.HandlerFunc, len(m.modes))
	for k, v := range m.modes {
		out[k] = v
	}
	return out
}

// ServeHTTP runs Prerun and then the handler of the run-mode the controller
// left selected. The controller is available to handlers through
// [goAuthen.ControllerFromContext].
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mode := r.FormValue(m.param)
	if mode == "" {
		mode = m.defaultMode
	}

	h := NewHost(w, r, mode, m.snapshot()).WithMarker(m.marked).WithSessions(m.sessions)
	Serve(m.engine, m.app, h, w, r, m.logger)
}

// Serve runs the controller for h and dispatches to the selected run-mode.
// It is the common tail of [Mux] and the middleware guard.
func Serve(engine *goAuthen.Engine, app string, h *Host, w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ctx := goAuthen.WithClientIP(r.Context(), clientIP(r))
	c := engine.NewController(ctx, app, h.Authen())
	if err := c.Prerun(); err != nil {
		logger.Error("authentication failed", "app", app, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	fn := h.Handler(h.CurrentRunmode())
	if fn == nil {
		http.NotFound(w, r)
		return
	}
	fn(w, r.WithContext(goAuthen.WithController(ctx, c)))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
