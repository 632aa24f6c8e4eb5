package middleware

import (
	"net/http"

	goAuthen "github.com/MrEthical07/goAuthen"
	"github.com/MrEthical07/goAuthen/runmode"
	"github.com/MrEthical07/goAuthen/session"
)

// guardedRunmode names the wrapped handler inside the controller.
const guardedRunmode = "authen_guarded"

// Option configures a guard.
type Option func(*guard)

type guard struct {
	engine   *goAuthen.Engine
	app      string
	protect  bool
	sessions *session.Manager
}

// WithSessions enables server-side sessions for guarded requests.
func WithSessions(m *session.Manager) Option { return func(g *guard) { g.sessions = m } }

// Guard returns middleware that requires a login for every request. An
// unauthenticated request gets the login form or is redirected to the
// configured login location; the wrapped handler only runs for an
// authenticated user.
func Guard(engine *goAuthen.Engine, app string, opts ...Option) func(http.Handler) http.Handler {
	return newGuard(engine, app, true, opts)
}

// Attach returns middleware that runs the controller and attaches it to the
// request context without requiring a login. Login and logout parameters are
// still honored.
func Attach(engine *goAuthen.Engine, app string, opts ...Option) func(http.Handler) http.Handler {
	return newGuard(engine, app, false, opts)
}

func newGuard(engine *goAuthen.Engine, app string, protect bool, opts []Option) func(http.Handler) http.Handler {
	g := &guard{engine: engine, app: app, protect: protect}
	for _, opt := range opts {
		opt(g)
	}
	logger := engine.Logger()

	return func(next http.Handler) http.Handler {
		shared := map[string]http.HandlerFunc{guardedRunmode: next.ServeHTTP}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.engine == nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			h := runmode.NewHost(w, r, guardedRunmode, shared).
				WithMarker(func(name string) bool { return g.protect && name == guardedRunmode }).
				WithSessions(g.sessions)
			runmode.Serve(g.engine, g.app, h, w, r, logger)
		})
	}
}

// Controller returns the controller attached by [Guard] or [Attach].
func Controller(r *http.Request) (*goAuthen.Controller, bool) {
	return goAuthen.ControllerFromContext(r.Context())
}
