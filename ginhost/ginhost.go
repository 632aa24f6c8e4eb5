// Package ginhost runs the authentication controller as gin middleware.
//
// The route's full path is the run-mode, so protection rules name routes:
//
//	engine.ProtectRunmodes("shop", goAuthen.MustPattern(`^/account`))
//	r.Use(ginhost.Middleware(engine, "shop"))
//
// When the controller selects another run-mode (the login form, a redirect
// or the logout handler) the middleware serves it and aborts the chain. A
// configured LOGIN_RUNMODE or POST_LOGIN_RUNMODE is a route path and is
// reached by redirect.
package ginhost

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	goAuthen "github.com/MrEthical07/goAuthen"
	"github.com/MrEthical07/goAuthen/store"
)

// ContextKey is the gin context key holding the *goAuthen.Controller.
const ContextKey = "authen.controller"

type host struct {
	c       *gin.Context
	route   string
	current string
	local   map[string]http.HandlerFunc
	marked  map[string]bool
}

func (h *host) Param(name string) string {
	if v, ok := h.c.GetPostForm(name); ok {
		return v
	}
	return h.c.Query(name)
}

func (h *host) Cookie(name string) (string, bool) {
	v, err := h.c.Cookie(name)
	if err != nil {
		return "", false
	}
	return v, true
}

func (h *host) SetCookie(c *http.Cookie) { store.ReplaceCookie(h.c.Writer.Header(), c) }

func (h *host) Header() http.Header { return h.c.Writer.Header() }

func (h *host) URL() *url.URL { return h.c.Request.URL }

func (h *host) CurrentRunmode() string { return h.current }

func (h *host) OverrideRunmode(name string) { h.current = name }

func (h *host) HasRunmode(name string) bool {
	_, ok := h.local[name]
	return ok || name == h.route
}

func (h *host) RegisterRunmode(name string, fn http.HandlerFunc) { h.local[name] = fn }

func (h *host) RunmodeMarked(name string) bool { return h.marked[name] }

// Option configures the middleware.
type Option func(*options)

type options struct {
	protected map[string]bool
}

// Protect marks routes, by full path, as requiring a login.
func Protect(paths ...string) Option {
	return func(o *options) {
		for _, p := range paths {
			o.protected[p] = true
		}
	}
}

// Middleware runs Prerun for every request of app.
func Middleware(engine *goAuthen.Engine, app string, opts ...Option) gin.HandlerFunc {
	o := &options{protected: map[string]bool{}}
	for _, opt := range opts {
		opt(o)
	}
	logger := engine.Logger()

	return func(c *gin.Context) {
		route := c.FullPath()
		h := &host{c: c, route: route, current: route, local: map[string]http.HandlerFunc{}, marked: o.protected}

		ctrl := engine.NewController(c.Request.Context(), app, h)
		if err := ctrl.Prerun(); err != nil {
			logger.Error("authentication failed", "app", app, "route", route, "error", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(ContextKey, ctrl)
		c.Request = c.Request.WithContext(goAuthen.WithController(c.Request.Context(), ctrl))

		if h.current != route {
			fn, ok := h.local[h.current]
			if !ok {
				// Run-modes are route paths here.
				c.Redirect(http.StatusFound, h.current)
				c.Abort()
				return
			}
			fn(c.Writer, c.Request)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Controller returns the controller the middleware stored on c.
func Controller(c *gin.Context) (*goAuthen.Controller, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil, false
	}
	ctrl, ok := v.(*goAuthen.Controller)
	return ctrl, ok
}
