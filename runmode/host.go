package runmode

import (
	"context"
	"net/http"
	"net/url"

	goAuthen "github.com/MrEthical07/goAuthen"
	"github.com/MrEthical07/goAuthen/session"
	"github.com/MrEthical07/goAuthen/store"
)

// Host adapts one net/http request to the controller's host contract.
// Run-modes registered on it live for the request only and shadow the
// shared table it was created with.
type Host struct {
	w        http.ResponseWriter
	r        *http.Request
	current  string
	shared   map[string]http.HandlerFunc
	local    map[string]http.HandlerFunc
	marked   func(string) bool
	sessions *session.Manager
	sess     *session.Session
}

// NewHost returns a host for r whose current run-mode is mode. shared may be
// nil. The form is parsed so POSTed credentials are visible to Param.
func NewHost(w http.ResponseWriter, r *http.Request, mode string, shared map[string]http.HandlerFunc) *Host {
	_ = r.ParseForm()
	return &Host{
		w:       w,
		r:       r,
		current: mode,
		shared:  shared,
		local:   map[string]http.HandlerFunc{},
	}
}

// WithMarker reports run-modes for which fn returns true as protected.
func (h *Host) WithMarker(fn func(string) bool) *Host {
	h.marked = fn
	return h
}

// WithSessions gives the host server-side sessions, which makes the
// session store the default state store.
func (h *Host) WithSessions(m *session.Manager) *Host {
	h.sessions = m
	return h
}

func (h *Host) Param(name string) string { return h.r.Form.Get(name) }

func (h *Host) Cookie(name string) (string, bool) {
	c, err := h.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

func (h *Host) SetCookie(c *http.Cookie) { store.ReplaceCookie(h.w.Header(), c) }

func (h *Host) Header() http.Header { return h.w.Header() }

func (h *Host) URL() *url.URL { return h.r.URL }

func (h *Host) CurrentRunmode() string { return h.current }

func (h *Host) OverrideRunmode(name string) { h.current = name }

func (h *Host) HasRunmode(name string) bool { return h.Handler(name) != nil }

func (h *Host) RegisterRunmode(name string, fn http.HandlerFunc) { h.local[name] = fn }

// RunmodeMarked reports whether the marker protects name.
func (h *Host) RunmodeMarked(name string) bool {
	return h.marked != nil && h.marked(name)
}

// Handler returns the handler of run-mode name, nil when there is none.
func (h *Host) Handler(name string) http.HandlerFunc {
	if fn, ok := h.local[name]; ok {
		return fn
	}
	return h.shared[name]
}

// sessionHost is a Host that also provides server-side sessions.
type sessionHost struct {
	*Host
}

func (h sessionHost) Session(context.Context) (store.Session, error) {
	if h.sess == nil {
		h.sess = h.sessions.FromRequest(h.r, h.w)
	}
	return h.sess, nil
}

// Authen returns h as the controller should see it: with a Session method
// when sessions are configured, without one otherwise.
func (h *Host) Authen() goAuthen.Host {
	if h.sessions != nil {
		return sessionHost{h}
	}
	return h
}
