package goAuthen

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthen/store"
)

type testHost struct {
	params     map[string]string
	cookies    map[string]string
	setCookies map[string]*http.Cookie
	header     http.Header
	url        *url.URL
	runmode    string
	runmodes   map[string]http.HandlerFunc
	marked     map[string]bool
}

func newTestHost(runmode string, params map[string]string, cookies map[string]string) *testHost {
	if params == nil {
		params = map[string]string{}
	}
	if cookies == nil {
		cookies = map[string]string{}
	}
	u, _ := url.Parse("/app?rm=" + runmode)
	return &testHost{
		params:     params,
		cookies:    cookies,
		setCookies: map[string]*http.Cookie{},
		header:     http.Header{},
		url:        u,
		runmode:    runmode,
		runmodes:   map[string]http.HandlerFunc{},
		marked:     map[string]bool{},
	}
}

func (h *testHost) Param(name string) string { return h.params[name] }

func (h *testHost) Cookie(name string) (string, bool) {
	v, ok := h.cookies[name]
	return v, ok
}

func (h *testHost) SetCookie(c *http.Cookie) {
	h.setCookies[c.Name] = c
	store.ReplaceCookie(h.header, c)
}

func (h *testHost) Header() http.Header            { return h.header }
func (h *testHost) URL() *url.URL                  { return h.url }
func (h *testHost) CurrentRunmode() string         { return h.runmode }
func (h *testHost) OverrideRunmode(name string)    { h.runmode = name }
func (h *testHost) HasRunmode(name string) bool    { _, ok := h.runmodes[name]; return ok }
func (h *testHost) RunmodeMarked(name string) bool { return h.marked[name] }

func (h *testHost) RegisterRunmode(name string, fn http.HandlerFunc) {
	h.runmodes[name] = fn
}

// sessionHost adds a server-side session to testHost.
type sessionHost struct {
	*testHost
	session *memSession
}

type memSession struct {
	values map[string]string
}

func (s *memSession) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memSession) Set(_ context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

func (s *memSession) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (h *sessionHost) Session(context.Context) (store.Session, error) {
	return h.session, nil
}

// browser carries cookies from one request to the next.
type browser struct {
	cookies map[string]string
}

func newBrowser() *browser {
	return &browser{cookies: map[string]string{}}
}

func (b *browser) host(runmode string, params map[string]string) *testHost {
	jar := make(map[string]string, len(b.cookies))
	for k, v := range b.cookies {
		jar[k] = v
	}
	return newTestHost(runmode, params, jar)
}

func (b *browser) absorb(h *testHost) {
	for name, c := range h.setCookies {
		if c.MaxAge < 0 {
			delete(b.cookies, name)
			continue
		}
		b.cookies[name] = c.Value
	}
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(t *testing.T, clock *testClock, opts ...any) *Engine {
	t.Helper()
	if clock == nil {
		clock = &testClock{now: time.Unix(1_700_000_000, 0)}
	}
	engine, err := New().
		WithClock(clock.Now).
		WithApp("test", opts...).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

// request runs one request through Prerun and returns its host and
// controller after passing the response cookies back to the browser.
func request(t *testing.T, e *Engine, b *browser, runmode string, params map[string]string) (*testHost, *Controller) {
	t.Helper()
	h := b.host(runmode, params)
	c := e.NewController(context.Background(), "test", h)
	if err := c.Prerun(); err != nil {
		t.Fatalf("Prerun failed: %v", err)
	}
	b.absorb(h)
	return h, c
}

func login(user, password string) map[string]string {
	return map[string]string{"authen_username": user, "authen_password": password}
}

var cookieStoreOpts = []any{"SECRET", "s3cret"}

var genericDriver = []any{"generic", map[string]any{"user1": "123", "user2": "456"}}
