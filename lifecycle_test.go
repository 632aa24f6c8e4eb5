package goAuthen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProtectedRunmodeRedirectsToLogin(t *testing.T) {
	engine := newTestEngine(t, nil, "DRIVER", genericDriver)
	engine.ProtectRunmodes("test", Runmode("secret"))
	b := newBrowser()

	h, _ := request(t, engine, b, "secret", nil)
	if h.runmode != RunmodeLogin {
		t.Fatalf("unauthenticated run-mode = %q, want %q", h.runmode, RunmodeLogin)
	}
	if got := engine.MetricsSnapshot().Counters[MetricRedirectToLogin]; got != 1 {
		t.Fatalf("redirect counter = %d", got)
	}

	h, _ = request(t, engine, b, "public", nil)
	if h.runmode != "public" {
		t.Fatalf("public run-mode overridden to %q", h.runmode)
	}

	request(t, engine, b, "secret", login("user1", "123"))
	h, _ = request(t, engine, b, "secret", nil)
	if h.runmode != "secret" {
		t.Fatalf("authenticated run-mode = %q, want secret", h.runmode)
	}
}

func TestProtectionRules(t *testing.T) {
	engine := newTestEngine(t, nil)
	engine.ProtectRunmodes("test",
		MustPattern(`^admin_`),
		Predicate(func(rm string) bool { return strings.HasSuffix(rm, "_private") }),
	)
	engine.ProtectRunmodes("test", Runmodes("a", "b")...)

	c := engine.NewController(context.Background(), "test", newTestHost("start", nil, nil))
	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	for rm, want := range map[string]bool{
		"admin_users":  true,
		"user_private": true,
		"a":            true,
		"b":            true,
		"c":            false,
		"xadmin_users": false,
	} {
		if got := c.IsProtectedRunmode(rm); got != want {
			t.Fatalf("IsProtectedRunmode(%q) = %v, want %v", rm, got, want)
		}
	}

	h := newTestHost("marked", nil, nil)
	h.marked["marked"] = true
	c = engine.NewController(context.Background(), "test", h)
	if !c.IsProtectedRunmode("marked") {
		t.Fatal("host marker ignored")
	}
}

func TestProtectAll(t *testing.T) {
	engine := newTestEngine(t, nil, "LOGIN_URL", "/signin")
	engine.ProtectRunmodes("test", All())
	h, _ := request(t, engine, newBrowser(), "anything", nil)
	if h.runmode != RunmodeDummyRedirect || h.header.Get("Location") != "/signin" {
		t.Fatalf("run-mode=%q location=%q", h.runmode, h.header.Get("Location"))
	}
}

func TestPostLoginRedirects(t *testing.T) {
	t.Run("runmode", func(t *testing.T) {
		engine := newTestEngine(t, nil, "DRIVER", genericDriver, "POST_LOGIN_RUNMODE", "welcome")
		h, _ := request(t, engine, newBrowser(), "start", login("user1", "123"))
		if h.runmode != "welcome" {
			t.Fatalf("run-mode = %q", h.runmode)
		}
	})
	t.Run("url", func(t *testing.T) {
		engine := newTestEngine(t, nil, "DRIVER", genericDriver, "POST_LOGIN_URL", "/home")
		params := login("user1", "123")
		params[ParamDestination] = "/ignored"
		h, _ := request(t, engine, newBrowser(), "start", params)
		if h.runmode != RunmodeDummyRedirect || h.header.Get("Location") != "/home" {
			t.Fatalf("run-mode=%q location=%q", h.runmode, h.header.Get("Location"))
		}
	})
	t.Run("destination", func(t *testing.T) {
		engine := newTestEngine(t, nil, "DRIVER", genericDriver)
		params := login("user1", "123")
		params[ParamDestination] = "/reports?id=7"
		h, _ := request(t, engine, newBrowser(), "start", params)
		if h.header.Get("Location") != "/reports?id=7" {
			t.Fatalf("location = %q", h.header.Get("Location"))
		}
	})
	t.Run("unsafe destination", func(t *testing.T) {
		engine := newTestEngine(t, nil, "DRIVER", genericDriver)
		params := login("user1", "123")
		params[ParamDestination] = "//evil.example/x"
		h, _ := request(t, engine, newBrowser(), "start", params)
		if h.runmode != "start" || h.header.Get("Location") != "" {
			t.Fatalf("run-mode=%q location=%q", h.runmode, h.header.Get("Location"))
		}
	})
	t.Run("failed login", func(t *testing.T) {
		engine := newTestEngine(t, nil, "DRIVER", genericDriver, "POST_LOGIN_RUNMODE", "welcome")
		h, _ := request(t, engine, newBrowser(), "start", login("user1", "nope"))
		if h.runmode != "start" {
			t.Fatalf("failed login redirected to %q", h.runmode)
		}
	})
}

func TestLogoutParameter(t *testing.T) {
	engine := newTestEngine(t, nil, "DRIVER", genericDriver, "LOGOUT_URL", "/bye")
	b := newBrowser()
	request(t, engine, b, "start", login("user1", "123"))

	h, c := request(t, engine, b, "start", map[string]string{ParamLogout: "1"})
	if c.IsAuthenticated() {
		t.Fatal("still authenticated after logout")
	}
	if h.runmode != RunmodeDummyRedirect || h.header.Get("Location") != "/bye" {
		t.Fatalf("run-mode=%q location=%q", h.runmode, h.header.Get("Location"))
	}
	if got := engine.MetricsSnapshot().Counters[MetricLogout]; got != 1 {
		t.Fatalf("logout counter = %d", got)
	}

	_, c = request(t, engine, b, "start", nil)
	if c.IsAuthenticated() {
		t.Fatal("logout did not persist")
	}
}

func TestLogoutDefaultsToRoot(t *testing.T) {
	engine := newTestEngine(t, nil, "DRIVER", genericDriver, "LOGOUT_RUNMODE", "goodbye")
	h, _ := request(t, engine, newBrowser(), "start", map[string]string{ParamLogout: "1"})
	if h.runmode != "goodbye" {
		t.Fatalf("run-mode = %q", h.runmode)
	}

	engine = newTestEngine(t, nil)
	h, _ = request(t, engine, newBrowser(), "start", map[string]string{ParamLogout: "1"})
	if h.header.Get("Location") != "/" {
		t.Fatalf("location = %q", h.header.Get("Location"))
	}
}

func TestFallbackRunmodesRegistered(t *testing.T) {
	engine := newTestEngine(t, nil)
	h, _ := request(t, engine, newBrowser(), "start", nil)
	for _, rm := range []string{RunmodeLogin, RunmodeLogout, RunmodeDummyRedirect} {
		if !h.HasRunmode(rm) {
			t.Fatalf("fallback %q not registered", rm)
		}
	}

	engine = newTestEngine(t, nil, "LOGIN_URL", "/signin", "LOGOUT_RUNMODE", "out")
	h, _ = request(t, engine, newBrowser(), "start", nil)
	if h.HasRunmode(RunmodeLogin) || h.HasRunmode(RunmodeLogout) {
		t.Fatal("fallbacks registered despite explicit configuration")
	}
	if !h.HasRunmode(RunmodeDummyRedirect) {
		t.Fatal("redirect run-mode must always be available")
	}

	called := false
	engine = newTestEngine(t, nil)
	h = newTestHost("start", nil, nil)
	h.runmodes[RunmodeLogin] = func(http.ResponseWriter, *http.Request) { called = true }
	c := engine.NewController(context.Background(), "test", h)
	_ = c.Prerun()
	h.runmodes[RunmodeLogin](httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("host run-mode replaced")
	}
}

func TestFallbackHandlers(t *testing.T) {
	engine := newTestEngine(t, nil, "DRIVER", genericDriver)
	engine.ProtectRunmodes("test", Runmode("secret"))
	b := newBrowser()

	h, c := request(t, engine, b, "secret", nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/app?rm=secret", nil)
	h.runmodes[RunmodeLogin](rec, req.WithContext(WithController(req.Context(), c)))
	body := rec.Body.String()
	if !strings.Contains(body, `name="authen_username"`) || !strings.Contains(body, `name="authen_password"`) {
		t.Fatalf("login form missing fields: %s", body)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}

	h, _ = request(t, engine, b, "start", login("user1", "123"))
	h.header.Set("Location", "/next")
	rec = httptest.NewRecorder()
	h.runmodes[RunmodeDummyRedirect](rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/next" {
		t.Fatalf("dummy redirect: code=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}

	h, c = request(t, engine, b, "start", nil)
	rec = httptest.NewRecorder()
	h.runmodes[RunmodeDummyRedirect](rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("dummy redirect without location: code=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.runmodes[RunmodeLogout](rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("logout handler: code=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
	if c.IsAuthenticated() {
		t.Fatal("logout handler did not log out")
	}
}

func TestLoginBoxMessages(t *testing.T) {
	engine := newTestEngine(t, nil, "DRIVER", genericDriver)
	b := newBrowser()

	_, c := request(t, engine, b, "start", nil)
	box := c.LoginBox()
	if strings.Contains(box, "authen-error") {
		t.Fatalf("fresh form shows an error: %s", box)
	}
	if !strings.Contains(box, `name="destination" value="/app?rm=start"`) {
		t.Fatalf("destination not carried: %s", box)
	}

	_, c = request(t, engine, b, RunmodeLogin, login("user<1>", "bad"))
	box = c.LoginBox()
	if !strings.Contains(box, "login attempt 1") {
		t.Fatalf("attempt message missing: %s", box)
	}
	if !strings.Contains(box, `value="user&lt;1&gt;"`) {
		t.Fatalf("username not escaped and prefilled: %s", box)
	}
	if strings.Contains(box, `name="destination"`) {
		t.Fatalf("login run-mode should not carry itself as destination: %s", box)
	}
}

func TestLoginBoxCustomRenderer(t *testing.T) {
	engine := newTestEngine(t, nil, "RENDER_LOGIN", func(c *Controller) string {
		return "custom:" + c.App()
	})
	c := engine.NewController(context.Background(), "test", newTestHost("start", nil, nil))
	if got := c.LoginBox(); got != "custom:test" {
		t.Fatalf("LoginBox = %q", got)
	}
}

func TestSanitizeDestination(t *testing.T) {
	for in, want := range map[string]string{
		"":                        "",
		"/ok/path?x=1&y=2":        "/ok/path?x=1&y=2",
		"https://example.com/a":   "https://example.com/a",
		"//evil.example":          "",
		"javascript:alert(1)":     "",
		"/has space":              "",
		"/quote\"":                "",
		"ftp://example.com/file":  "",
		"relative/page#frag":      "relative/page#frag",
		"http://example.com/~bob": "http://example.com/~bob",
	} {
		if got := sanitizeDestination(in); got != want {
			t.Fatalf("sanitizeDestination(%q) = %q, want %q", in, got, want)
		}
	}
}
