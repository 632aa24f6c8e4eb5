package goAuthen

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Reserved run-modes and request parameters.
const (
	RunmodeLogin         = "authen_login"
	RunmodeLogout        = "authen_logout"
	RunmodeDummyRedirect = "authen_dummy_redirect"

	ParamLogout      = "authen_logout"
	ParamDestination = "destination"
)

var destinationRe = regexp.MustCompile(`^[\w+@#.\-/:?=&%~]+$`)

// Prerun is the host's pre-dispatch hook. In order it:
//
//  1. initializes the controller;
//  2. registers the fallback login, logout and redirect run-modes the host
//     lacks;
//  3. on an authen_logout parameter, logs out and redirects, and stops;
//  4. on a fresh login, redirects per the post-login settings, and stops;
//  5. refreshes the last access time when a timeout policy is set;
//  6. redirects to login when the current run-mode is protected and no
//     user is authenticated.
//
// A non-nil error means the request must not be served.
func (c *Controller) Prerun() error {
	if err := c.Initialize(); err != nil {
		return err
	}
	c.registerFallbacks()

	if c.host.Param(ParamLogout) != "" {
		if err := c.Logout(); err != nil {
			return err
		}
		c.RedirectAfterLogout()
		return nil
	}

	if c.IsNewLogin() {
		c.RedirectAfterLogin()
		return nil
	}

	if c.cfg.Timeout != nil {
		if err := c.SetLastAccess(c.now); err != nil {
			return err
		}
	}

	if c.IsProtectedRunmode(c.host.CurrentRunmode()) && !c.IsAuthenticated() {
		c.RedirectToLogin()
	}
	return nil
}

func (c *Controller) registerFallbacks() {
	if c.cfg.LoginRunmode == "" && c.cfg.LoginURL == "" && !c.host.HasRunmode(RunmodeLogin) {
		c.host.RegisterRunmode(RunmodeLogin, c.loginRunmode)
	}
	if c.cfg.LogoutRunmode == "" && c.cfg.LogoutURL == "" && !c.host.HasRunmode(RunmodeLogout) {
		c.host.RegisterRunmode(RunmodeLogout, c.logoutRunmode)
	}
	if !c.host.HasRunmode(RunmodeDummyRedirect) {
		c.host.RegisterRunmode(RunmodeDummyRedirect, c.dummyRedirectRunmode)
	}
}

// IsProtectedRunmode reports whether name requires authentication, either
// by a configured rule or by a host marker.
func (c *Controller) IsProtectedRunmode(name string) bool {
	for _, r := range c.cfg.Protected {
		if r.Matches(name) {
			return true
		}
	}
	if m, ok := c.host.(Marker); ok && m.RunmodeMarked(name) {
		return true
	}
	return false
}

// RedirectAfterLogin sends a freshly logged-in user to the post-login
// run-mode, the post-login URL or a valid destination parameter, in that
// order. With none of them the request proceeds unchanged.
func (c *Controller) RedirectAfterLogin() {
	switch {
	case c.cfg.PostLoginRunmode != "":
		c.host.OverrideRunmode(c.cfg.PostLoginRunmode)
	case c.cfg.PostLoginURL != "":
		c.redirect(c.cfg.PostLoginURL)
	default:
		if dest := c.Destination(); dest != "" {
			c.redirect(dest)
		}
	}
}

// RedirectAfterLogout sends the user to the logout run-mode, the logout URL
// or the site root.
func (c *Controller) RedirectAfterLogout() {
	switch {
	case c.cfg.LogoutRunmode != "":
		c.host.OverrideRunmode(c.cfg.LogoutRunmode)
	case c.cfg.LogoutURL != "":
		c.redirect(c.cfg.LogoutURL)
	default:
		c.redirect("/")
	}
}

// RedirectToLogin sends the user to the login run-mode, the login URL or the
// built-in login form.
func (c *Controller) RedirectToLogin() {
	c.engine.metrics.Inc(MetricRedirectToLogin)
	switch {
	case c.cfg.LoginRunmode != "":
		c.host.OverrideRunmode(c.cfg.LoginRunmode)
	case c.cfg.LoginURL != "":
		c.redirect(c.cfg.LoginURL)
	default:
		c.host.OverrideRunmode(RunmodeLogin)
	}
}

func (c *Controller) redirect(location string) {
	c.host.Header().Set("Location", location)
	c.host.OverrideRunmode(RunmodeDummyRedirect)
}

// Destination returns the destination parameter when it is safe to redirect
// to, "" otherwise. Scheme-relative URLs and schemes other than http and
// https are refused.
func (c *Controller) Destination() string {
	return sanitizeDestination(c.host.Param(ParamDestination))
}

func sanitizeDestination(dest string) string {
	if dest == "" || !destinationRe.MatchString(dest) || strings.HasPrefix(dest, "//") {
		return ""
	}
	u, err := url.Parse(dest)
	if err != nil {
		return ""
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return dest
}

// requestController prefers the controller the host attached to the
// request, falling back to the one that registered the handler.
func (c *Controller) requestController(r *http.Request) *Controller {
	if rc, ok := ControllerFromContext(r.Context()); ok {
		return rc
	}
	return c
}

func (c *Controller) loginRunmode(w http.ResponseWriter, r *http.Request) {
	rc := c.requestController(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(rc.LoginBox()))
}

func (c *Controller) logoutRunmode(w http.ResponseWriter, r *http.Request) {
	rc := c.requestController(r)
	if err := rc.Logout(); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	target := rc.Destination()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (c *Controller) dummyRedirectRunmode(w http.ResponseWriter, r *http.Request) {
	rc := c.requestController(r)
	loc := rc.host.Header().Get("Location")
	if loc == "" {
		loc = w.Header().Get("Location")
	}
	if loc == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Location", loc)
	w.WriteHeader(http.StatusFound)
}
