package store

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthen/internal/optdecode"
)

// DefaultCookieName is the cookie used by the cookie store.
const DefaultCookieName = "CAPAUTH_DATA"

type cookieAttrs struct {
	Name     string        `mapstructure:"name"`
	Expiry   time.Duration `mapstructure:"expiry"`
	Path     string        `mapstructure:"path"`
	Domain   string        `mapstructure:"domain"`
	Secure   *bool         `mapstructure:"secure"`
	HTTPOnly *bool         `mapstructure:"httponly"`
	SameSite string        `mapstructure:"samesite" validate:"omitempty,oneof=lax strict none Lax Strict None"`
}

func (a cookieAttrs) build(deps Deps, value string, remove bool) *http.Cookie {
	c := &http.Cookie{
		Name:     a.Name,
		Value:    value,
		Path:     a.Path,
		Domain:   a.Domain,
		Secure:   deps.Secure,
		HttpOnly: true,
		SameSite: deps.SameSite,
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if a.Secure != nil {
		c.Secure = *a.Secure
	}
	if a.HTTPOnly != nil {
		c.HttpOnly = *a.HTTPOnly
	}
	switch strings.ToLower(a.SameSite) {
	case "lax":
		c.SameSite = http.SameSiteLaxMode
	case "strict":
		c.SameSite = http.SameSiteStrictMode
	case "none":
		c.SameSite = http.SameSiteNoneMode
		c.Secure = true
	}
	switch {
	case remove:
		c.Value = ""
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	case a.Expiry > 0:
		c.MaxAge = int(a.Expiry / time.Second)
		c.Expires = deps.Now().Add(a.Expiry)
	}
	return c
}

type cookieOptions struct {
	Secret      string   `mapstructure:"secret"`
	Fields      []string `mapstructure:"fields"`
	cookieAttrs `mapstructure:",squash"`
}

// Cookie keeps state in a checksummed client cookie.
//
// Options: SECRET (required), NAME (default CAPAUTH_DATA), EXPIRY, PATH,
// DOMAIN, SECURE, HTTPONLY, SAMESITE and FIELDS, extra field names the store
// accepts besides the authentication state.
type Cookie struct {
	host    Host
	secret  string
	attrs   cookieAttrs
	allowed map[string]bool
	deps    Deps

	data      map[string]string
	loaded    bool
	hadCookie bool
}

// NewCookie builds a cookie store.
func NewCookie(host Host, opts Options, deps Deps) (Store, error) {
	var o cookieOptions
	if err := optdecode.Decode(opts, &o); err != nil {
		return nil, invalidOptions(err)
	}
	if o.Secret == "" {
		o.Secret = deps.Secret
	}
	if o.Secret == "" {
		return nil, ErrMissingSecret
	}
	if o.Name == "" {
		o.Name = DefaultCookieName
	}
	allowed := make(map[string]bool, len(DefaultFields)+len(o.Fields))
	for _, f := range append(append([]string(nil), DefaultFields...), o.Fields...) {
		if err := validPair(f, ""); err != nil {
			return nil, invalidOptions(err)
		}
		allowed[f] = true
	}
	return &Cookie{
		host:    host,
		secret:  o.Secret,
		attrs:   o.cookieAttrs,
		allowed: allowed,
		deps:    deps,
		data:    make(map[string]string),
	}, nil
}

// Initialize decodes the request cookie. A cookie that fails verification is
// reported as tampered and ignored.
func (s *Cookie) Initialize(context.Context) error {
	if s.loaded {
		return nil
	}
	s.loaded = true
	raw, ok := s.host.Cookie(s.attrs.Name)
	if !ok || raw == "" {
		return nil
	}
	s.hadCookie = true
	fields, ok := Decode(raw, s.secret, s.allowed)
	if !ok {
		s.deps.Logger.Warn("authentication cookie failed verification", "cookie", s.attrs.Name)
		s.deps.Tampered("cookie")
		return nil
	}
	s.data = fields
	return nil
}

// Fetch returns the requested fields.
func (s *Cookie) Fetch(_ context.Context, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = s.data[n]
	}
	return out, nil
}

// Save sets fields and re-emits the cookie.
func (s *Cookie) Save(_ context.Context, fields map[string]string) error {
	for k, v := range fields {
		if !s.allowed[k] {
			return fmt.Errorf("%w: %q is not a cookie field", ErrInvalidField, k)
		}
		if err := validPair(k, v); err != nil {
			return err
		}
	}
	changed := false
	for k, v := range fields {
		if old, ok := s.data[k]; !ok || old != v {
			s.data[k] = v
			changed = true
		}
	}
	if changed {
		return s.emit()
	}
	return nil
}

// Delete removes fields and re-emits the cookie when something was removed.
func (s *Cookie) Delete(_ context.Context, names ...string) error {
	changed := false
	for _, n := range names {
		if _, ok := s.data[n]; ok {
			delete(s.data, n)
			changed = true
		}
	}
	if changed {
		return s.emit()
	}
	return nil
}

// Clear drops all state and expires the cookie.
func (s *Cookie) Clear(context.Context) error {
	if len(s.data) == 0 && !s.hadCookie {
		return nil
	}
	s.data = make(map[string]string)
	return s.emit()
}

func (s *Cookie) emit() error {
	if len(s.data) == 0 {
		s.host.SetCookie(s.attrs.build(s.deps, "", true))
		return nil
	}
	value, err := Encode(s.data, s.secret)
	if err != nil {
		return err
	}
	s.host.SetCookie(s.attrs.build(s.deps, value, false))
	return nil
}
