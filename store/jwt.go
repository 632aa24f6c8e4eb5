package store

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/goAuthen/internal/optdecode"
)

// DefaultTokenCookieName is the cookie used by the jwt store.
const DefaultTokenCookieName = "CAPAUTH_TOKEN"

type stateClaims struct {
	State map[string]string `json:"authen"`
	jwt.RegisteredClaims
}

type jwtOptions struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	cookieAttrs `mapstructure:",squash"`
}

// JWT keeps state in an HS256 signed token cookie.
//
// Options: SECRET (required), ISSUER, and the cookie attributes of the
// cookie store (NAME defaults to CAPAUTH_TOKEN). With EXPIRY set the token
// carries an exp claim and expired tokens read as empty state.
type JWT struct {
	host   Host
	secret []byte
	issuer string
	attrs  cookieAttrs
	deps   Deps

	data      map[string]string
	loaded    bool
	hadCookie bool
}

// NewJWT builds a jwt store.
func NewJWT(host Host, opts Options, deps Deps) (Store, error) {
	var o jwtOptions
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
		o.Name = DefaultTokenCookieName
	}
	return &JWT{
		host:   host,
		secret: []byte(o.Secret),
		issuer: o.Issuer,
		attrs:  o.cookieAttrs,
		deps:   deps,
		data:   make(map[string]string),
	}, nil
}

// Initialize verifies the token cookie. An expired token is silently empty
// state; any other verification failure is reported as tampering.
func (s *JWT) Initialize(context.Context) error {
	if s.loaded {
		return nil
	}
	s.loaded = true
	raw, ok := s.host.Cookie(s.attrs.Name)
	if !ok || raw == "" {
		return nil
	}
	s.hadCookie = true

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.deps.Now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	var claims stateClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return s.secret, nil }, opts...)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			s.deps.Logger.Warn("authentication token failed verification", "cookie", s.attrs.Name, "error", err)
			s.deps.Tampered("jwt")
		}
		return nil
	}
	for k, v := range claims.State {
		s.data[k] = v
	}
	return nil
}

// Fetch returns the requested fields.
func (s *JWT) Fetch(_ context.Context, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = s.data[n]
	}
	return out, nil
}

// Save sets fields and re-issues the token when a value changed.
func (s *JWT) Save(_ context.Context, fields map[string]string) error {
	changed := false
	for k, v := range fields {
		if old, ok := s.data[k]; !ok || old != v {
			s.data[k] = v
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.emit()
}

// Delete removes fields and re-issues the token.
func (s *JWT) Delete(_ context.Context, names ...string) error {
	changed := false
	for _, n := range names {
		if _, ok := s.data[n]; ok {
			delete(s.data, n)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.emit()
}

// Clear drops all state and expires the cookie.
func (s *JWT) Clear(context.Context) error {
	if len(s.data) == 0 && !s.hadCookie {
		return nil
	}
	s.data = make(map[string]string)
	return s.emit()
}

func (s *JWT) emit() error {
	if len(s.data) == 0 {
		s.host.SetCookie(s.attrs.build(s.deps, "", true))
		return nil
	}
	now := s.deps.Now()
	claims := stateClaims{
		State: s.data,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.attrs.Expiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.attrs.Expiry))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return err
	}
	s.host.SetCookie(s.attrs.build(s.deps, signed, false))
	return nil
}
