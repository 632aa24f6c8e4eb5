package session

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// DefaultCookieName carries the session id.
const DefaultCookieName = "AUTHEN_SID"

// CookieConfig controls the session id cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Manager binds sessions to requests through a cookie.
type Manager struct {
	store  *Store
	cookie CookieConfig
}

// NewManager returns a manager over store.
func NewManager(store *Store, cookie CookieConfig) *Manager {
	if cookie.Name == "" {
		cookie.Name = DefaultCookieName
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	if cookie.SameSite == 0 {
		cookie.SameSite = http.SameSiteLaxMode
	}
	return &Manager{store: store, cookie: cookie}
}

// CookieName returns the name of the session id cookie.
func (m *Manager) CookieName() string { return m.cookie.Name }

// Open returns the session named by id. The id is only adopted if Redis
// already holds that session; an empty, malformed or unknown id yields a
// session that is created under a fresh id on its first write, and setCookie
// is then called with the new id cookie.
func (m *Manager) Open(id string, setCookie func(*http.Cookie)) *Session {
	if _, err := uuid.Parse(id); err != nil {
		id = ""
	}
	return &Session{m: m, id: id, setCookie: setCookie}
}

// FromRequest opens the session carried by r.
func (m *Manager) FromRequest(r *http.Request, w http.ResponseWriter) *Session {
	id := ""
	if c, err := r.Cookie(m.cookie.Name); err == nil {
		id = c.Value
	}
	return m.Open(id, func(c *http.Cookie) { http.SetCookie(w, c) })
}

// Session is one request's view of a server-side session. It is not safe
// for concurrent use.
type Session struct {
	m         *Manager
	id        string
	setCookie func(*http.Cookie)
	checked   bool
	touched   bool
}

// resolve drops a client supplied id that names no stored session.
func (s *Session) resolve(ctx context.Context) error {
	if s.id == "" || s.checked {
		return nil
	}
	s.checked = true
	ok, err := s.m.store.Exists(ctx, s.id)
	if err != nil {
		return err
	}
	if !ok {
		s.id = ""
	}
	return nil
}

// ID returns the session id, "" until the session is created.
func (s *Session) ID() string { return s.id }

// Get reads key. The first read of a request renews a sliding TTL.
func (s *Session) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.resolve(ctx); err != nil {
		return "", false, err
	}
	if s.id == "" {
		return "", false, nil
	}
	v, ok, err := s.m.store.Get(ctx, s.id, key)
	if err != nil {
		return "", false, err
	}
	if !s.touched {
		s.touched = true
		if err := s.m.store.Touch(ctx, s.id); err != nil {
			return "", false, err
		}
	}
	return v, ok, nil
}

// Set writes key, creating the session if needed.
func (s *Session) Set(ctx context.Context, key, value string) error {
	if err := s.resolve(ctx); err != nil {
		return err
	}
	if s.id == "" {
		s.issue(uuid.NewString())
	}
	return s.m.store.Set(ctx, s.id, key, value)
}

// Regenerate moves the session to a fresh id and sends the new id cookie.
func (s *Session) Regenerate(ctx context.Context) error {
	if err := s.resolve(ctx); err != nil {
		return err
	}
	if s.id == "" {
		return nil
	}
	id := uuid.NewString()
	if err := s.m.store.Rename(ctx, s.id, id); err != nil {
		return err
	}
	s.issue(id)
	return nil
}

func (s *Session) issue(id string) {
	s.id = id
	s.checked = true
	if s.setCookie != nil {
		s.setCookie(s.m.idCookie(id))
	}
}

// Delete removes keys.
func (s *Session) Delete(ctx context.Context, keys ...string) error {
	if err := s.resolve(ctx); err != nil {
		return err
	}
	if s.id == "" {
		return nil
	}
	return s.m.store.Delete(ctx, s.id, keys...)
}

// Destroy removes the session and expires its cookie.
func (s *Session) Destroy(ctx context.Context) error {
	if s.id == "" {
		return nil
	}
	if err := s.m.store.Destroy(ctx, s.id); err != nil {
		return err
	}
	s.id = ""
	if s.setCookie != nil {
		c := s.m.idCookie("")
		c.MaxAge = -1
		s.setCookie(c)
	}
	return nil
}

func (m *Manager) idCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookie.Name,
		Value:    id,
		Path:     m.cookie.Path,
		Domain:   m.cookie.Domain,
		Secure:   m.cookie.Secure,
		HttpOnly: true,
		SameSite: m.cookie.SameSite,
	}
}
