package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/MrEthical07/goAuthen/internal/optdecode"
)

type sessionOptions struct {
	Prefix string   `mapstructure:"prefix"`
	Fields []string `mapstructure:"fields"`
}

// SessionStore keeps fields in the host's server-side session. The session
// is trusted, so no checksum is applied.
//
// Options: PREFIX is prepended to every key; FIELDS adds names Clear removes
// besides the authentication state.
type SessionStore struct {
	host   Host
	prefix string
	fields map[string]bool
	sess   Session
}

// NewSession builds a session store. The host must implement
// SessionProvider.
func NewSession(host Host, opts Options, _ Deps) (Store, error) {
	var o sessionOptions
	if err := optdecode.Decode(opts, &o); err != nil {
		return nil, invalidOptions(err)
	}
	if _, ok := host.(SessionProvider); !ok {
		return nil, ErrNoSession
	}
	fields := make(map[string]bool)
	for _, f := range append(append([]string(nil), DefaultFields...), o.Fields...) {
		fields[f] = true
	}
	return &SessionStore{host: host, prefix: o.Prefix, fields: fields}, nil
}

// Initialize opens the host session.
func (s *SessionStore) Initialize(ctx context.Context) error {
	if s.sess != nil {
		return nil
	}
	sess, err := s.host.(SessionProvider).Session(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	s.sess = sess
	return nil
}

// Fetch reads each field from the session.
func (s *SessionStore) Fetch(ctx context.Context, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		v, ok, err := s.sess.Get(ctx, s.prefix+n)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = v
		}
	}
	return out, nil
}

// Save writes fields in name order. Writing the username moves the session
// to a fresh id when the session supports it.
func (s *SessionStore) Save(ctx context.Context, fields map[string]string) error {
	if _, login := fields[FieldUsername]; login {
		if r, ok := s.sess.(Regenerator); ok {
			if err := r.Regenerate(ctx); err != nil {
				return err
			}
		}
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := s.sess.Set(ctx, s.prefix+k, fields[k]); err != nil {
			return err
		}
		s.fields[k] = true
	}
	return nil
}

// Delete removes fields from the session.
func (s *SessionStore) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = s.prefix + n
	}
	return s.sess.Delete(ctx, keys...)
}

// Clear removes every known field.
func (s *SessionStore) Clear(ctx context.Context) error {
	names := make([]string, 0, len(s.fields))
	for f := range s.fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return s.Delete(ctx, names...)
}
