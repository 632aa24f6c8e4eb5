package filter

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownFilter is returned when a spec names a filter that is not registered.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrInvalidParam is returned when a filter parameter is not understood.
	ErrInvalidParam = errors.New("invalid filter parameter")
	// ErrMalformedStored is returned by salted filters when the stored value
	// cannot be parsed. Check reports it as a mismatch.
	ErrMalformedStored = errors.New("malformed stored value")
)

// Func is a single filter.
//
// param is the text after the first ':' of the spec entry. stored is the
// value being checked against and is only set for the last filter of a list
// during Check; salted filters read their salt from it.
type Func func(param, value, stored string) (string, error)

// Registry maps filter names to implementations. The zero value is not
// usable; use NewRegistry.
type Registry struct {
	mu      sync.RWMutex
	filters map[string]Func
}

// NewRegistry returns a registry holding the built-in filters.
func NewRegistry() *Registry {
	r := &Registry{filters: make(map[string]Func)}
	for name, fn := range digestFilters() {
		r.filters[name] = fn
	}
	r.filters["lc"] = lowerFilter
	r.filters["uc"] = upperFilter
	r.filters["strip"] = stripFilter
	r.filters["bcrypt"] = bcryptFilter
	r.filters["argon2"] = argon2Filter
	return r
}

// Register adds or replaces a filter. Names are case-insensitive.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[strings.ToLower(strings.TrimSpace(name))] = fn
}

// Names returns the registered filter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (Func, error) {
	r.mu.RLock()
	fn, ok := r.filters[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
	return fn, nil
}

// Filter applies spec to value. An empty spec returns value unchanged.
func (r *Registry) Filter(spec, value string) (string, error) {
	return r.apply(spec, value, "")
}

// Check reports whether plaintext, run through spec, equals stored.
//
// Errors are returned only for invalid specs. A stored value a salted filter
// cannot parse is a mismatch.
func (r *Registry) Check(spec, plaintext, stored string) (bool, error) {
	got, err := r.apply(spec, plaintext, stored)
	if err != nil {
		if errors.Is(err, ErrMalformedStored) {
			return false, nil
		}
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(stored)) == 1, nil
}

// Validate parses spec and confirms every named filter exists.
func (r *Registry) Validate(spec string) error {
	steps, err := Parse(spec)
	if err != nil {
		return err
	}
	for _, s := range steps {
		if _, err := r.lookup(s.Name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) apply(spec, value, stored string) (string, error) {
	steps, err := Parse(spec)
	if err != nil {
		return "", err
	}
	for i, s := range steps {
		fn, err := r.lookup(s.Name)
		if err != nil {
			return "", err
		}
		ref := ""
		if i == len(steps)-1 {
			ref = stored
		}
		value, err = fn(s.Param, value, ref)
		if err != nil {
			return "", fmt.Errorf("filter %s: %w", s.Name, err)
		}
	}
	return value, nil
}

// Step is one parsed entry of a filter list.
type Step struct {
	Name  string
	Param string
}

// Parse splits a filter list into steps. Names are lower-cased; parameters
// keep their case.
func Parse(spec string) ([]Step, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ",")
	steps := make([]Step, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		name, param, _ := strings.Cut(part, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, fmt.Errorf("%w: empty entry in %q", ErrUnknownFilter, spec)
		}
		steps = append(steps, Step{Name: name, Param: strings.TrimSpace(param)})
	}
	return steps, nil
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by the package functions.
func Default() *Registry { return defaultRegistry }

// Filter applies spec using the default registry.
func Filter(spec, value string) (string, error) { return defaultRegistry.Filter(spec, value) }

// Check verifies plaintext against stored using the default registry.
func Check(spec, plaintext, stored string) (bool, error) {
	return defaultRegistry.Check(spec, plaintext, stored)
}

// Register adds fn to the default registry.
func Register(name string, fn Func) { defaultRegistry.Register(name, fn) }
