// Package optdecode decodes loosely typed backend option maps into typed
// structs and validates them.
package optdecode

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/MrEthical07/goAuthen/internal/durations"
)

// ArgsKey holds positional arguments of a backend entry.
const ArgsKey = "args"

var validate = validator.New()

// Decode copies opts into out, a pointer to a struct tagged with
// `mapstructure`. Keys match case-insensitively, scalars are converted
// weakly ("true" -> true, "5" -> 5), durations accept the compact notation
// of the durations package, and keys with no matching field are an error.
// The result is then checked against its `validate` tags.
func Decode(opts map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       durationHook(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
		MatchName:        strings.EqualFold,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(lowerKeys(opts)); err != nil {
		return err
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("validate options: %w", err)
	}
	return nil
}

// Take removes key (case-insensitively) from opts and returns its value.
// It is used for values a decoder cannot carry, such as callbacks.
func Take(opts map[string]any, key string) (any, bool) {
	for k, v := range opts {
		if strings.EqualFold(k, key) {
			delete(opts, k)
			return v, true
		}
	}
	return nil, false
}

// Clone returns a shallow copy of opts.
func Clone(opts map[string]any) map[string]any {
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}

// Strings converts a positional argument list into strings.
func Strings(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("argument %d: expected string, got %T", i, e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string list, got %T", v)
	}
}

func lowerKeys(opts map[string]any) map[string]any {
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		out[strings.ToLower(k)] = v
	}
	return out
}

func durationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return durations.Parse(v)
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		default:
			return data, nil
		}
	}
}
