package store

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

const checksumKey = "c"

var cookieEncoding = base64.StdEncoding.Strict()

// Encode serializes fields into the checksummed cookie format.
func Encode(fields map[string]string, secret string) (string, error) {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if err := validPair(k, v); err != nil {
			return "", err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)+1)
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
		values = append(values, fields[k])
	}
	pairs = append(pairs, checksumKey+"="+checksum(secret, values))
	return cookieEncoding.EncodeToString([]byte(strings.Join(pairs, "\x00"))), nil
}

// Decode parses a cookie value. ok is false when the value is not valid
// base64, a pair is malformed or repeated, a field is not in allowed (nil
// allows any) or the checksum does not match.
func Decode(raw, secret string, allowed map[string]bool) (fields map[string]string, ok bool) {
	b, err := cookieEncoding.DecodeString(raw)
	if err != nil {
		return nil, false
	}

	fields = make(map[string]string)
	sum, haveSum := "", false
	for _, pair := range strings.Split(string(b), "\x00") {
		k, v, found := strings.Cut(pair, "=")
		if !found || k == "" {
			return nil, false
		}
		if k == checksumKey {
			if haveSum {
				return nil, false
			}
			sum, haveSum = v, true
			continue
		}
		if _, dup := fields[k]; dup {
			return nil, false
		}
		if allowed != nil && !allowed[k] {
			return nil, false
		}
		fields[k] = v
	}
	if !haveSum {
		return nil, false
	}

	values := make([]string, 0, len(fields))
	for _, v := range fields {
		values = append(values, v)
	}
	if subtle.ConstantTimeCompare([]byte(sum), []byte(checksum(secret, values))) != 1 {
		return nil, false
	}
	return fields, true
}

func checksum(secret string, values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	sum := md5.Sum([]byte(strings.Join(append([]string{secret}, sorted...), "\x00")))
	return hex.EncodeToString(sum[:])
}

func validPair(k, v string) error {
	switch {
	case k == "" || k == checksumKey:
		return fmt.Errorf("%w: reserved name %q", ErrInvalidField, k)
	case strings.ContainsAny(k, "=\x00"):
		return fmt.Errorf("%w: name %q", ErrInvalidField, k)
	case strings.ContainsRune(v, 0):
		return fmt.Errorf("%w: value of %q contains NUL", ErrInvalidField, k)
	}
	return nil
}
