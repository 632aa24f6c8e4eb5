// Package durations parses the compact duration notation used by login
// timeouts and cookie expiry options.
package durations

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is returned for values that are neither bare integer seconds nor
// a number followed by a known unit.
var ErrInvalid = errors.New("invalid duration")

var pattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)([smhdwMy])$`)

// Multipliers maps each unit to its length in seconds. Months are 30 days and
// years are 365 days.
var Multipliers = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
	"w": 604800,
	"M": 2592000,
	"y": 31536000,
}

// Seconds converts value into a number of seconds.
//
// "90" is 90, "1.5h" is 5400, "2M" is 5184000. A decimal without a unit, an
// unknown unit, a sign or surrounding garbage is rejected.
func Seconds(value string) (float64, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalid)
	}

	if isDigits(v) {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, value)
		}
		return float64(n), nil
	}

	m := pattern.FindStringSubmatch(v)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, value)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, value)
	}
	return n * float64(Multipliers[m[2]]), nil
}

// Parse is Seconds expressed as a time.Duration.
func Parse(value string) (time.Duration, error) {
	secs, err := Seconds(value)
	if err != nil {
		return 0, err
	}
	if secs*float64(time.Second) > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalid, value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
