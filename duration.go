package goAuthen

import (
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthen/internal/durations"
)

// ParseDuration parses the compact duration notation used by
// LOGIN_SESSION_TIMEOUT and cookie EXPIRY options: bare integer seconds
// ("900") or a number with one unit suffix, s m h d w M y ("15m", "1.5h",
// "2w"). Months are 30 days and years 365 days. A decimal without a unit is
// rejected.
func ParseDuration(v string) (time.Duration, error) {
	d, err := durations.Parse(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, v)
	}
	return d, nil
}

// DurationSeconds is [ParseDuration] expressed in seconds.
func DurationSeconds(v string) (float64, error) {
	s, err := durations.Seconds(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, v)
	}
	return s, nil
}
