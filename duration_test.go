package goAuthen

import (
	"errors"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"900":  900 * time.Second,
		"30s":  30 * time.Second,
		"15m":  15 * time.Minute,
		"1.5h": 90 * time.Minute,
		"2d":   48 * time.Hour,
		"1w":   7 * 24 * time.Hour,
		"1M":   30 * 24 * time.Hour,
		"1y":   365 * 24 * time.Hour,
	} {
		got, err := ParseDuration(in)
		if err != nil || got != want {
			t.Fatalf("ParseDuration(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	for _, in := range []string{"", "1.5", "-5", "10x", "m", "5 m", "1h30m"} {
		if _, err := ParseDuration(in); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("ParseDuration(%q) error = %v", in, err)
		}
	}
}

func TestDurationSeconds(t *testing.T) {
	got, err := DurationSeconds("2m")
	if err != nil || got != 120 {
		t.Fatalf("DurationSeconds(2m) = %v, %v", got, err)
	}
	if _, err := DurationSeconds("soon"); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("error = %v", err)
	}
}
