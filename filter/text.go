package filter

import "strings"

func lowerFilter(_, value, _ string) (string, error) { return strings.ToLower(value), nil }

func upperFilter(_, value, _ string) (string, error) { return strings.ToUpper(value), nil }

func stripFilter(_, value, _ string) (string, error) { return strings.TrimSpace(value), nil }
