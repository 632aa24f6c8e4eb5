package goAuthen

import "regexp"

// Rule decides whether a run-mode requires authentication. Rules accumulate;
// a run-mode is protected when any rule matches it.
type Rule struct {
	name    string
	pattern *regexp.Regexp
	pred    func(string) bool
	all     bool
}

// Runmode protects exactly the named run-mode.
func Runmode(name string) Rule { return Rule{name: name} }

// Runmodes protects each of names.
func Runmodes(names ...string) []Rule {
	rules := make([]Rule, 0, len(names))
	for _, n := range names {
		rules = append(rules, Runmode(n))
	}
	return rules
}

// Pattern protects run-modes matching re.
func Pattern(re *regexp.Regexp) Rule { return Rule{pattern: re} }

// MustPattern compiles expr and protects matching run-modes. It panics on a
// bad expression.
func MustPattern(expr string) Rule { return Pattern(regexp.MustCompile(expr)) }

// Predicate protects run-modes for which fn returns true.
func Predicate(fn func(runmode string) bool) Rule { return Rule{pred: fn} }

// All protects every run-mode.
func All() Rule { return Rule{all: true} }

// Matches reports whether the rule protects runmode.
func (r Rule) Matches(runmode string) bool {
	switch {
	case r.all:
		return true
	case r.pattern != nil:
		return r.pattern.MatchString(runmode)
	case r.pred != nil:
		return r.pred(runmode)
	default:
		return r.name != "" && r.name == runmode
	}
}
