// scrubber.go implements field redaction over nested request data.

package notifier

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ScrubRule matches mapping keys whose values must be redacted.
// A rule is either an exact, case-insensitive name or a compiled pattern.
type ScrubRule struct {
	exact   string
	pattern *regexp.Regexp
}

// ExactRule matches keys equal to name, ignoring case.
func ExactRule(name string) ScrubRule {
	return ScrubRule{exact: strings.ToLower(name)}
}

// PatternRule matches keys for which re finds a match.
func PatternRule(re *regexp.Regexp) ScrubRule {
	return ScrubRule{pattern: re}
}

// Matches reports whether key is covered by the rule.
func (r ScrubRule) Matches(key string) bool {
	if r.pattern != nil {
		return r.pattern.MatchString(key)
	}
	return strings.ToLower(key) == r.exact
}

// String returns the rule in the form accepted by ParseScrubRule.
func (r ScrubRule) String() string {
	if r.pattern != nil {
		return "/" + r.pattern.String() + "/"
	}
	return r.exact
}

// ParseScrubRule parses a single scrub field. Values wrapped in slashes, with
// optional trailing flags (i, m, s, U), are compiled as regular expressions:
//
//	"password"            exact name
//	"/token|password/i"   case-insensitive pattern
func ParseScrubRule(field string) (ScrubRule, error) {
	if len(field) < 2 || field[0] != '/' {
		return ExactRule(field), nil
	}
	end := strings.LastIndexByte(field, '/')
	if end == 0 {
		return ExactRule(field), nil
	}

	expr, flags := field[1:end], field[end+1:]
	for _, f := range flags {
		if !strings.ContainsRune("imsU", f) {
			return ScrubRule{}, fmt.Errorf("scrub field %q: unsupported flag %q", field, f)
		}
	}
	if flags != "" {
		expr = "(?" + flags + ")" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return ScrubRule{}, fmt.Errorf("scrub field %q: %w", field, err)
	}
	return PatternRule(re), nil
}

// ParseScrubRules parses every field. Fields that fail to parse are returned as
// exact rules alongside the joined errors, so callers can keep going.
func ParseScrubRules(fields []string) ([]ScrubRule, error) {
	rules := make([]ScrubRule, 0, len(fields))
	var errs []error
	for _, field := range fields {
		rule, err := ParseScrubRule(field)
		if err != nil {
			errs = append(errs, err)
			rule = ExactRule(field)
		}
		rules = append(rules, rule)
	}
	if len(errs) > 0 {
		return rules, errors.Join(errs...)
	}
	return rules, nil
}

// Scrub returns a copy of value with every matched key redacted at any depth.
//
// A matched scalar becomes a run of '*' as long as its text. A matched map or
// slice becomes a single "*". Unmatched containers are walked recursively.
// The input must be acyclic; it is never modified.
func Scrub(value any, rules []ScrubRule) any {
	return scrubValue(value, rules)
}

// ScrubMap is Scrub for the common map case.
func ScrubMap(m map[string]any, rules []ScrubRule) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := Scrub(m, rules).(map[string]any)
	return out
}

func scrubValue(value any, rules []ScrubRule) any {
	if _, ok := value.([]byte); ok {
		return value
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			inner := iter.Value().Interface()
			if matchesAny(key, rules) {
				out[key] = mask(inner)
			} else {
				out[key] = scrubValue(inner, rules)
			}
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = scrubValue(rv.Index(i).Interface(), rules)
		}
		return out
	default:
		return value
	}
}

func matchesAny(key string, rules []ScrubRule) bool {
	for _, rule := range rules {
		if rule.Matches(key) {
			return true
		}
	}
	return false
}

// mask redacts a matched value.
func mask(value any) string {
	if b, ok := value.([]byte); ok {
		return strings.Repeat("*", utf8.RuneCount(b))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Invalid:
		return ""
	case reflect.Map, reflect.Slice, reflect.Array:
		return "*"
	case reflect.String:
		return strings.Repeat("*", utf8.RuneCountInString(rv.String()))
	default:
		return strings.Repeat("*", utf8.RuneCountInString(fmt.Sprint(value)))
	}
}
