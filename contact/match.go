package contact

import (
	"regexp"
)

type fieldMatcher struct {
	field *Field
	re    *regexp.Regexp
}

// Matcher is a compiled search pattern.
//
// A non-empty pattern field is a case-insensitive regular expression
// searched anywhere in the record's field, so "smi" matches "Smith" and
// "^j" matches "John". A field that doesn't compile as a regular
// expression is matched as literal text. With literal set, every pattern
// field is literal text ("." only matches a dot).
//
// Empty pattern fields are ignored. A record matches only if all
// non-empty pattern fields match.
type Matcher struct {
	fields []fieldMatcher
}

// NewMatcher compiles pattern
func NewMatcher(pattern Record, literal bool) *Matcher {
	m := &Matcher{}
	for i := range Fields {
		f := &Fields[i]
		s := f.Get(&pattern)
		if s == "" {
			continue
		}
		m.fields = append(m.fields, fieldMatcher{
			field: f,
			re:    compileFieldPattern(s, literal),
		})
	}
	return m
}

func compileFieldPattern(s string, literal bool) *regexp.Regexp {
	if !literal {
		if re, err := regexp.Compile("(?i)" + s); err == nil {
			return re
		}
	}
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(s))
}

// Match returns true if r matches the pattern
func (m *Matcher) Match(r Record) bool {
	for _, fm := range m.fields {
		if !fm.re.MatchString(fm.field.Get(&r)) {
			return false
		}
	}
	return true
}

// MatchAll returns true if the pattern has no non-empty fields
func (m *Matcher) MatchAll() bool {
	return len(m.fields) == 0
}

// Match returns true if r matches pattern. See Matcher for the rules.
// When matching many records, compile the pattern once with NewMatcher.
func (r Record) Match(pattern Record) bool {
	return NewMatcher(pattern, false).Match(r)
}
