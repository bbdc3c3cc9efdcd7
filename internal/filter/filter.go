// Package filter selects test cases by their dotted full names, as printed by
// `hosttest list`.
package filter

import (
	"strings"

	"hosttest/pkg/hosttest/core"
)

// A filter that matches dotted names. A pattern selects the name itself and
// everything nested under it.
type Filter struct {
	emptyIsAny bool
	patterns   map[string]bool
}

func New(patterns []string) *Filter {
	contents := make(map[string]bool)
	for _, p := range patterns {
		p = strings.Trim(p, ".")
		if p != "" {
			contents[p] = true
		}
	}

	return &Filter{true, contents}
}

// Force the filter to match nothing if it is empty.
func (f *Filter) SetStrict() {
	f.emptyIsAny = false
}

func (f *Filter) Empty() bool {
	return len(f.patterns) == 0
}

func (f *Filter) Match(name string) bool {
	if len(f.patterns) == 0 {
		return f.emptyIsAny
	}

	for p := range f.patterns {
		if isBase(p, name) {
			return true
		}
	}

	return false
}

// Apply returns a copy of s holding only the cases f matches. Nested suites
// left without cases are dropped; fixtures are kept.
func (f *Filter) Apply(s *core.Suite) *core.Suite {
	out, _ := f.apply(s, s.Name())
	return out
}

func (f *Filter) apply(s *core.Suite, prefix string) (*core.Suite, int) {
	out := core.NewSuite(s.Name())
	out.SetFixture(s.Fixture())

	kept := 0
	for _, t := range s.Tests() {
		name := prefix + "." + t.Name()

		if sub, ok := t.(*core.Suite); ok {
			filtered, n := f.apply(sub, name)
			if n > 0 {
				out.Add(filtered)
				kept += n
			}
			continue
		}

		if f.Match(name) {
			out.Add(t)
			kept++
		}
	}

	return out, kept
}

// Returns whether `base` is `name` or one of its dotted prefixes.
//
// For example:
//
//	isBase("tests.ui", "tests.ui.opens") == true
//	isBase("tests.ui", "tests.ui") == true
//	isBase("tests.ui", "tests.uix.opens") == false
//	isBase("tests.ui.opens", "tests.ui") == false
func isBase(base, name string) bool {
	if !strings.HasPrefix(name, base) {
		return false
	}

	return len(name) == len(base) || name[len(base)] == '.'
}
