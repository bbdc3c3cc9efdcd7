package core

import (
	"fmt"
	"regexp"
)

// A module of test cases defined in Go.
type TestRegistrant interface {
	Named
	RegisterTestCases(r TestRegistrar) error
}

type TestCaseFunction = func(CaseContext) error

type DeferredCaseFunction = func(CaseContext, *Completion)

type TestRegistrar interface {
	// Register a test case with the given name. The name is used to identify
	// the test case in the test suite. The name should be unique within the
	// test suite. Test names MUST be accepted by the regular expression
	// `^[a-zA-Z0-9_]+$`.
	RegisterTestCase(name string, runner TestCaseFunction)

	// Register a deferrable test case. Same naming rules as RegisterTestCase.
	RegisterDeferredCase(name string, begin DeferredCaseFunction)
}

var entityNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateEntityName checks name against the naming rules for kind (e.g.
// "test case").
func ValidateEntityName(name string, kind string) error {
	if name == "" {
		return fmt.Errorf("%s name must not be empty", kind)
	}

	if !entityNameRegex.MatchString(name) {
		return fmt.Errorf("%s name '%s' is invalid, it must match %s", kind, name, entityNameRegex.String())
	}

	return nil
}
