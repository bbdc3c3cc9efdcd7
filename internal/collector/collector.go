package collector

import (
	"fmt"

	"hosttest/pkg/hosttest/core"
)

// CollectTestCases runs the registration function of r and returns a suite,
// named after r, holding the registered cases in registration order.
func CollectTestCases(r core.TestRegistrant) (*core.Suite, error) {
	collector := testCaseCollector{
		testCases: make([]core.Test, 0),
	}

	// Run the registration function to collect the test cases.
	err := r.RegisterTestCases(&collector)
	if err != nil {
		return nil, fmt.Errorf("failed to register test cases: %w", err)
	}

	names := make([]string, 0, len(collector.testCases))
	for _, testCase := range collector.testCases {
		names = append(names, testCase.Name())
	}

	err = CheckNames(names, "test case")
	if err != nil {
		return nil, err
	}

	suite := core.NewSuite(r.Name(), collector.testCases...)
	if fixture, ok := r.(core.SetupCleanup); ok {
		suite.SetFixture(fixture)
	}

	return suite, nil
}

// CheckNames checks that every name is valid and unique.
func CheckNames(names []string, kind string) error {
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			return fmt.Errorf("%s name '%s' is not unique", kind, name)
		}

		err := core.ValidateEntityName(name, kind)
		if err != nil {
			return err
		}

		seen[name] = true
	}

	return nil
}

type testCaseCollector struct {
	testCases []core.Test
}

// RegisterTestCase implements core.TestRegistrar.
func (c *testCaseCollector) RegisterTestCase(name string, f core.TestCaseFunction) {
	c.testCases = append(c.testCases, core.Func(name, f))
}

// RegisterDeferredCase implements core.TestRegistrar.
func (c *testCaseCollector) RegisterDeferredCase(name string, begin core.DeferredCaseFunction) {
	c.testCases = append(c.testCases, core.DeferredFunc(name, begin))
}
