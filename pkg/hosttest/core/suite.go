package core

// Suite is an ordered, possibly nested, collection of tests. Insertion order
// is execution order.
type Suite struct {
	name    string
	tests   []Test
	fixture SetupCleanup
}

func NewSuite(name string, tests ...Test) *Suite {
	return &Suite{
		name:  name,
		tests: append([]Test(nil), tests...),
	}
}

func (s *Suite) Name() string {
	return s.name
}

func (s *Suite) Add(tests ...Test) {
	s.tests = append(s.tests, tests...)
}

// SetFixture attaches setup and cleanup hooks to the suite.
func (s *Suite) SetFixture(f SetupCleanup) {
	s.fixture = f
}

func (s *Suite) Fixture() SetupCleanup {
	return s.fixture
}

func (s *Suite) Tests() []Test {
	return s.tests
}

// CountCases returns the number of cases in s and all nested suites.
func (s *Suite) CountCases() int {
	count := 0
	Walk(s, func(Test) error {
		count++
		return nil
	})
	return count
}

// Walk calls fn for every case in s, depth first in execution order. Suites
// themselves are not passed to fn. It stops at the first error.
func Walk(s *Suite, fn func(Test) error) error {
	for _, t := range s.tests {
		if sub, ok := t.(*Suite); ok {
			if err := Walk(sub, fn); err != nil {
				return err
			}
			continue
		}

		if err := fn(t); err != nil {
			return err
		}
	}

	return nil
}
