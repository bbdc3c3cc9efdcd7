package runner

import (
	"fmt"
)

type runnerError struct {
	err   error
	suite string
}

func (re *runnerError) Error() string {
	return fmt.Sprintf("error in suite '%s': %v", re.suite, re.err)
}

func (re *runnerError) Unwrap() error {
	return re.err
}

type setupError struct {
	runnerError
}

func newSetupError(suite string, err error) *setupError {
	return &setupError{
		runnerError: runnerError{
			err:   err,
			suite: suite,
		},
	}
}

func (se *setupError) Error() string {
	return fmt.Sprintf("setup error in suite '%s': %v", se.suite, se.err)
}

type cleanupError struct {
	runnerError
}

func newCleanupError(suite string, err error) error {
	return &cleanupError{
		runnerError: runnerError{
			err:   err,
			suite: suite,
		},
	}
}

func (ce *cleanupError) Error() string {
	return fmt.Sprintf("cleanup error in suite '%s': %v", ce.suite, ce.err)
}
