package runner

import (
	"hosttest/internal/testerror"
	"hosttest/pkg/hosttest/core"
)

// VerifySuite returns a configuration error if suite holds a case that can
// only run under the deferring runner.
func VerifySuite(suite *core.Suite) error {
	return core.Walk(suite, func(t core.Test) error {
		if core.IsDeferrable(t) {
			return testerror.NewConfigurationError(
				"deferred case present but deferred mode is off: %s", t.Name(),
			)
		}
		return nil
	})
}
