package core

import "hosttest/pkg/hosttest/host"

type SetupCleanupContext interface {
	Named
	LoggerProvider

	// Host the run executes inside of.
	Host() host.Host
}

// SetupCleanup is implemented by test modules that prepare shared state for
// their cases.
type SetupCleanup interface {
	// Setup runs before the first case of the suite starts.
	Setup(SetupCleanupContext) error

	// Cleanup runs once every case of the suite reached a final status,
	// which for deferrable cases may be on a later host tick.
	Cleanup(SetupCleanupContext) error
}
