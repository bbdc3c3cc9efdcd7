// Package testerror holds the run-level error taxonomy. Per-case outcomes
// (failures, skips) live in the public core package.
package testerror

import "fmt"

// CollectionError is recorded when a test module could not be loaded. It is
// reported as a failing pseudo-case and does not stop discovery.
type CollectionError struct {
	Path string
	Err  error
}

func (ce *CollectionError) Error() string {
	return fmt.Sprintf("failed to collect tests from '%s': %v", ce.Path, ce.Err)
}

func (ce *CollectionError) Unwrap() error {
	return ce.Err
}

// ConfigurationError is returned before any case runs when the suite cannot
// run under the configured strategy.
type ConfigurationError struct {
	Message string
}

func (ce *ConfigurationError) Error() string {
	return ce.Message
}

func NewConfigurationError(format string, a ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, a...)}
}

// RunnerFault wraps an unexpected condition that escaped the runner itself
// rather than a single case.
type RunnerFault struct {
	Err error
}

func (rf *RunnerFault) Error() string {
	return rf.Err.Error()
}

func (rf *RunnerFault) Unwrap() error {
	return rf.Err
}
