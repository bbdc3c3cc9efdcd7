package core

import (
	"context"
	"hosttest/pkg/hosttest/host"
)

// Test is anything a Suite can hold: a TestCase, a DeferrableCase or a nested
// *Suite.
type Test interface {
	Named
}

// TestCase is a case that completes synchronously, within Run.
type TestCase interface {
	Test

	// Run executes the case. A nil error is a pass; see Failf and Skipf for
	// reporting other outcomes. Any other error is recorded as an error.
	Run(ctx CaseContext) error
}

// DeferrableCase is a case whose result may only be known on a later host
// tick.
type DeferrableCase interface {
	Test

	// Begin starts the case and returns the completion the case resolves,
	// possibly from a host callback long after Begin returned. An unresolved
	// completion means the case is still pending.
	Begin(ctx CaseContext) *Completion
}

// IsDeferrable returns whether t requires the deferring runner.
func IsDeferrable(t Test) bool {
	_, ok := t.(DeferrableCase)
	return ok
}

type CaseContext interface {
	Named
	LoggerProvider

	// Host the run executes inside of.
	Host() host.Host

	// Provides a context for the test case. The context will be cancelled once
	// the test case has reached a final status, making it suitable to
	// terminate any leftover goroutines that were started by the test case.
	Context() context.Context

	// Fail the test case. While called from the goroutine running Run or
	// Begin, execution stops by calling runtime.Goexit(), which then runs all
	// deferred calls in the current goroutine. From a later host callback of a
	// deferrable case it resolves the case's completion instead.
	Fail(reason string)

	// Skip the test case. Stops execution the same way Fail does.
	Skip(reason string)
}
