// Package hosttest is the entry point for embedding the test engine in a host
// application and for writing test modules in Go.
package hosttest

import (
	"hosttest/internal/loader"
	"hosttest/pkg/hosttest/core"
	"hosttest/pkg/hosttest/host"
	"hosttest/pkg/hosttest/session"

	"github.com/sirupsen/logrus"
)

type TestRegistrant = core.TestRegistrant
type TestRegistrar = core.TestRegistrar
type TestCaseFunction = core.TestCaseFunction
type DeferredCaseFunction = core.DeferredCaseFunction

type CaseContext = core.CaseContext
type Completion = core.Completion

type SetupCleanup = core.SetupCleanup
type SetupCleanupContext = core.SetupCleanupContext

type LoggerProvider = core.LoggerProvider

type Host = host.Host

type Options = session.Options
type Run = session.Run

// Failf returns an error that marks a case as failed.
func Failf(format string, a ...any) error {
	return core.Failf(format, a...)
}

// Skipf returns an error that marks a case as skipped.
func Skipf(format string, a ...any) error {
	return core.Skipf(format, a...)
}

// Register includes the Go test module r in every run of the package whose
// tests directory is dir.
func Register(dir string, r TestRegistrant) {
	loader.Register(dir, r)
}

// Start runs a package inside h. See session.Session.Start.
func Start(h Host, log *logrus.Logger, opts Options) *Run {
	return session.New(h, log).Start(opts)
}
