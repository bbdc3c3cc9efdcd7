package runner

import (
	"errors"
	"sync/atomic"

	"hosttest/internal/testmgr"
	"hosttest/pkg/hosttest/core"
)

var errDeferredInImmediate = errors.New("deferrable test case cannot run in immediate mode")

// ImmediateRunner runs every case synchronously on the calling goroutine.
type ImmediateRunner struct {
	base
	finished atomic.Bool
}

func NewImmediate(opts Options) *ImmediateRunner {
	return &ImmediateRunner{base: newBase(opts)}
}

func (r *ImmediateRunner) Run(suite *core.Suite) *testmgr.RunResult {
	r.finished.Store(false)
	result := r.start()

	r.runSuite(suite, "")

	result.Finish(false)
	r.finished.Store(true)
	return result
}

func (r *ImmediateRunner) Finished() bool {
	return r.finished.Load()
}

func (r *ImmediateRunner) runSuite(suite *core.Suite, module string) {
	if !r.setupSuite(suite, module) {
		return
	}

	for _, t := range suite.Tests() {
		if sub, ok := t.(*core.Suite); ok {
			r.runSuite(sub, moduleName(module, sub.Name()))
			continue
		}
		r.runCase(t, module)
	}

	r.cleanupSuite(suite)
}

func (r *ImmediateRunner) runCase(t core.Test, module string) {
	tc := r.result.NewTestCase(t.Name(), module)
	if r.bailed() {
		r.skipNotRun(tc)
		return
	}

	tc.Start()

	switch c := t.(type) {
	case core.TestCase:
		ctx := newCaseContext(tc, r.opts.Host)
		r.closeFromError(tc, execute(ctx, func() error { return c.Run(ctx) }))
	default:
		// Suites are verified before they reach this runner, so this only
		// happens when the caller skipped verification.
		r.closeFromError(tc, errDeferredInImmediate)
	}
}
