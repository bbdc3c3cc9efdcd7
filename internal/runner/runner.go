package runner

import (
	"runtime/debug"
	"sync"

	"hosttest/internal/testerror"
	"hosttest/internal/testmgr"
	"hosttest/pkg/hosttest/core"
	"hosttest/pkg/hosttest/host"

	"github.com/sirupsen/logrus"
)

// Runner executes a suite and records the outcome of every case.
type Runner interface {
	// Run executes suite. The returned result may still be filling in after
	// Run returns when cases are deferred.
	Run(suite *core.Suite) *testmgr.RunResult

	// Finished returns true once every case of the last run reached a final
	// status.
	Finished() bool
}

// Options shared by all runners.
type Options struct {
	Host   host.Host
	Logger *logrus.Logger

	// FailFast stops starting new cases after the first bad one. The
	// remaining cases are recorded as NOT RUN.
	FailFast bool

	// OnCaseFinished is called every time a case reaches a final status, on
	// the goroutine that closed it.
	OnCaseFinished func(*testmgr.TestCase)
}

// base holds the bookkeeping both runners share.
type base struct {
	opts   Options
	log    *logrus.Logger
	result *testmgr.RunResult

	mu   sync.Mutex
	bail bool
}

func newBase(opts Options) base {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return base{opts: opts, log: log}
}

func (b *base) start() *testmgr.RunResult {
	b.result = testmgr.NewRunResult(b.log)
	b.log.WithField("run", b.result.ID()).Debug("Starting run")
	return b.result
}

func (b *base) bailed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bail
}

// closed must be called after every successful close of a test case.
func (b *base) closed(tc *testmgr.TestCase) {
	if b.opts.FailFast && tc.Status().IsBad() {
		b.mu.Lock()
		b.bail = true
		b.mu.Unlock()
	}

	if b.opts.OnCaseFinished != nil {
		b.opts.OnCaseFinished(tc)
	}
}

// closeFromError closes tc with err and notifies observers.
func (b *base) closeFromError(tc *testmgr.TestCase, err error) {
	if tc.CloseFromError(err) {
		b.closed(tc)
	}
}

func (b *base) skipNotRun(tc *testmgr.TestCase) {
	if tc.MarkNotRun("failfast: an earlier test case failed") {
		b.closed(tc)
	}
}

// setupSuite runs the setup hook of s, if any. On failure every case of s is
// closed with the setup error and false is returned.
func (b *base) setupSuite(s *core.Suite, module string) bool {
	fixture := s.Fixture()
	if fixture == nil {
		return true
	}

	err := runCatchPanic(func() error {
		return fixture.Setup(&fixtureContext{name: s.Name(), log: b.log, host: b.opts.Host})
	})
	if err == nil {
		return true
	}

	setupErr := newSetupError(s.Name(), err)
	b.log.Error(setupErr)
	core.Walk(s, func(t core.Test) error {
		tc := b.result.NewTestCase(t.Name(), module)
		if tc.Error(setupErr) {
			b.closed(tc)
		}
		return nil
	})
	return false
}

func (b *base) cleanupSuite(s *core.Suite) {
	fixture := s.Fixture()
	if fixture == nil {
		return
	}

	err := runCatchPanic(func() error {
		return fixture.Cleanup(&fixtureContext{name: s.Name(), log: b.log, host: b.opts.Host})
	})
	if err != nil {
		// If cleanup failed we still want to report the test results.
		b.log.Error(newCleanupError(s.Name(), err))
	}
}

func moduleName(parent, suite string) string {
	if parent == "" {
		return suite
	}
	return parent + "." + suite
}

// execute runs f on a separate goroutine so that runtime.Goexit() can be
// called to stop the test case. A case that stopped that way is closed with
// the outcome recorded on its context.
func execute(ctx *caseContext, f func() error) error {
	var (
		err      error
		returned bool
		wg       sync.WaitGroup
	)

	ctx.setInline(true)
	defer ctx.setInline(false)

	wg.Add(1)
	go func() {
		defer wg.Done()
		err = runCatchPanic(func() error {
			e := f()
			returned = true
			return e
		})
	}()

	// Wait for the goroutine to finish and close the test with whatever
	// error we receive, if any.
	wg.Wait()

	if err == nil && !returned {
		return ctx.exitOutcome()
	}
	return err
}

func runCatchPanic(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = testerror.NewPanicError(r, debug.Stack())
		}
	}()

	return f()
}
