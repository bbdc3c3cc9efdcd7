package runner

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"hosttest/internal/testerror"
	"hosttest/internal/testmgr"
	"hosttest/pkg/hosttest/core"
	"hosttest/pkg/hosttest/host"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCatchPanic(t *testing.T) {
	t.Run("no panic", func(t *testing.T) {
		err := runCatchPanic(func() error { return nil })
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("error", func(t *testing.T) {
		err := runCatchPanic(func() error { return fmt.Errorf("test error") })
		if err == nil {
			t.Errorf("expected an error, got nil")
		}

		if _, ok := err.(testerror.PanicError); ok {
			t.Errorf("expected non-panic error, got panic error")
		}

		if err.Error() != "test error" {
			t.Errorf("expected test error, got %v", err)
		}
	})

	t.Run("panic", func(t *testing.T) {
		err := runCatchPanic(func() error {
			panic("test panic")
		})
		if err == nil {
			t.Errorf("expected an error, got nil")
		}

		pe, ok := err.(testerror.PanicError)
		if !ok {
			t.Errorf("expected panic error, got non-panic error")
		}

		if pe.Error() != "panic occurred: test panic" {
			t.Errorf("expected panic error, got %v", pe)
		}
	})
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func pass(name string) core.TestCase {
	return core.Func(name, func(core.CaseContext) error { return nil })
}

// deferredAfter resolves with err once the host advanced by d.
func deferredAfter(name string, d time.Duration, err error) core.DeferrableCase {
	return core.DeferredFunc(name, func(ctx core.CaseContext, c *core.Completion) {
		ctx.Host().SetTimeout(func() { c.Resolve(err) }, d)
	})
}

func statuses(result *testmgr.RunResult) map[string]testmgr.TestCaseStatus {
	out := make(map[string]testmgr.TestCaseStatus)
	for _, tc := range result.TestCases() {
		out[tc.FullName()] = tc.Status()
	}
	return out
}

func TestVerifySuite(t *testing.T) {
	sync := core.NewSuite("root", pass("a"), core.NewSuite("nested", pass("b")))
	assert.NoError(t, VerifySuite(sync))

	mixed := core.NewSuite("root", pass("a"), core.NewSuite("nested", deferredAfter("waits", time.Second, nil)))
	err := VerifySuite(mixed)
	var configErr *testerror.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "deferred case present but deferred mode is off: waits", configErr.Message)

	assert.NoError(t, VerifySuite(core.NewSuite("empty")))
}

func TestImmediateRunner(t *testing.T) {
	loop := host.NewManualLoop()
	var finished []string
	r := NewImmediate(Options{
		Host:   loop,
		Logger: quietLogger(),
		OnCaseFinished: func(tc *testmgr.TestCase) {
			finished = append(finished, tc.FullName())
		},
	})
	assert.False(t, r.Finished())

	suite := core.NewSuite("root",
		pass("passes"),
		core.NewSuite("panels",
			core.Func("fails", func(ctx core.CaseContext) error {
				ctx.Fail("panel did not open")
				return errors.New("unreachable")
			}),
			core.Func("skips", func(ctx core.CaseContext) error {
				ctx.Skip("no display")
				return nil
			}),
			core.Func("panics", func(core.CaseContext) error { panic("boom") }),
			core.Func("errors", func(core.CaseContext) error { return errors.New("broken") }),
		),
	)

	result := r.Run(suite)
	assert.True(t, r.Finished())
	assert.True(t, result.Finished())
	assert.False(t, result.Successful())

	assert.Equal(t, map[string]testmgr.TestCaseStatus{
		"passes":        testmgr.TestCaseStatusPassed,
		"panels.fails":  testmgr.TestCaseStatusFailed,
		"panels.skips":  testmgr.TestCaseStatusSkipped,
		"panels.panics": testmgr.TestCaseStatusError,
		"panels.errors": testmgr.TestCaseStatusError,
	}, statuses(result))
	assert.Equal(t, []string{"passes", "panels.fails", "panels.skips", "panels.panics", "panels.errors"}, finished)

	cases := result.TestCases()
	assert.Equal(t, "panel did not open", cases[1].Reason())
	assert.ErrorAs(t, cases[3].Err(), new(testerror.PanicError))
}

func TestImmediateRunnerRejectsDeferred(t *testing.T) {
	r := NewImmediate(Options{Host: host.NewManualLoop(), Logger: quietLogger()})
	result := r.Run(core.NewSuite("root", deferredAfter("waits", 0, nil)))

	require.Len(t, result.TestCases(), 1)
	tc := result.TestCases()[0]
	assert.Equal(t, testmgr.TestCaseStatusError, tc.Status())
	assert.ErrorIs(t, tc.Err(), errDeferredInImmediate)
	assert.True(t, r.Finished())
}

func TestImmediateRunnerFailFast(t *testing.T) {
	r := NewImmediate(Options{Host: host.NewManualLoop(), Logger: quietLogger(), FailFast: true})
	result := r.Run(core.NewSuite("root",
		core.Func("fails", func(core.CaseContext) error { return core.Failf("nope") }),
		pass("later"),
	))

	assert.Equal(t, map[string]testmgr.TestCaseStatus{
		"fails": testmgr.TestCaseStatusFailed,
		"later": testmgr.TestCaseStatusNotRun,
	}, statuses(result))
}

type fixture struct {
	setupErr error
	calls    []string

	name     string
	cleanups *[]string
}

func (f *fixture) Setup(core.SetupCleanupContext) error {
	f.calls = append(f.calls, "setup")
	return f.setupErr
}

func (f *fixture) Cleanup(core.SetupCleanupContext) error {
	f.calls = append(f.calls, "cleanup")
	if f.cleanups != nil {
		*f.cleanups = append(*f.cleanups, f.name)
	}
	return nil
}

func TestSuiteFixtures(t *testing.T) {
	ok := &fixture{}
	okSuite := core.NewSuite("ok", pass("a"))
	okSuite.SetFixture(ok)

	broken := &fixture{setupErr: errors.New("no display")}
	brokenSuite := core.NewSuite("broken", pass("b"), pass("c"))
	brokenSuite.SetFixture(broken)

	r := NewImmediate(Options{Host: host.NewManualLoop(), Logger: quietLogger()})
	result := r.Run(core.NewSuite("root", okSuite, brokenSuite))

	assert.Equal(t, []string{"setup", "cleanup"}, ok.calls)
	assert.Equal(t, []string{"setup"}, broken.calls)
	assert.Equal(t, map[string]testmgr.TestCaseStatus{
		"ok.a":     testmgr.TestCaseStatusPassed,
		"broken.b": testmgr.TestCaseStatusError,
		"broken.c": testmgr.TestCaseStatusError,
	}, statuses(result))

	var se *setupError
	assert.ErrorAs(t, result.TestCases()[1].Err(), &se)
}

func TestDeferringRunnerWaitsForCompletions(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		t.Run(fmt.Sprintf("legacy=%t", legacy), func(t *testing.T) {
			loop := host.NewManualLoop()
			opts := Options{Host: loop, Logger: quietLogger()}
			r := NewDeferring(opts)
			if legacy {
				r = NewLegacyDeferring(opts, 10*time.Millisecond)
			}

			var order []string
			r.opts.OnCaseFinished = func(tc *testmgr.TestCase) {
				order = append(order, tc.FullName())
			}

			suite := core.NewSuite("root",
				deferredAfter("slow", 300*time.Millisecond, nil),
				pass("sync"),
				core.NewSuite("nested",
					deferredAfter("fails", 100*time.Millisecond, core.Failf("no event")),
				),
			)

			result := r.Run(suite)
			assert.False(t, r.Finished())
			assert.Equal(t, []string{"sync"}, order, "deferred cases must not block siblings")

			st := statuses(result)
			assert.Equal(t, testmgr.TestCaseStatusPending, st["slow"])
			assert.Equal(t, testmgr.TestCaseStatusPending, st["nested.fails"])

			loop.Advance(200 * time.Millisecond)
			assert.False(t, r.Finished())
			assert.Equal(t, testmgr.TestCaseStatusFailed, statuses(result)["nested.fails"])

			loop.Advance(200 * time.Millisecond)
			assert.True(t, r.Finished())
			assert.True(t, result.Finished())
			assert.False(t, result.Forced())
			assert.Equal(t, []string{"sync", "nested.fails", "slow"}, order)
			assert.Empty(t, result.Unfinished())
		})
	}
}

func TestDeferringRunnerSynchronousSuite(t *testing.T) {
	r := NewDeferring(Options{Host: host.NewManualLoop(), Logger: quietLogger()})
	result := r.Run(core.NewSuite("root", pass("a"), pass("b")))

	assert.True(t, r.Finished())
	assert.True(t, result.Successful())
}

func TestDeferringRunnerEmptySuite(t *testing.T) {
	r := NewDeferring(Options{Host: host.NewManualLoop(), Logger: quietLogger()})
	result := r.Run(core.NewSuite("root"))

	assert.True(t, r.Finished())
	assert.Empty(t, result.TestCases())
}

func TestDeferringRunnerResolvedInsideBegin(t *testing.T) {
	r := NewDeferring(Options{Host: host.NewManualLoop(), Logger: quietLogger()})
	result := r.Run(core.NewSuite("root",
		core.DeferredFunc("instant", func(_ core.CaseContext, c *core.Completion) { c.Pass() }),
		core.DeferredFunc("fails_inline", func(ctx core.CaseContext, _ *core.Completion) {
			ctx.Fail("before yielding")
		}),
		&nilCompletion{},
	))

	assert.True(t, r.Finished())
	assert.Equal(t, map[string]testmgr.TestCaseStatus{
		"instant":       testmgr.TestCaseStatusPassed,
		"fails_inline":  testmgr.TestCaseStatusFailed,
		"no_completion": testmgr.TestCaseStatusError,
	}, statuses(result))
}

type nilCompletion struct{}

func (*nilCompletion) Name() string                          { return "no_completion" }
func (*nilCompletion) Begin(core.CaseContext) *core.Completion { return nil }

func TestDeferringRunnerLateFail(t *testing.T) {
	loop := host.NewManualLoop()
	r := NewDeferring(Options{Host: loop, Logger: quietLogger()})
	result := r.Run(core.NewSuite("root",
		core.DeferredFunc("late", func(ctx core.CaseContext, _ *core.Completion) {
			ctx.Host().SetTimeout(func() { ctx.Skip("event never came") }, time.Second)
		}),
	))
	assert.False(t, r.Finished())

	loop.Advance(time.Second)
	assert.True(t, r.Finished())
	tc := result.TestCases()[0]
	assert.Equal(t, testmgr.TestCaseStatusSkipped, tc.Status())
	assert.Equal(t, "event never came", tc.Reason())
}

func TestDeferringRunnerForceFinish(t *testing.T) {
	loop := host.NewManualLoop()
	r := NewDeferring(Options{Host: loop, Logger: quietLogger()})

	var cleanups []string
	outer := &fixture{name: "module", cleanups: &cleanups}
	inner := &fixture{name: "group", cleanups: &cleanups}
	done := &fixture{name: "quick", cleanups: &cleanups}

	var never *core.Completion
	group := core.NewSuite("group",
		core.DeferredFunc("never", func(_ core.CaseContext, c *core.Completion) { never = c }),
	)
	group.SetFixture(inner)
	quick := core.NewSuite("quick", pass("b"))
	quick.SetFixture(done)
	module := core.NewSuite("module", pass("a"), group, quick)
	module.SetFixture(outer)

	result := r.Run(core.NewSuite("root", module))
	require.False(t, r.Finished())
	assert.Equal(t, []string{"quick"}, cleanups)
	assert.Equal(t, []string{"setup"}, outer.calls)

	r.ForceFinish()
	assert.True(t, r.Finished())
	assert.True(t, result.Forced())
	assert.False(t, result.Successful())
	assert.Equal(t, testmgr.TestCaseStatusTimedOut, statuses(result)["module.group.never"])
	assert.Equal(t, []string{"setup", "cleanup"}, outer.calls)
	assert.Equal(t, []string{"setup", "cleanup"}, inner.calls)
	assert.Equal(t, []string{"setup", "cleanup"}, done.calls)
	assert.Equal(t, []string{"quick", "group", "module"}, cleanups, "abandoned suites clean up innermost first")

	// a completion arriving afterwards changes nothing
	never.Pass()
	assert.Equal(t, testmgr.TestCaseStatusTimedOut, statuses(result)["module.group.never"])

	// forcing twice is harmless
	r.ForceFinish()
	assert.True(t, result.Forced())
	assert.Equal(t, []string{"setup", "cleanup"}, outer.calls)
}

func TestDeferringRunnerSuiteCleanupWaitsForChildren(t *testing.T) {
	loop := host.NewManualLoop()
	f := &fixture{}
	suite := core.NewSuite("panels", deferredAfter("waits", time.Second, nil))
	suite.SetFixture(f)

	r := NewDeferring(Options{Host: loop, Logger: quietLogger()})
	r.Run(core.NewSuite("root", suite))
	assert.Equal(t, []string{"setup"}, f.calls)

	loop.Advance(time.Second)
	assert.Equal(t, []string{"setup", "cleanup"}, f.calls)
	assert.True(t, r.Finished())
}

func TestDeferringRunnerFailFast(t *testing.T) {
	loop := host.NewManualLoop()
	r := NewDeferring(Options{Host: loop, Logger: quietLogger(), FailFast: true})
	result := r.Run(core.NewSuite("root",
		core.Func("fails", func(core.CaseContext) error { return errors.New("broken") }),
		deferredAfter("later", time.Second, nil),
	))

	assert.True(t, r.Finished())
	assert.Equal(t, map[string]testmgr.TestCaseStatus{
		"fails": testmgr.TestCaseStatusError,
		"later": testmgr.TestCaseStatusNotRun,
	}, statuses(result))
}
