package runner

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"hosttest/internal/testmgr"
	"hosttest/pkg/hosttest/core"
	"hosttest/pkg/hosttest/host"

	"github.com/sirupsen/logrus"
)

// caseContext implements core.CaseContext for one test case.
type caseContext struct {
	tc   *testmgr.TestCase
	host host.Host

	mu         sync.Mutex
	inline     bool
	outcome    error
	completion *core.Completion
}

func newCaseContext(tc *testmgr.TestCase, h host.Host) *caseContext {
	return &caseContext{tc: tc, host: h}
}

func (c *caseContext) Name() string {
	return c.tc.Name()
}

func (c *caseContext) Logger() *logrus.Logger {
	return c.tc.Logger()
}

func (c *caseContext) Host() host.Host {
	return c.host
}

func (c *caseContext) Context() context.Context {
	return c.tc.Context()
}

func (c *caseContext) Fail(reason string) {
	c.stop(core.Failf("%s", reason))
}

func (c *caseContext) Skip(reason string) {
	c.stop(core.Skipf("%s", reason))
}

func (c *caseContext) stop(outcome error) {
	c.mu.Lock()
	inline := c.inline
	completion := c.completion
	if inline && c.outcome == nil {
		c.outcome = outcome
	}
	c.mu.Unlock()

	if inline {
		runtime.Goexit()
	}

	if completion != nil {
		completion.Resolve(outcome)
		return
	}

	c.tc.Logger().Warnf("Ignoring outcome reported outside of the test case: %v", outcome)
}

func (c *caseContext) setInline(inline bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inline = inline
}

// attach routes later calls to Fail and Skip to completion.
func (c *caseContext) attach(completion *core.Completion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completion = completion
}

// exitOutcome is the outcome of a case whose goroutine exited early.
func (c *caseContext) exitOutcome() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome != nil {
		return c.outcome
	}
	return errors.New("test case goroutine exited without reporting an outcome")
}

// fixtureContext implements core.SetupCleanupContext.
type fixtureContext struct {
	name string
	log  *logrus.Logger
	host host.Host
}

func (c *fixtureContext) Name() string {
	return c.name
}

func (c *fixtureContext) Logger() *logrus.Logger {
	return c.log
}

func (c *fixtureContext) Host() host.Host {
	return c.host
}
