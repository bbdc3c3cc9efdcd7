package runner

import (
	"errors"
	"sync/atomic"
	"time"

	"hosttest/internal/testmgr"
	"hosttest/pkg/hosttest/core"
)

const (
	// DefaultLegacyPollInterval is how often the legacy runner re-checks
	// pending completions.
	DefaultLegacyPollInterval = 50 * time.Millisecond

	forcedFinishReason = "forced finish: the run did not complete in time"
)

var errNoCompletion = errors.New("deferrable test case returned no completion")

// suiteNode tracks the children of a suite that have not reached a final
// status yet. A suite is done once all of its children were launched and
// every one of them is done.
type suiteNode struct {
	suite       *core.Suite
	parent      *suiteNode
	outstanding int
	launched    bool
	done        bool
}

type pendingCase struct {
	tc         *testmgr.TestCase
	node       *suiteNode
	completion *core.Completion
}

// DeferringRunner runs suites whose cases may complete on a later host tick.
// Synchronous cases complete inline. Deferrable cases are begun, left
// PENDING, and the runner moves on to the next sibling right away.
type DeferringRunner struct {
	base

	legacy       bool
	pollInterval time.Duration

	// guarded by base.mu
	pending []pendingCase
	polling bool
	nodes   []*suiteNode

	finished atomic.Bool
}

// NewDeferring returns a runner that is notified by each case's completion.
func NewDeferring(opts Options) *DeferringRunner {
	return &DeferringRunner{base: newBase(opts)}
}

// NewLegacyDeferring returns a runner that re-checks pending completions on
// a host timer every pollInterval.
func NewLegacyDeferring(opts Options, pollInterval time.Duration) *DeferringRunner {
	if pollInterval <= 0 {
		pollInterval = DefaultLegacyPollInterval
	}
	return &DeferringRunner{
		base:         newBase(opts),
		legacy:       true,
		pollInterval: pollInterval,
	}
}

func (r *DeferringRunner) Finished() bool {
	return r.finished.Load()
}

func (r *DeferringRunner) Run(suite *core.Suite) *testmgr.RunResult {
	r.finished.Store(false)
	r.start()
	r.mu.Lock()
	r.nodes = nil
	r.mu.Unlock()

	r.runSuite(suite, nil, "")
	return r.result
}

// ForceFinish gives up on the run: every case that has not reached a final
// status is marked TIMEOUT, suites still waiting on children are cleaned up
// innermost first, and the run is finished as forced.
func (r *DeferringRunner) ForceFinish() {
	if r.result == nil || r.finished.Load() {
		return
	}

	for _, tc := range r.result.Unfinished() {
		if tc.MarkTimedOut(forcedFinishReason) {
			r.closed(tc)
		}
	}

	r.mu.Lock()
	r.pending = nil
	var open []*suiteNode
	for _, node := range r.nodes {
		if !node.done {
			node.done = true
			open = append(open, node)
		}
	}
	r.mu.Unlock()

	// nodes are recorded parent before child
	for i := len(open) - 1; i >= 0; i-- {
		if open[i].suite != nil {
			r.log.Debugf("Suite '%s' abandoned", open[i].suite.Name())
			r.cleanupSuite(open[i].suite)
		}
	}

	r.log.Warn("Forced the run to finish")
	r.finish(true)
}

func (r *DeferringRunner) finish(forced bool) {
	r.result.Finish(forced)
	r.finished.Store(true)
}

func (r *DeferringRunner) runSuite(suite *core.Suite, parent *suiteNode, module string) {
	node := &suiteNode{suite: suite, parent: parent}
	r.mu.Lock()
	r.nodes = append(r.nodes, node)
	if parent != nil {
		parent.outstanding++
	}
	r.mu.Unlock()

	if r.setupSuite(suite, module) {
		for _, t := range suite.Tests() {
			if sub, ok := t.(*core.Suite); ok {
				r.runSuite(sub, node, moduleName(module, sub.Name()))
				continue
			}
			r.runCase(t, node, module)
		}
	} else {
		// Without setup there is nothing to clean up either.
		node.suite = nil
	}

	r.mu.Lock()
	node.launched = true
	r.mu.Unlock()
	r.checkDone(node)
}

func (r *DeferringRunner) runCase(t core.Test, node *suiteNode, module string) {
	tc := r.result.NewTestCase(t.Name(), module)
	if r.bailed() {
		r.skipNotRun(tc)
		return
	}

	if moded, ok := t.(core.Moded); ok {
		r.log.WithField("mode", moded.Mode().String()).Tracef("Starting '%s'", tc.FullName())
	}
	tc.Start()

	switch c := t.(type) {
	case core.DeferrableCase:
		r.beginCase(c, tc, node)
	case core.TestCase:
		ctx := newCaseContext(tc, r.opts.Host)
		r.closeFromError(tc, execute(ctx, func() error { return c.Run(ctx) }))
	}
}

func (r *DeferringRunner) beginCase(c core.DeferrableCase, tc *testmgr.TestCase, node *suiteNode) {
	ctx := newCaseContext(tc, r.opts.Host)

	var completion *core.Completion
	err := execute(ctx, func() error {
		completion = c.Begin(ctx)
		return nil
	})

	switch {
	case err != nil:
		r.closeFromError(tc, err)
		return
	case completion == nil:
		r.closeFromError(tc, errNoCompletion)
		return
	}

	ctx.attach(completion)
	tc.MarkPending()

	r.mu.Lock()
	node.outstanding++
	r.mu.Unlock()

	if r.legacy {
		r.watch(pendingCase{tc: tc, node: node, completion: completion})
		return
	}

	completion.OnDone(func(err error) {
		r.settle(tc, node, err)
	})
}

// settle records the resolution of a pending case.
func (r *DeferringRunner) settle(tc *testmgr.TestCase, node *suiteNode, err error) {
	if r.finished.Load() {
		r.log.Debugf("Ignoring completion of '%s' after the run finished", tc.FullName())
		return
	}

	r.closeFromError(tc, err)

	r.mu.Lock()
	node.outstanding--
	r.mu.Unlock()
	r.checkDone(node)
}

// checkDone completes node, and then its ancestors, once every child is done.
func (r *DeferringRunner) checkDone(node *suiteNode) {
	for node != nil {
		r.mu.Lock()
		if node.done || !node.launched || node.outstanding > 0 {
			r.mu.Unlock()
			return
		}
		node.done = true
		parent := node.parent
		if parent != nil {
			parent.outstanding--
		}
		r.mu.Unlock()

		if node.suite != nil {
			r.log.Debugf("Suite '%s' done", node.suite.Name())
			r.cleanupSuite(node.suite)
		}

		if parent == nil {
			if !r.finished.Load() {
				r.finish(false)
			}
			return
		}
		node = parent
	}
}

// watch adds p to the cases the legacy poller re-checks and arms the poller
// if it is idle.
func (r *DeferringRunner) watch(p pendingCase) {
	r.mu.Lock()
	r.pending = append(r.pending, p)
	arm := !r.polling
	r.polling = true
	r.mu.Unlock()

	if arm {
		r.opts.Host.SetTimeout(r.poll, r.pollInterval)
	}
}

func (r *DeferringRunner) poll() {
	r.mu.Lock()
	var resolved []pendingCase
	remaining := r.pending[:0]
	for _, p := range r.pending {
		if p.completion.Pending() {
			remaining = append(remaining, p)
		} else {
			resolved = append(resolved, p)
		}
	}
	r.pending = remaining
	r.mu.Unlock()

	for _, p := range resolved {
		r.settle(p.tc, p.node, p.completion.Err())
	}

	r.mu.Lock()
	rearm := len(r.pending) > 0 && !r.finished.Load()
	r.polling = rearm
	r.mu.Unlock()

	if rearm {
		r.opts.Host.SetTimeout(r.poll, r.pollInterval)
	}
}
