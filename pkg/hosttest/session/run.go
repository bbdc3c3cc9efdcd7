package session

import (
	"sync"

	"hosttest/internal/reporter"
	"hosttest/internal/testmgr"
)

// Run is the handle of a started run.
type Run struct {
	done chan struct{}

	mu      sync.Mutex
	result  *testmgr.RunResult
	summary *reporter.TestSummary
	err     error
}

func newRun() *Run {
	return &Run{done: make(chan struct{})}
}

func (r *Run) finish(result *testmgr.RunResult, summary *reporter.TestSummary, err error) {
	r.mu.Lock()
	r.result = result
	r.summary = summary
	r.err = err
	r.mu.Unlock()

	close(r.done)
}

// Done is closed once teardown completed.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Err returns the fault that stopped the run before its cases could run, if
// any. Failing cases are not errors.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Result returns the recorded cases, nil if the run faulted.
func (r *Run) Result() *testmgr.RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Successful returns whether the run completed and no case went bad.
func (r *Run) Successful() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err == nil && r.result != nil && r.result.Successful()
}

// Forced returns whether the run was given up on at the poll ceiling.
func (r *Run) Forced() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result != nil && r.result.Forced()
}

// Summary returns the one line summary of the run, e.g.
// "failed: 1; passed: 3; total: 4".
func (r *Run) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.summary == nil {
		return ""
	}
	return r.summary.Summary()
}
