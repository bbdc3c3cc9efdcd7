package testmgr

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RunResult accumulates the test cases of one run. It is owned by the active
// runner; everything else only reads it.
type RunResult struct {
	id  string
	log *logrus.Logger

	mu        sync.Mutex
	startTime time.Time
	endTime   time.Time
	testCases []*TestCase

	finished atomic.Bool
	forced   atomic.Bool
}

func NewRunResult(log *logrus.Logger) *RunResult {
	return &RunResult{
		id:        uuid.NewString(),
		log:       log,
		startTime: time.Now(),
		testCases: make([]*TestCase, 0),
	}
}

func (r *RunResult) ID() string {
	return r.id
}

func (r *RunResult) Logger() *logrus.Logger {
	return r.log
}

// NewTestCase records a new test case in NOT STARTED status.
func (r *RunResult) NewTestCase(name, module string) *TestCase {
	r.mu.Lock()
	defer r.mu.Unlock()

	testCase := newTestCase(name, module, uint(len(r.testCases)), r)
	r.testCases = append(r.testCases, testCase)
	return testCase
}

func (r *RunResult) TestCases() []*TestCase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*TestCase(nil), r.testCases...)
}

// Unfinished returns the test cases that have not reached a terminal status.
func (r *RunResult) Unfinished() []*TestCase {
	var out []*TestCase
	for _, tc := range r.TestCases() {
		if !tc.Status().IsTerminal() {
			out = append(out, tc)
		}
	}
	return out
}

// Finish marks the run as finished. forced records that the run was given up
// on rather than completed. Only the first call has an effect.
func (r *RunResult) Finish(forced bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished.Load() {
		return false
	}

	r.endTime = time.Now()
	r.forced.Store(forced)
	r.finished.Store(true)
	r.log.WithField("run", r.id).Debugf("Run finished (forced: %t)", forced)
	return true
}

func (r *RunResult) Finished() bool {
	return r.finished.Load()
}

func (r *RunResult) Forced() bool {
	return r.forced.Load()
}

func (r *RunResult) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.endTime.IsZero() {
		return time.Since(r.startTime)
	}
	return r.endTime.Sub(r.startTime)
}

// Successful returns whether no test case failed, errored or timed out.
func (r *RunResult) Successful() bool {
	for _, tc := range r.TestCases() {
		if tc.Status().IsBad() {
			return false
		}
	}
	return !r.Forced()
}
