package testmgr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"hosttest/pkg/hosttest/core"

	"github.com/sirupsen/logrus"
)

type TestCase struct {
	name   string
	module string
	index  uint
	parent *RunResult

	mu        sync.Mutex
	startTime time.Time
	endTime   time.Time
	status    TestCaseStatus
	reason    string
	err       error

	log       *logrus.Logger
	logBuffer lockedBuffer

	ctx    context.Context
	cancel context.CancelFunc
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// Implementer of logrus.Hook interface to tee log messages from the test case
// logger to the run logger
type testCaseLogTee struct {
	runLogger  *logrus.Logger
	testCaseId string
}

func (tee testCaseLogTee) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (tee testCaseLogTee) Fire(entry *logrus.Entry) error {
	// Make a shallow copy so that we can modify the logger pointer
	newEntry := tee.runLogger.WithFields(entry.Data)
	newEntry.Caller = entry.Caller
	newEntry.Log(entry.Level, fmt.Sprintf("[%s] > %s", tee.testCaseId, entry.Message))
	return nil
}

func newTestCase(name, module string, index uint, parent *RunResult) *TestCase {
	ctx, cancel := context.WithCancel(context.Background())
	tc := &TestCase{
		name:   name,
		module: module,
		index:  index,
		parent: parent,
		status: TestCaseStatusNotStarted,
		log:    logrus.New(),
		ctx:    ctx,
		cancel: cancel,
	}

	tc.log.SetLevel(logrus.TraceLevel)
	tc.log.SetOutput(&tc.logBuffer)
	tc.log.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: false,
	})
	tc.log.AddHook(testCaseLogTee{
		runLogger:  parent.log,
		testCaseId: tc.ID(),
	})

	return tc
}

func (tc *TestCase) ID() string {
	return fmt.Sprintf("%04d:%s", tc.index, tc.FullName())
}

func (tc *TestCase) Name() string {
	return tc.name
}

func (tc *TestCase) Module() string {
	return tc.module
}

// FullName returns the name qualified by its module, if any.
func (tc *TestCase) FullName() string {
	if tc.module == "" {
		return tc.name
	}
	return tc.module + "." + tc.name
}

func (tc *TestCase) Status() TestCaseStatus {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.status
}

// Reason returns the failure, skip or timeout reason, if any.
func (tc *TestCase) Reason() string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.reason
}

// Err returns the error the test case was closed with, if any.
func (tc *TestCase) Err() error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.err
}

func (tc *TestCase) Logger() *logrus.Logger {
	return tc.log
}

// Context is cancelled once the test case reaches a terminal status.
func (tc *TestCase) Context() context.Context {
	return tc.ctx
}

func (tc *TestCase) LogLines() []string {
	raw := strings.TrimRight(string(tc.logBuffer.Bytes()), "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

func (tc *TestCase) RunTime() time.Duration {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	switch {
	case tc.startTime.IsZero():
		return 0
	case !tc.status.IsTerminal():
		return time.Since(tc.startTime)
	default:
		return tc.endTime.Sub(tc.startTime)
	}
}

// Start moves the test case from NOT STARTED to RUNNING.
func (tc *TestCase) Start() bool {
	return tc.transition(TestCaseStatusNotStarted, TestCaseStatusRunning)
}

// MarkPending moves a running test case to PENDING: it has started and is
// waiting for the host to complete it.
func (tc *TestCase) MarkPending() bool {
	return tc.transition(TestCaseStatusRunning, TestCaseStatusPending)
}

func (tc *TestCase) transition(from, to TestCaseStatus) bool {
	tc.mu.Lock()
	if tc.status != from {
		current := tc.status
		tc.mu.Unlock()
		tc.parent.log.Warnf(
			"Attempted to move test case '%s' to '%s' from '%s', but it is '%s'. Ignoring.",
			tc.FullName(),
			to.String(),
			from.String(),
			current.String(),
		)
		return false
	}

	tc.status = to
	if to == TestCaseStatusRunning {
		tc.startTime = time.Now()
	}
	tc.mu.Unlock()

	tc.parent.log.Tracef("[%s] %s -> %s", tc.ID(), from.String(), to.String())
	return true
}

// close moves the test case into a terminal status. It returns false, and
// changes nothing, if the test case was already closed.
func (tc *TestCase) close(status TestCaseStatus, reason string, err error) bool {
	if !status.IsTerminal() {
		panic("cannot close test case with a non terminal status")
	}

	tc.mu.Lock()
	if tc.status.IsTerminal() {
		current := tc.status
		tc.mu.Unlock()
		tc.parent.log.Warnf(
			"Attempted to close test case '%s' with status '%s', but it was already closed with status '%s'. Ignoring.",
			tc.FullName(),
			status.String(),
			current.String(),
		)
		return false
	}

	tc.status = status
	tc.reason = reason
	tc.err = err
	tc.endTime = time.Now()
	if tc.startTime.IsZero() {
		tc.startTime = tc.endTime
	}
	tc.mu.Unlock()

	tc.cancel()

	// Log the status to the test case logger
	localEntry := logrus.NewEntry(tc.log)

	if reason != "" {
		localEntry = localEntry.WithField("reason", reason)
	}

	if err != nil {
		localEntry = localEntry.WithError(err)
	}

	localEntry.Log(status.logLevel(), status.String())

	// Close this logger
	tc.log.SetOutput(io.Discard)

	// Log the status to the run logger
	tc.parent.log.
		WithField("testCase", tc.FullName()).
		WithField("status", status.String()).
		Logf(status.logLevel(), "%s: %s", tc.FullName(), status.String())

	return true
}

func (tc *TestCase) Pass() bool {
	return tc.close(TestCaseStatusPassed, "", nil)
}

func (tc *TestCase) Fail(reason string) bool {
	return tc.close(TestCaseStatusFailed, reason, nil)
}

func (tc *TestCase) FailFromError(err error) bool {
	return tc.close(TestCaseStatusFailed, err.Error(), err)
}

func (tc *TestCase) Error(err error) bool {
	return tc.close(TestCaseStatusError, "", err)
}

func (tc *TestCase) Skip(reason string) bool {
	return tc.close(TestCaseStatusSkipped, reason, nil)
}

// MarkTimedOut closes a test case the run gave up waiting for.
func (tc *TestCase) MarkTimedOut(reason string) bool {
	return tc.close(TestCaseStatusTimedOut, reason, nil)
}

// MarkNotRun closes a test case that was never started.
func (tc *TestCase) MarkNotRun(reason string) bool {
	return tc.close(TestCaseStatusNotRun, reason, nil)
}

// CloseFromError closes the test case according to the error a case returned
// or resolved its completion with.
func (tc *TestCase) CloseFromError(err error) bool {
	var (
		failure *core.FailureError
		skip    *core.SkipError
	)

	switch {
	case err == nil:
		return tc.Pass()
	case errors.As(err, &skip):
		return tc.Skip(skip.Reason)
	case errors.As(err, &failure):
		return tc.Fail(failure.Reason)
	default:
		return tc.Error(err)
	}
}
