package testmgr

import (
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type TestCaseStatus int

const (
	TestCaseStatusNotStarted TestCaseStatus = iota
	TestCaseStatusRunning
	TestCaseStatusPending
	TestCaseStatusPassed
	TestCaseStatusFailed
	TestCaseStatusError
	TestCaseStatusSkipped
	TestCaseStatusTimedOut
	TestCaseStatusNotRun
)

func (tcs TestCaseStatus) String() string {
	switch tcs {
	case TestCaseStatusNotStarted:
		return "NOT STARTED"
	case TestCaseStatusRunning:
		return "RUNNING"
	case TestCaseStatusPending:
		return "PENDING"
	case TestCaseStatusPassed:
		return "PASS"
	case TestCaseStatusFailed:
		return "FAIL"
	case TestCaseStatusError:
		return "ERROR"
	case TestCaseStatusSkipped:
		return "SKIP"
	case TestCaseStatusTimedOut:
		return "TIMEOUT"
	case TestCaseStatusNotRun:
		return "NOT RUN"
	default:
		return "UNKNOWN"
	}
}

func (tcs TestCaseStatus) ColorString() string {
	switch tcs {
	case TestCaseStatusPassed:
		return color.GreenString(tcs.String())
	case TestCaseStatusFailed, TestCaseStatusTimedOut:
		return color.RedString(tcs.String())
	case TestCaseStatusError:
		return color.New(color.FgRed, color.Bold).Sprint(tcs.String())
	case TestCaseStatusSkipped, TestCaseStatusNotRun:
		return color.YellowString(tcs.String())
	default:
		return tcs.String()
	}
}

func (tcs TestCaseStatus) logLevel() logrus.Level {
	switch tcs {
	case TestCaseStatusPassed:
		return logrus.InfoLevel
	case TestCaseStatusFailed, TestCaseStatusError, TestCaseStatusTimedOut:
		return logrus.ErrorLevel
	case TestCaseStatusSkipped, TestCaseStatusNotRun:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

func (tcs TestCaseStatus) IsRunning() bool {
	return tcs == TestCaseStatusRunning
}

func (tcs TestCaseStatus) IsPending() bool {
	return tcs == TestCaseStatusPending
}

// IsTerminal returns true once a test case can no longer change status.
func (tcs TestCaseStatus) IsTerminal() bool {
	return tcs >= TestCaseStatusPassed
}

func (tcs TestCaseStatus) Passed() bool {
	return tcs == TestCaseStatusPassed
}

func (tcs TestCaseStatus) Failed() bool {
	return tcs == TestCaseStatusFailed
}

func (tcs TestCaseStatus) Skipped() bool {
	return tcs == TestCaseStatusSkipped
}

func (tcs TestCaseStatus) Errored() bool {
	return tcs == TestCaseStatusError
}

func (tcs TestCaseStatus) TimedOut() bool {
	return tcs == TestCaseStatusTimedOut
}

// IsBad returns true if the test case status is Failed, Error or TimedOut.
func (tcs TestCaseStatus) IsBad() bool {
	return tcs == TestCaseStatusFailed || tcs == TestCaseStatusError || tcs == TestCaseStatusTimedOut
}
