package reporter

import (
	"fmt"
	"strings"

	"hosttest/internal/testmgr"
)

type TestSummary struct {
	total    int
	passed   int
	failed   int
	skipped  int
	notRun   int
	errored  int
	timedOut int
	forced   bool
}

func newSummaryFromResult(result *testmgr.RunResult) TestSummary {
	summary := TestSummary{forced: result.Forced()}

	for _, testCase := range result.TestCases() {
		summary.total++
		switch testCase.Status() {
		case testmgr.TestCaseStatusPassed:
			summary.passed++
		case testmgr.TestCaseStatusFailed:
			summary.failed++
		case testmgr.TestCaseStatusSkipped:
			summary.skipped++
		case testmgr.TestCaseStatusError:
			summary.errored++
		case testmgr.TestCaseStatusTimedOut:
			summary.timedOut++
		default:
			// A case that never reached a terminal status did not run to
			// completion.
			summary.notRun++
		}
	}

	return summary
}

func (s TestSummary) Status() TestSummaryStatus {
	if s.errored > 0 {
		return TestStatusError
	}
	if s.forced {
		return TestStatusTimedOut
	}
	if s.failed > 0 || s.timedOut > 0 {
		return TestStatusFailed
	}
	return TestStatusOk
}

func (s TestSummary) Summary() string {
	var out []string

	if s.failed > 0 {
		out = append(out, fmt.Sprintf("failed: %d", s.failed))
	}

	if s.errored > 0 {
		out = append(out, fmt.Sprintf("errored: %d", s.errored))
	}
	if s.timedOut > 0 {
		out = append(out, fmt.Sprintf("timedout: %d", s.timedOut))
	}
	if s.skipped > 0 {
		out = append(out, fmt.Sprintf("skipped: %d", s.skipped))
	}
	if s.notRun > 0 {
		out = append(out, fmt.Sprintf("notrun: %d", s.notRun))
	}

	out = append(out, fmt.Sprintf("passed: %d", s.passed))
	out = append(out, fmt.Sprintf("total: %d", s.total))

	return strings.Join(out, "; ")
}
