package reporter

import (
	"github.com/fatih/color"
)

// TestSummaryStatus is the overall verdict printed on the last line of a
// report.
type TestSummaryStatus int

const (
	TestStatusOk TestSummaryStatus = iota
	TestStatusFailed
	// The run was forced to finish at the poll ceiling with cases still
	// pending.
	TestStatusTimedOut
	TestStatusError
)

func (ts TestSummaryStatus) String() string {
	switch ts {
	case TestStatusOk:
		return "OK"
	case TestStatusFailed:
		return "FAILED"
	case TestStatusTimedOut:
		return "TIMED OUT"
	case TestStatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (ts TestSummaryStatus) StringColor() string {
	switch ts {
	case TestStatusOk:
		return color.GreenString(ts.String())
	case TestStatusFailed:
		return color.RedString(ts.String())
	case TestStatusTimedOut:
		return color.New(color.FgYellow, color.Bold).Sprint(ts.String())
	case TestStatusError:
		return color.New(color.FgRed, color.Bold).Sprint(ts.String())
	default:
		return ts.String()
	}
}

func (ts TestSummaryStatus) IsBad() bool {
	return ts != TestStatusOk
}
