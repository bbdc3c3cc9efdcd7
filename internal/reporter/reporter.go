package reporter

import (
	"fmt"
	"io"
	"sync"

	"hosttest/internal/devops"
	"hosttest/internal/testmgr"
)

// Reporter writes human readable results of a run to a stream.
//
// At verbosity 0 only the final report is written. At verbosity 1 a single
// character is written per finished case. At verbosity 2 and above one line
// is written per finished case.
type Reporter struct {
	mu        sync.Mutex
	w         io.Writer
	verbosity int
	colored   bool
	width     int
	devops    *devops.Printer
	column    int
}

type Option func(*Reporter)

// WithColor enables colored status words.
func WithColor(colored bool) Option {
	return func(r *Reporter) {
		r.colored = colored
	}
}

// WithWidth sets the width of separator lines.
func WithWidth(width int) Option {
	return func(r *Reporter) {
		if width > 0 {
			r.width = width
		}
	}
}

// WithTerminal sizes separators after the terminal behind fd.
func WithTerminal(fd int) Option {
	return func(r *Reporter) {
		r.width = termWidth(fd)
	}
}

// WithAzureDevops wraps failure blocks in collapsible groups and logs an
// issue per bad test case.
func WithAzureDevops(enabled bool) Option {
	return func(r *Reporter) {
		if enabled {
			r.devops = devops.NewPrinter(r.w)
		}
	}
}

func New(w io.Writer, verbosity int, opts ...Option) *Reporter {
	r := &Reporter{
		w:         w,
		verbosity: verbosity,
		width:     defaultWidth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reporter) status(s testmgr.TestCaseStatus) string {
	if r.colored {
		return s.ColorString()
	}
	return s.String()
}

// CaseFinished reports a single case that reached a terminal status.
func (r *Reporter) CaseFinished(tc *testmgr.TestCase) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.verbosity <= 0:
		return
	case r.verbosity == 1:
		fmt.Fprint(r.w, shortStatus(tc.Status()))
		r.column++
		if r.column >= r.width {
			fmt.Fprintln(r.w)
			r.column = 0
		}
	default:
		line := fmt.Sprintf("%s ... %s", tc.FullName(), r.status(tc.Status()))
		if reason := detail(tc); reason != "" && !tc.Status().Passed() {
			line += fmt.Sprintf(" (%s)", reason)
		}
		fmt.Fprintln(r.w, line)
	}
}

func shortStatus(s testmgr.TestCaseStatus) string {
	switch s {
	case testmgr.TestCaseStatusPassed:
		return "."
	case testmgr.TestCaseStatusFailed:
		return "F"
	case testmgr.TestCaseStatusError:
		return "E"
	case testmgr.TestCaseStatusSkipped:
		return "s"
	case testmgr.TestCaseStatusTimedOut:
		return "t"
	case testmgr.TestCaseStatusNotRun:
		return "-"
	default:
		return "?"
	}
}

// PrintReport writes the failure details and the final summary of a run.
func (r *Reporter) PrintReport(result *testmgr.RunResult) TestSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.column > 0 {
		fmt.Fprintln(r.w)
		r.column = 0
	}

	summary := newSummaryFromResult(result)

	for _, tc := range result.TestCases() {
		if !tc.Status().IsBad() {
			continue
		}
		r.printFailure(tc)
	}

	fmt.Fprintln(r.w, separator(SEPARATOR_CHAR, r.width))
	fmt.Fprintf(r.w, "Ran %d %s in %.3fs\n", summary.total, plural(summary.total, "test", "tests"), result.Duration().Seconds())
	if summary.forced {
		fmt.Fprintln(r.w, "Run did not finish in time: forced finish")
	}
	fmt.Fprintln(r.w)

	status := summary.Status().String()
	if r.colored {
		status = summary.Status().StringColor()
	}
	fmt.Fprintf(r.w, "%s (%s)\n", status, summary.Summary())

	return summary
}

func (r *Reporter) printFailure(tc *testmgr.TestCase) {
	if r.devops != nil {
		r.devops.LogError("%s: %s", tc.FullName(), tc.Status().String())
		group := r.devops.OpenGroup(tc.FullName())
		defer group.Close()
	}

	fmt.Fprintln(r.w, separator(HEAVY_SEPARATOR_CHAR, r.width))
	fmt.Fprintln(r.w, separatorWithTitle(fmt.Sprintf("%s: %s", tc.Status().String(), tc.FullName()), r.width))
	if reason := cleanText(detail(tc), r.colored); reason != "" {
		for _, line := range simpleWordWrap(reason, r.width-4) {
			fmt.Fprintf(r.w, "    %s\n", line)
		}
	}

	logs := tc.LogLines()
	if len(logs) == 0 {
		return
	}
	fmt.Fprintln(r.w, "Collected logs:")
	for _, line := range logs {
		fmt.Fprintf(r.w, "    %s\n", cleanText(line, r.colored))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// detail is the reason a case was closed with, falling back to its error.
func detail(tc *testmgr.TestCase) string {
	if reason := tc.Reason(); reason != "" {
		return reason
	}
	if err := tc.Err(); err != nil {
		return err.Error()
	}
	return ""
}
