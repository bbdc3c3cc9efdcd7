// Package session runs the test suite of a package inside a host.
//
// A run discovers the suite, executes it with the runner the configuration
// asks for, and once the run is over performs its teardown exactly once:
// loaded modules are purged, the progress indicator stops, cleanup hooks
// run, console capture is released, the completion banner is written to
// transient streams and the stream is closed.
package session

import (
	"fmt"
	"runtime/debug"

	"hosttest/internal/capture"
	"hosttest/internal/cleanup"
	"hosttest/internal/filter"
	"hosttest/internal/loader"
	"hosttest/internal/progress"
	"hosttest/internal/reporter"
	"hosttest/internal/runner"
	"hosttest/internal/testerror"
	"hosttest/internal/testmgr"
	"hosttest/pkg/hosttest/config"
	"hosttest/pkg/hosttest/host"
	"hosttest/pkg/hosttest/stream"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// DoneMessage is written at the end of every transient stream. CI harnesses
// scan for it to know the report is complete.
const DoneMessage = "hosttest: Done.\n"

type Options struct {
	// Package is the name of the package under test.
	Package string

	// Root is the package directory. Tests are discovered in its tests_dir.
	Root string

	Config config.RunConfiguration

	// Stream receives the report. The run closes it.
	Stream stream.Stream

	// Hooks run during teardown, in order.
	Hooks []func()

	// AzureDevops adds Azure DevOps logging commands to the report.
	AzureDevops bool

	// Filter restricts the run to the cases whose dotted names start with
	// one of the patterns. Empty runs everything.
	Filter []string
}

type Session struct {
	host host.Host
	log  *logrus.Logger
}

func New(h host.Host, log *logrus.Logger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{host: h, log: log}
}

// Start runs the package described by opts. With asynchronous set the run
// executes on a background goroutine and Start returns immediately;
// otherwise Start returns once every case was started. Either way the
// returned run is done only after teardown.
func (s *Session) Start(opts Options) *Run {
	run := newRun()
	if opts.Config.Asynchronous {
		go s.execute(opts, run)
	} else {
		s.execute(opts, run)
	}
	return run
}

func (s *Session) execute(opts Options, run *Run) {
	cfg := opts.Config
	out := opts.Stream

	var console *capture.Capture
	if cfg.CaptureConsole {
		console = s.acquireConsole(out)
	}

	indicator := progress.New(s.host, fmt.Sprintf("Testing %s", opts.Package))
	indicator.Start()

	rep := reporter.New(out, cfg.Verbosity, reporterOptions(out, opts.AzureDevops)...)
	ld := loader.New(cfg.Deferred, s.log, loader.WithConditionTimeout(cfg.ConditionTimeout))
	testsPath := cfg.TestsPath(opts.Root)

	r, result, err := s.runSuite(ld, testsPath, cfg, rep, filter.New(opts.Filter))
	if err != nil {
		s.log.WithError(err).Errorf("Run of '%s' failed", opts.Package)
		if !out.Closed() {
			fmt.Fprintf(out, "ERROR: %s\n", err)
		}
		// Nothing is left to wait for.
		r = nil
		result = nil
	}

	var finisher cleanup.Finisher
	if r != nil {
		finisher = r
	}

	sched := cleanup.New(s.host, cfg.PollInterval, cfg.PollCeiling, s.log)
	sched.Schedule(cfg.Deferred, finisher, func() {
		var summary *reporter.TestSummary
		if result != nil {
			sum := rep.PrintReport(result)
			summary = &sum
		}

		ld.Purge(testsPath)
		indicator.Stop()

		for _, hook := range opts.Hooks {
			s.runHook(hook)
		}

		if console != nil {
			console.Release()
		}

		if !stream.IsPanel(out) && !out.Closed() {
			fmt.Fprint(out, "\n")
			fmt.Fprint(out, DoneMessage)
		}

		if closeErr := out.Close(); closeErr != nil {
			s.log.WithError(closeErr).Warn("Failed to close the report stream")
		}

		s.log.Infof("Run of '%s' done", opts.Package)
		run.finish(result, summary, err)
	})
}

// runSuite discovers and runs the suite. Faults escaping the runner are
// returned as errors rather than propagated.
func (s *Session) runSuite(
	ld *loader.Loader,
	testsPath string,
	cfg config.RunConfiguration,
	rep *reporter.Reporter,
	selected *filter.Filter,
) (r runner.Runner, result *testmgr.RunResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &testerror.RunnerFault{Err: testerror.NewPanicError(p, debug.Stack())}
		}
	}()

	suite := ld.Discover(testsPath, cfg.Pattern)
	s.log.Debugf("Discovered %d test cases in '%s'", suite.CountCases(), testsPath)

	if !selected.Empty() {
		suite = selected.Apply(suite)
		s.log.Debugf("Selected %d test cases", suite.CountCases())
	}

	runnerOpts := runner.Options{
		Host:           s.host,
		Logger:         s.log,
		FailFast:       cfg.FailFast,
		OnCaseFinished: rep.CaseFinished,
	}

	switch {
	case cfg.Deferred && cfg.LegacyRunner:
		r = runner.NewLegacyDeferring(runnerOpts, runner.DefaultLegacyPollInterval)
	case cfg.Deferred:
		r = runner.NewDeferring(runnerOpts)
	default:
		if err := runner.VerifySuite(suite); err != nil {
			return nil, nil, err
		}
		r = runner.NewImmediate(runnerOpts)
	}

	return r, r.Run(suite), nil
}

func (s *Session) acquireConsole(out stream.Stream) *capture.Capture {
	if _, ok := out.(*stream.Console); ok {
		s.log.Warn("Console capture is ignored when the report is written to the console")
		return nil
	}

	c, err := capture.Acquire(out, s.log)
	if err != nil {
		s.log.WithError(err).Warn("Running without console capture")
		return nil
	}
	return c
}

func (s *Session) runHook(hook func()) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Errorf("Cleanup hook panicked: %v", p)
		}
	}()
	hook()
}

func reporterOptions(out stream.Stream, azureDevops bool) []reporter.Option {
	opts := []reporter.Option{reporter.WithAzureDevops(azureDevops)}

	if c, ok := out.(*stream.Console); ok {
		fd := int(c.Fd())
		if term.IsTerminal(fd) {
			opts = append(opts, reporter.WithColor(true), reporter.WithTerminal(fd))
		}
	}

	return opts
}
