// Package cleanup decides when a run is over and performs its teardown
// exactly once.
package cleanup

import (
	"sync"
	"time"

	"hosttest/pkg/hosttest/host"

	"github.com/sirupsen/logrus"
)

const (
	DefaultInterval = 500 * time.Millisecond
	DefaultCeiling  = 600
)

// Finisher is the part of a runner the scheduler observes.
type Finisher interface {
	Finished() bool
}

// ForceFinisher is implemented by runners that can give up on a run.
type ForceFinisher interface {
	ForceFinish()
}

// Scheduler polls a runner on the host until the run is over, then runs the
// cleanup function. Each check is a separate host callback; the scheduler
// never blocks waiting.
type Scheduler struct {
	host     host.Scheduler
	interval time.Duration
	ceiling  int
	log      *logrus.Logger

	once sync.Once
}

func New(h host.Scheduler, interval time.Duration, ceiling int, log *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		host:     h,
		interval: interval,
		ceiling:  ceiling,
		log:      log,
	}
}

// Schedule runs check #1 right away. cleanup runs once: if the run is not
// deferred, if runner is nil, once runner reports it finished, or when the
// ceiling-th check is reached, in which case the run is forced to finish
// first.
func (s *Scheduler) Schedule(deferred bool, runner Finisher, cleanup func()) {
	s.check(1, deferred, runner, cleanup)
}

func (s *Scheduler) check(n int, deferred bool, runner Finisher, cleanup func()) {
	switch {
	case !deferred, runner == nil:
		s.log.Debugf("Cleanup check %d: nothing to wait for", n)
	case runner.Finished():
		s.log.Debugf("Cleanup check %d: run finished", n)
	case n >= s.ceiling:
		s.log.Warnf("Cleanup check %d: run did not finish after %d checks, forcing it", n, s.ceiling)
		if ff, ok := runner.(ForceFinisher); ok {
			ff.ForceFinish()
		}
	default:
		s.log.Tracef("Cleanup check %d: run still pending", n)
		s.host.SetTimeout(func() {
			s.check(n+1, deferred, runner, cleanup)
		}, s.interval)
		return
	}

	s.once.Do(cleanup)
}
