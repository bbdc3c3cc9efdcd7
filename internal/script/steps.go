package script

import (
	"fmt"
	"os"
	"time"

	"hosttest/pkg/hosttest/core"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
)

// step is one instruction of a case. A step that suspends returns true and
// arranges for x.resume or x.resolve to be called on a later host tick.
type step interface {
	run(x *execution) (suspended bool, err error)
	suspends() bool
}

type immediateStep struct{}

func (immediateStep) suspends() bool {
	return false
}

type suspendingStep struct{}

func (suspendingStep) suspends() bool {
	return true
}

type printStep struct {
	immediateStep
	text string
}

func (s *printStep) run(*execution) (bool, error) {
	fmt.Fprintln(os.Stdout, s.text)
	return false, nil
}

type logStep struct {
	immediateStep
	text string
}

func (s *logStep) run(x *execution) (bool, error) {
	x.ctx.Logger().Info(s.text)
	return false, nil
}

type setStep struct {
	immediateStep
	vars map[string]any
}

func (s *setStep) run(x *execution) (bool, error) {
	for k, v := range s.vars {
		x.vars[k] = v
	}
	return false, nil
}

type assertStep struct {
	immediateStep
	source  string
	program *vm.Program
}

func (s *assertStep) run(x *execution) (bool, error) {
	ok, err := x.eval(s.program)
	if err != nil {
		return false, errors.Wrapf(err, "failed to evaluate '%s'", s.source)
	}
	if !ok {
		return false, core.Failf("assertion failed: %s", s.source)
	}
	return false, nil
}

type outcomeStep struct {
	immediateStep
	kind string
	text string
}

func (s *outcomeStep) run(*execution) (bool, error) {
	switch s.kind {
	case "fail":
		return false, core.Failf("%s", s.text)
	case "skip":
		return false, core.Skipf("%s", s.text)
	default:
		return false, errors.New(s.text)
	}
}

type emitStep struct {
	immediateStep
	event   string
	payload any
	after   time.Duration
}

func (s *emitStep) run(x *execution) (bool, error) {
	h := x.ctx.Host()
	if s.after == 0 {
		h.Events().Emit(s.event, s.payload)
		return false, nil
	}

	h.SetTimeout(func() {
		h.Events().Emit(s.event, s.payload)
	}, s.after)
	return false, nil
}

type yieldStep struct {
	suspendingStep
	delay time.Duration
}

func (s *yieldStep) run(x *execution) (bool, error) {
	x.ctx.Host().SetTimeout(x.resume, s.delay)
	return true, nil
}

type awaitStep struct {
	suspendingStep
	event   string
	timeout time.Duration
	as      string
}

func (s *awaitStep) run(x *execution) (bool, error) {
	h := x.ctx.Host()
	w := &waiter{x: x}

	w.setCancel(h.Events().Subscribe(s.event, func(payload any) {
		w.finish(func() {
			if s.as != "" {
				x.vars[s.as] = payload
			}
			x.resume()
		})
	}))

	h.SetTimeout(func() {
		w.finish(func() {
			x.resolve(core.Failf("timed out after %s waiting for event '%s'", s.timeout, s.event))
		})
	}, s.timeout)

	return true, nil
}

type waitUntilStep struct {
	suspendingStep
	source   string
	program  *vm.Program
	timeout  time.Duration
	interval time.Duration
}

func (s *waitUntilStep) run(x *execution) (bool, error) {
	ok, err := x.eval(s.program)
	if err != nil || ok {
		return false, s.wrap(err)
	}

	var elapsed time.Duration
	var check func()
	check = func() {
		if !x.active() {
			return
		}

		ok, err := x.eval(s.program)
		switch {
		case err != nil:
			x.resolve(s.wrap(err))
		case ok:
			x.resume()
		default:
			elapsed += s.interval
			if elapsed >= s.timeout {
				x.resolve(core.Failf("timed out after %s waiting for '%s'", s.timeout, s.source))
				return
			}
			x.ctx.Host().SetTimeout(check, s.interval)
		}
	}

	x.ctx.Host().SetTimeout(check, s.interval)
	return true, nil
}

func (s *waitUntilStep) wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "failed to evaluate '%s'", s.source)
}

func (x *execution) eval(program *vm.Program) (bool, error) {
	env := make(map[string]any, len(x.vars)+1)
	for k, v := range x.vars {
		env[k] = v
	}
	events := x.ctx.Host().Events()
	env["emitted"] = func(name string) int { return events.Count(name) }

	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}
