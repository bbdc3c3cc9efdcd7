package script

import (
	"runtime/debug"
	"sync"

	"hosttest/internal/testerror"
	"hosttest/pkg/hosttest/core"
)

type scriptCase struct {
	name  string
	mode  core.Mode
	steps []step
}

func (c *scriptCase) Name() string {
	return c.name
}

func (c *scriptCase) Mode() core.Mode {
	return c.mode
}

// Run executes a case that has no suspending steps.
func (c *scriptCase) Run(ctx core.CaseContext) error {
	x := newExecution(ctx, c.steps, nil)
	for _, s := range c.steps {
		if _, err := s.run(x); err != nil {
			return err
		}
	}
	return nil
}

// deferredScriptCase only implements core.DeferrableCase, so the immediate
// path can never run it.
type deferredScriptCase struct {
	c *scriptCase
}

func (d *deferredScriptCase) Name() string {
	return d.c.name
}

func (d *deferredScriptCase) Mode() core.Mode {
	return d.c.mode
}

func (d *deferredScriptCase) Begin(ctx core.CaseContext) *core.Completion {
	completion := core.NewCompletion()
	newExecution(ctx, d.c.steps, completion).resume()
	return completion
}

// execution is the state of one run of a deferrable case. Steps after a
// suspension continue on host callbacks.
type execution struct {
	ctx        core.CaseContext
	steps      []step
	pc         int
	vars       map[string]any
	completion *core.Completion
}

func newExecution(ctx core.CaseContext, steps []step, completion *core.Completion) *execution {
	return &execution{
		ctx:        ctx,
		steps:      steps,
		vars:       make(map[string]any),
		completion: completion,
	}
}

// active returns false once the case was resolved, including by the runner
// giving up on it.
func (x *execution) active() bool {
	if !x.completion.Pending() {
		return false
	}
	select {
	case <-x.ctx.Context().Done():
		return false
	default:
		return true
	}
}

// resume runs steps until one suspends, one ends the case, or none are left.
func (x *execution) resume() {
	defer func() {
		if r := recover(); r != nil {
			x.resolve(testerror.NewPanicError(r, debug.Stack()))
		}
	}()

	for x.pc < len(x.steps) {
		if !x.active() {
			return
		}

		s := x.steps[x.pc]
		x.pc++

		suspended, err := s.run(x)
		if err != nil {
			x.resolve(err)
			return
		}
		if suspended {
			return
		}
	}

	x.resolve(nil)
}

func (x *execution) resolve(err error) {
	x.completion.Resolve(err)
}

// waiter lets the first of several host callbacks continue a suspended
// execution and unsubscribes from the event it waited on.
type waiter struct {
	x *execution

	mu     sync.Mutex
	done   bool
	cancel func()
}

func (w *waiter) setCancel(cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		cancel()
		return
	}
	w.cancel = cancel
}

func (w *waiter) finish(next func()) {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return
	}
	w.done = true
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if w.x.active() {
		next()
	}
}
