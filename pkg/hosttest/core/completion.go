package core

import "sync"

// Completion is the result of a deferrable case. It is resolved exactly once;
// later resolutions are ignored.
type Completion struct {
	mu        sync.Mutex
	done      chan struct{}
	err       error
	resolved  bool
	listeners []func(error)
}

func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Resolve finishes the case with err (nil is a pass). It returns false if the
// completion was already resolved.
func (c *Completion) Resolve(err error) bool {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return false
	}
	c.resolved = true
	c.err = err
	listeners := c.listeners
	c.listeners = nil
	close(c.done)
	c.mu.Unlock()

	for _, l := range listeners {
		l(err)
	}

	return true
}

func (c *Completion) Pass() bool {
	return c.Resolve(nil)
}

func (c *Completion) Fail(reason string) bool {
	return c.Resolve(Failf("%s", reason))
}

func (c *Completion) Skip(reason string) bool {
	return c.Resolve(Skipf("%s", reason))
}

func (c *Completion) Error(err error) bool {
	return c.Resolve(err)
}

// Done is closed once the completion is resolved.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the resolution, only meaningful once Done is closed.
func (c *Completion) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Completion) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.resolved
}

// OnDone calls f with the resolution once the completion is resolved, on the
// goroutine that resolves it. If it is already resolved f is called
// immediately.
func (c *Completion) OnDone(f func(error)) {
	c.mu.Lock()
	if c.resolved {
		err := c.err
		c.mu.Unlock()
		f(err)
		return
	}
	c.listeners = append(c.listeners, f)
	c.mu.Unlock()
}
