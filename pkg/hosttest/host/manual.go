package host

import (
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/priorityqueue"
)

type manualTimer struct {
	due time.Duration
	seq uint64
	f   func()
}

func byDueThenSeq(a, b interface{}) int {
	ta := a.(*manualTimer)
	tb := b.(*manualTimer)

	switch {
	case ta.due < tb.due:
		return -1
	case ta.due > tb.due:
		return 1
	case ta.seq < tb.seq:
		return -1
	case ta.seq > tb.seq:
		return 1
	default:
		return 0
	}
}

// ManualLoop is a Host driven by an explicit virtual clock. Nothing runs until
// the owner calls RunPending or Advance, which makes tick-by-tick behaviour
// reproducible.
//
// Callbacks with the same due time run in the order they were scheduled.
type ManualLoop struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers *priorityqueue.Queue
	status map[string]string

	events *Bus
}

func NewManualLoop() *ManualLoop {
	l := &ManualLoop{
		timers: priorityqueue.NewWith(byDueThenSeq),
		status: make(map[string]string),
	}
	l.events = NewBus(l)
	return l
}

func (l *ManualLoop) SetTimeout(f func(), delay time.Duration) {
	if delay < 0 {
		delay = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	l.timers.Enqueue(&manualTimer{
		due: l.now + delay,
		seq: l.seq,
		f:   f,
	})
}

func (l *ManualLoop) Post(f func()) {
	l.SetTimeout(f, 0)
}

// Now returns the virtual time elapsed since the loop was created.
func (l *ManualLoop) Now() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

// Pending returns the number of scheduled callbacks that have not run yet.
func (l *ManualLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timers.Size()
}

// RunPending runs every callback that is due at the current virtual time,
// including callbacks posted while doing so. It returns how many ran.
func (l *ManualLoop) RunPending() int {
	return l.Advance(0)
}

// Advance moves the virtual clock forward by d, running every callback that
// becomes due on the way in due-time order. It returns how many ran.
func (l *ManualLoop) Advance(d time.Duration) int {
	l.mu.Lock()
	target := l.now + d
	l.mu.Unlock()

	ran := 0
	for {
		t := l.popDue(target)
		if t == nil {
			break
		}
		t.f()
		ran++
	}

	l.mu.Lock()
	if l.now < target {
		l.now = target
	}
	l.mu.Unlock()

	return ran
}

func (l *ManualLoop) popDue(target time.Duration) *manualTimer {
	l.mu.Lock()
	defer l.mu.Unlock()

	head, ok := l.timers.Peek()
	if !ok {
		return nil
	}

	t := head.(*manualTimer)
	if t.due > target {
		return nil
	}

	l.timers.Dequeue()
	if t.due > l.now {
		l.now = t.due
	}
	return t
}

func (l *ManualLoop) SetStatus(key, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status[key] = text
}

func (l *ManualLoop) EraseStatus(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.status, key)
}

// Status returns the status-bar entry for key.
func (l *ManualLoop) Status(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	text, ok := l.status[key]
	return text, ok
}

func (l *ManualLoop) Events() *Bus {
	return l.events
}
