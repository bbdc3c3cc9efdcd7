package host

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Loop is a single-goroutine event loop standing in for a host main thread.
// Callbacks posted from any goroutine run one at a time on the goroutine that
// called Run.
type Loop struct {
	log *logrus.Logger

	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	status map[string]string

	// When set, the status bar is rendered as a single line to this writer.
	statusOut io.Writer

	events *Bus
}

type LoopOption func(*Loop)

// WithStatusOutput renders status-bar changes as a carriage-return line on w.
func WithStatusOutput(w io.Writer) LoopOption {
	return func(l *Loop) {
		l.statusOut = w
	}
}

func NewLoop(log *logrus.Logger, opts ...LoopOption) *Loop {
	l := &Loop{
		log:    log,
		wake:   make(chan struct{}, 1),
		status: make(map[string]string),
	}
	l.events = NewBus(l)

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run processes callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			f := l.pop()
			if f == nil {
				break
			}
			l.invoke(f)
		}

		select {
		case <-ctx.Done():
			l.clearStatusLine()
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil
	}

	f := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return f
}

func (l *Loop) invoke(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.WithField("panic", r).Error("Host callback panicked")
		}
	}()

	f()
}

func (l *Loop) Post(f func()) {
	l.mu.Lock()
	l.queue = append(l.queue, f)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) SetTimeout(f func(), delay time.Duration) {
	if delay <= 0 {
		l.Post(f)
		return
	}

	time.AfterFunc(delay, func() { l.Post(f) })
}

func (l *Loop) SetStatus(key, text string) {
	l.mu.Lock()
	l.status[key] = text
	l.mu.Unlock()
	l.renderStatus()
}

func (l *Loop) EraseStatus(key string) {
	l.mu.Lock()
	delete(l.status, key)
	l.mu.Unlock()
	l.renderStatus()
}

// Status returns the status-bar entry for key.
func (l *Loop) Status(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	text, ok := l.status[key]
	return text, ok
}

func (l *Loop) Events() *Bus {
	return l.events
}

func (l *Loop) statusLine() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]string, 0, len(l.status))
	for k := range l.status {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, l.status[k])
	}

	return strings.Join(parts, " | ")
}

func (l *Loop) renderStatus() {
	if l.statusOut == nil {
		return
	}

	// \033[K clears the rest of the line
	fmt.Fprintf(l.statusOut, "\r%s\033[K", l.statusLine())
}

func (l *Loop) clearStatusLine() {
	if l.statusOut == nil {
		return
	}

	fmt.Fprint(l.statusOut, "\r\033[K")
}
