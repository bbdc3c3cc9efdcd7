package host

import (
	"sort"
	"sync"
)

// Bus delivers named events to subscribers. Handlers never run inside Emit,
// they are posted to the scheduler so they always execute on the host thread.
type Bus struct {
	sched Scheduler

	mu     sync.Mutex
	next   uint64
	subs   map[string]map[uint64]func(any)
	counts map[string]int
}

func NewBus(sched Scheduler) *Bus {
	return &Bus{
		sched:  sched,
		subs:   make(map[string]map[uint64]func(any)),
		counts: make(map[string]int),
	}
}

// Subscribe registers fn for events called name. The returned function
// removes the subscription, it is safe to call more than once.
func (b *Bus) Subscribe(name string, fn func(payload any)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++

	if b.subs[name] == nil {
		b.subs[name] = make(map[uint64]func(any))
	}
	b.subs[name][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[name], id)
		if len(b.subs[name]) == 0 {
			delete(b.subs, name)
		}
	}
}

// Emit posts payload to every handler subscribed to name at the time of the
// call, in subscription order. It returns the number of handlers notified.
func (b *Bus) Emit(name string, payload any) int {
	b.mu.Lock()
	b.counts[name]++
	ids := make([]uint64, 0, len(b.subs[name]))
	for id := range b.subs[name] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]func(any), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.subs[name][id])
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h := h
		b.sched.Post(func() { h(payload) })
	}

	return len(handlers)
}

// Subscribers returns the number of handlers currently subscribed to name.
func (b *Bus) Subscribers(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}

// Count returns how many times name was emitted, subscribed to or not.
func (b *Bus) Count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[name]
}
