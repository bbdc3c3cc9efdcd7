// Package host models the application that owns the main thread a test run
// executes inside of.
//
// Everything the engine needs from the host goes through these interfaces:
// scheduling callbacks on a later tick, showing a status-bar entry, and
// delivering events that deferred test cases wait on.
package host

import "time"

type Scheduler interface {
	// SetTimeout schedules f to run on the host thread after delay.
	SetTimeout(f func(), delay time.Duration)

	// Post schedules f to run on the host thread as soon as possible.
	Post(f func())
}

type StatusBar interface {
	// SetStatus sets the status-bar entry identified by key.
	SetStatus(key, text string)

	// EraseStatus removes the status-bar entry identified by key.
	EraseStatus(key string)
}

type Host interface {
	Scheduler
	StatusBar

	// Events returns the bus used to deliver host events.
	Events() *Bus
}
