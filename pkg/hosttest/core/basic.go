package core

import "github.com/sirupsen/logrus"

type Named interface {
	// Returns the unique name of the entity
	Name() string
}

type LoggerProvider interface {
	// Logger returns the logger to be used for logging.
	Logger() *logrus.Logger
}

// Mode is the execution mode a loader tags discovered cases with.
type Mode int

const (
	ModeImmediate Mode = iota
	ModeDeferred
)

func (m Mode) String() string {
	switch m {
	case ModeImmediate:
		return "immediate"
	case ModeDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Moded is implemented by tests that carry the execution mode they were
// discovered with.
type Moded interface {
	Mode() Mode
}
