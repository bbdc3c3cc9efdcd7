package capture

import (
	"errors"
	"io"
	"sync"
)

// Splitter forwards every write, unchanged, to each of its sinks.
type Splitter struct {
	mu    sync.Mutex
	sinks []io.Writer
	owned []io.Closer
}

func NewSplitter(sinks ...io.Writer) *Splitter {
	return &Splitter{sinks: append([]io.Writer(nil), sinks...)}
}

// Add registers a sink the splitter writes to but does not close.
func (s *Splitter) Add(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, w)
}

// AddOwned registers a sink the splitter closes on Close.
func (s *Splitter) AddOwned(w io.WriteCloser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, w)
	s.owned = append(s.owned, w)
}

// Write writes p to every sink, even if an earlier one fails. The returned
// error joins the errors of all sinks that failed.
func (s *Splitter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, sink := range s.sinks {
		n, err := sink.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return len(p), nil
}

// Close closes the owned sinks.
func (s *Splitter) Close() error {
	s.mu.Lock()
	owned := s.owned
	s.owned = nil
	s.mu.Unlock()

	var errs []error
	for _, c := range owned {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
