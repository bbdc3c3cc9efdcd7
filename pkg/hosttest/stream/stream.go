// Package stream provides the sinks a test run writes its report to.
//
// A stream is either a transient report buffer (a file or in-memory buffer
// scanned by CI) or a persistent panel shown to a user. Only transient
// streams receive the completion banner.
package stream

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"
)

var ErrClosed = errors.New("stream is closed")

type Stream interface {
	io.Writer

	// Close closes the stream. Writes after Close fail with ErrClosed.
	Close() error

	// Closed returns whether Close was called.
	Closed() bool
}

// Windowed is implemented by persistent panels.
type Windowed interface {
	Window() string
}

// IsPanel returns whether s is a persistent panel rather than a transient
// report buffer.
func IsPanel(s Stream) bool {
	_, ok := s.(Windowed)
	return ok
}

// writer guards an underlying writer with a mutex and a closed flag.
type writer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	closed bool
}

func (s *writer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	return s.w.Write(p)
}

func (s *writer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *writer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Buffer is an in-memory transient stream.
type Buffer struct {
	writer
	buf bytes.Buffer
}

func NewBuffer() *Buffer {
	b := &Buffer{}
	b.w = &b.buf
	return b
}

// String returns everything written so far, including after Close.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// File is a transient stream backed by a file on disk.
type File struct {
	writer
	path string
}

// CreateFile creates (or truncates) path and returns a stream writing to it.
func CreateFile(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	s := &File{path: path}
	s.w = f
	s.closer = f
	return s, nil
}

func (f *File) Path() string {
	return f.path
}

// Console is a transient stream writing to a terminal or other file
// descriptor the caller keeps ownership of. Close does not close the file.
type Console struct {
	writer
	f *os.File
}

func NewConsole(f *os.File) *Console {
	c := &Console{f: f}
	c.w = f
	return c
}

// Fd returns the file descriptor of the underlying file.
func (c *Console) Fd() uintptr {
	return c.f.Fd()
}

// Panel is a persistent panel. It never receives the completion banner.
type Panel struct {
	Buffer
	window string
}

func NewPanel(window string) *Panel {
	p := &Panel{window: window}
	p.w = &p.buf
	return p
}

func (p *Panel) Window() string {
	return p.window
}
