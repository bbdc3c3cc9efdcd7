// Package capture redirects the process console into a run's report stream
// for the duration of the run.
package capture

import (
	"errors"
	"io"
	"os"
	"sync"

	"hosttest/pkg/hosttest/stream"

	"github.com/sirupsen/logrus"
)

var ErrCaptureActive = errors.New("console capture is already active")

// Only one capture may be active in the process at a time.
var active sync.Mutex

// Capture is an active redirection of os.Stdout, os.Stderr and a logger into
// a stream. It must be released on every exit path.
type Capture struct {
	stdout *os.File
	stderr *os.File

	logger *logrus.Logger
	hooks  logrus.LevelHooks

	pipes   []*os.File
	copiers sync.WaitGroup
	once    sync.Once
}

// Acquire starts copying everything written to os.Stdout and os.Stderr to
// both the original destination and w, and attaches a hook writing the
// records of logger to w. It fails with ErrCaptureActive if another capture
// has not been released yet.
func Acquire(w io.Writer, logger *logrus.Logger) (*Capture, error) {
	if !active.TryLock() {
		return nil, ErrCaptureActive
	}

	c := &Capture{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	stdout, err := c.redirect(c.stdout, w)
	if err != nil {
		c.closePipes()
		active.Unlock()
		return nil, err
	}

	stderr, err := c.redirect(c.stderr, w)
	if err != nil {
		c.closePipes()
		c.copiers.Wait()
		active.Unlock()
		return nil, err
	}

	os.Stdout = stdout
	os.Stderr = stderr

	if logger != nil {
		c.logger = logger
		c.hooks = make(logrus.LevelHooks)
		for level, hooks := range logger.Hooks {
			c.hooks[level] = append([]logrus.Hook(nil), hooks...)
		}
		logger.AddHook(&streamHook{
			w:         w,
			formatter: &logrus.TextFormatter{DisableColors: true},
		})
	}

	return c, nil
}

// redirect returns the write end of a pipe whose content is copied to both
// original and w.
func (c *Capture) redirect(original *os.File, w io.Writer) (*os.File, error) {
	r, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	c.pipes = append(c.pipes, pw)

	splitter := NewSplitter(original, w)

	c.copiers.Add(1)
	go func() {
		defer c.copiers.Done()
		defer r.Close()

		buf := make([]byte, 32*1024)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				// A closed stream must not stop the original destination
				// from receiving output.
				_, _ = splitter.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	return pw, nil
}

func (c *Capture) closePipes() {
	for _, p := range c.pipes {
		p.Close()
	}
	c.pipes = nil
}

// Release restores the original console and logger hooks. Output written
// before Release is delivered before it returns. Release is idempotent.
func (c *Capture) Release() {
	c.once.Do(func() {
		os.Stdout = c.stdout
		os.Stderr = c.stderr

		c.closePipes()
		c.copiers.Wait()

		if c.logger != nil {
			c.logger.ReplaceHooks(c.hooks)
		}

		active.Unlock()
	})
}

// streamHook writes formatted log records to a stream.
type streamHook struct {
	w         io.Writer
	formatter logrus.Formatter
}

func (h *streamHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *streamHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.w.Write(line)
	if errors.Is(err, stream.ErrClosed) {
		return nil
	}
	return err
}
