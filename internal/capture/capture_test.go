package capture

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"

	"hosttest/pkg/hosttest/stream"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

type closeCounter struct {
	bytes.Buffer
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestSplitterWritesEverySink(t *testing.T) {
	var a, b bytes.Buffer
	s := NewSplitter(&a)
	s.Add(&b)

	payload := []byte("ünïcode \x00 bytes\n")
	n, err := s.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, a.Bytes())
	assert.Equal(t, payload, b.Bytes())
}

func TestSplitterAttemptsAllSinks(t *testing.T) {
	var after bytes.Buffer
	s := NewSplitter(failingWriter{}, &after)

	_, err := s.Write([]byte("x"))
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, "x", after.String())
}

func TestSplitterClosesOwnedSinksOnly(t *testing.T) {
	borrowed := &closeCounter{}
	owned := &closeCounter{}

	s := NewSplitter()
	s.Add(borrowed)
	s.AddOwned(owned)

	_, err := s.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Zero(t, borrowed.closed)
	assert.Equal(t, 1, owned.closed)
	assert.Equal(t, "x", owned.String())
}

func TestAcquireRelease(t *testing.T) {
	origStdout, origStderr := os.Stdout, os.Stderr

	buf := stream.NewBuffer()
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	hooksBefore := len(log.Hooks[logrus.InfoLevel])

	c, err := Acquire(buf, log)
	require.NoError(t, err)

	_, err = Acquire(buf, log)
	assert.ErrorIs(t, err, ErrCaptureActive)

	fmt.Fprintln(os.Stdout, "to stdout")
	fmt.Fprintln(os.Stderr, "to stderr")
	log.Info("to the log")

	c.Release()
	c.Release()

	assert.Same(t, origStdout, os.Stdout)
	assert.Same(t, origStderr, os.Stderr)
	assert.Len(t, log.Hooks[logrus.InfoLevel], hooksBefore)

	out := buf.String()
	assert.Contains(t, out, "to stdout\n")
	assert.Contains(t, out, "to stderr\n")
	assert.Contains(t, out, "to the log")

	// the process-wide lock is free again
	c, err = Acquire(buf, nil)
	require.NoError(t, err)
	c.Release()
}

func TestCaptureSurvivesClosedStream(t *testing.T) {
	buf := stream.NewBuffer()
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})

	c, err := Acquire(buf, log)
	require.NoError(t, err)
	defer c.Release()

	require.NoError(t, buf.Close())
	log.Info("after close")
	fmt.Fprintln(os.Stdout, "after close")
}
