package script

import (
	"testing"
	"time"

	"hosttest/internal/runner"
	"hosttest/internal/testmgr"
	"hosttest/pkg/hosttest/core"
	"hosttest/pkg/hosttest/host"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const panels = `
cases:
  - name: opens
    steps:
      - set: {count: 2}
      - log: opening
      - assert: count * 2 == 4
  - name: waits_for_event
    steps:
      - emit: {event: panel.open, payload: {id: 7}, after: 100ms}
      - await: {event: panel.open, as: panel}
      - assert: panel.id == 7
  - name: yields
    steps:
      - yield: 1s
      - assert: "true"
`

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func parse(t *testing.T, source string) *Module {
	t.Helper()
	m, err := Parse("tests/test_panels.yaml", []byte(source), Options{Mode: core.ModeDeferred})
	require.NoError(t, err)
	return m
}

func run(t *testing.T, loop *host.ManualLoop, m *Module) (*runner.DeferringRunner, *testmgr.RunResult) {
	t.Helper()
	r := runner.NewDeferring(runner.Options{Host: loop, Logger: quietLogger()})
	return r, r.Run(core.NewSuite("root", core.NewSuite(m.Name, m.Tests...)))
}

func statuses(result *testmgr.RunResult) map[string]testmgr.TestCaseStatus {
	out := make(map[string]testmgr.TestCaseStatus)
	for _, tc := range result.TestCases() {
		out[tc.Name()] = tc.Status()
	}
	return out
}

func TestParse(t *testing.T) {
	m := parse(t, panels)

	assert.Equal(t, "test_panels", m.Name)
	require.Len(t, m.Tests, 3)
	assert.False(t, core.IsDeferrable(m.Tests[0]))
	assert.True(t, core.IsDeferrable(m.Tests[1]))
	assert.True(t, core.IsDeferrable(m.Tests[2]))

	_, isSync := m.Tests[1].(core.TestCase)
	assert.False(t, isSync, "a deferrable script case must not be runnable synchronously")

	moded, ok := m.Tests[0].(core.Moded)
	require.True(t, ok)
	assert.Equal(t, core.ModeDeferred, moded.Mode())
}

func TestParseNamedAndEmpty(t *testing.T) {
	m := parse(t, "name: custom\n")
	assert.Equal(t, "custom", m.Name)
	assert.Empty(t, m.Tests)

	m = parse(t, "")
	assert.Equal(t, "test_panels", m.Name)
	assert.Empty(t, m.Tests)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
		err    string
	}{
		{"syntax", "cases: [", "failed to parse test module"},
		{"unknown key", "case: []", "field case not found"},
		{"unknown step", "cases:\n  - name: a\n    steps:\n      - click: ok\n", "unknown step 'click'"},
		{"two keys", "cases:\n  - name: a\n    steps:\n      - {log: a, print: b}\n", "exactly one key"},
		{"bad expression", "cases:\n  - name: a\n    steps:\n      - assert: '1 +'\n", "invalid expression"},
		{"duplicate", "cases:\n  - name: a\n  - name: a\n", "is not unique"},
		{"invalid name", "cases:\n  - name: a b\n", "is invalid"},
		{"bad duration", "cases:\n  - name: a\n    steps:\n      - yield: soon\n", "invalid duration"},
		{"await without event", "cases:\n  - name: a\n    steps:\n      - await: {timeout: 1s}\n", "await requires an event"},
		{"unknown emit key", "cases:\n  - name: a\n    steps:\n      - emit: {event: x, delay: 1s}\n", "field delay not found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("tests/test_bad.yaml", []byte(tc.source), Options{})
			assert.ErrorContains(t, err, tc.err)
		})
	}
}

func TestRun(t *testing.T) {
	loop := host.NewManualLoop()
	r, result := run(t, loop, parse(t, panels))

	assert.Equal(t, testmgr.TestCaseStatusPassed, statuses(result)["opens"])
	assert.False(t, r.Finished())

	loop.Advance(100 * time.Millisecond)
	assert.Equal(t, testmgr.TestCaseStatusPassed, statuses(result)["waits_for_event"])
	assert.False(t, r.Finished())

	loop.Advance(time.Second)
	assert.True(t, r.Finished())
	assert.True(t, result.Successful())
}

func TestOutcomeSteps(t *testing.T) {
	m := parse(t, `
cases:
  - name: fails
    steps:
      - fail: not today
  - name: skips
    steps:
      - skip: no display
  - name: errors
    steps:
      - error: broken
  - name: false_assert
    steps:
      - assert: 1 > 2
`)
	_, result := run(t, host.NewManualLoop(), m)

	assert.Equal(t, map[string]testmgr.TestCaseStatus{
		"fails":        testmgr.TestCaseStatusFailed,
		"skips":        testmgr.TestCaseStatusSkipped,
		"errors":       testmgr.TestCaseStatusError,
		"false_assert": testmgr.TestCaseStatusFailed,
	}, statuses(result))
	assert.Equal(t, "assertion failed: 1 > 2", result.TestCases()[3].Reason())
}

func TestAwaitTimeout(t *testing.T) {
	loop := host.NewManualLoop()
	r, result := run(t, loop, parse(t, `
cases:
  - name: never
    steps:
      - await: {event: panel.open, timeout: 2s}
`))

	loop.Advance(time.Second)
	assert.False(t, r.Finished())
	assert.Equal(t, 1, loop.Events().Subscribers("panel.open"))

	loop.Advance(time.Second)
	assert.True(t, r.Finished())
	tc := result.TestCases()[0]
	assert.Equal(t, testmgr.TestCaseStatusFailed, tc.Status())
	assert.Equal(t, "timed out after 2s waiting for event 'panel.open'", tc.Reason())
	assert.Zero(t, loop.Events().Subscribers("panel.open"))
}

func TestWaitUntil(t *testing.T) {
	loop := host.NewManualLoop()
	r, result := run(t, loop, parse(t, `
cases:
  - name: sees_event
    steps:
      - emit: {event: tick, after: 120ms}
      - wait_until: {condition: emitted("tick") > 0, interval: 50ms}
  - name: gives_up
    steps:
      - wait_until: {condition: emitted("never") > 0, timeout: 200ms, interval: 50ms}
`))

	loop.Advance(150 * time.Millisecond)
	assert.Equal(t, testmgr.TestCaseStatusPassed, statuses(result)["sees_event"])
	assert.Equal(t, testmgr.TestCaseStatusPending, statuses(result)["gives_up"])

	loop.Advance(50 * time.Millisecond)
	assert.True(t, r.Finished())
	assert.Equal(t, testmgr.TestCaseStatusFailed, statuses(result)["gives_up"])
}

func TestWaitUntilAlreadyTrue(t *testing.T) {
	_, result := run(t, host.NewManualLoop(), parse(t, `
cases:
  - name: instant
    steps:
      - set: {ready: true}
      - wait_until: {condition: ready}
`))
	assert.Equal(t, testmgr.TestCaseStatusPassed, statuses(result)["instant"])
}

func TestLoad(t *testing.T) {
	_, err := Load(t.TempDir()+"/missing.yaml", Options{})
	assert.ErrorContains(t, err, "failed to read test module")
}
