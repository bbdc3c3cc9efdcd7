// Package helloworld is an example test module written in Go. It is
// registered for the tests directory of this package, next to the script
// modules found there.
package helloworld

import (
	"fmt"
	"time"

	"hosttest/pkg/hosttest"

	"github.com/sirupsen/logrus"
)

// Dir is the package directory, relative to the repository root.
const Dir = "suites/helloworld"

// Event the deferred case waits on.
const GreetingEvent = "helloworld.greeting"

type HelloWorldModule struct {
	greeting string
}

func (m *HelloWorldModule) Name() string {
	return "hello_world"
}

// Setup implements hosttest.SetupCleanup.
func (m *HelloWorldModule) Setup(ctx hosttest.SetupCleanupContext) error {
	ctx.Logger().Infof("Setup called for '%s'", ctx.Name())
	m.greeting = "hello"
	return nil
}

// Cleanup implements hosttest.SetupCleanup. For a suite with deferrable cases
// it runs on the host tick on which the last of them finished.
func (m *HelloWorldModule) Cleanup(ctx hosttest.SetupCleanupContext) error {
	ctx.Logger().Infof("Cleanup called for '%s'", ctx.Name())
	m.greeting = ""
	return nil
}

func (m *HelloWorldModule) RegisterTestCases(r hosttest.TestRegistrar) error {
	r.RegisterTestCase("myPassingTestCase", m.myPassingTestCase)
	r.RegisterTestCase("mySkippedTestCase", m.mySkippedTestCase)
	r.RegisterDeferredCase("myDeferredTestCase", m.myDeferredTestCase)
	return nil
}

func (m *HelloWorldModule) myPassingTestCase(ctx hosttest.CaseContext) error {
	// Messages logged through the case logger are stored with the case and
	// shown in the report if it goes bad.
	ctx.Logger().Info("This message will be stored in the test case!")

	// With capture_console, plain console output ends up in the report too.
	fmt.Println("This message goes to the console.")

	if m.greeting != "hello" {
		return hosttest.Failf("setup did not run, greeting is '%s'", m.greeting)
	}
	return nil
}

func (m *HelloWorldModule) mySkippedTestCase(ctx hosttest.CaseContext) error {
	// Skipping stops execution of this test case here, marks it as skipped
	// and continues with the next test case.
	ctx.Skip("Skipping this test case!")

	logrus.Error("This message will never be logged!")
	return nil
}

// myDeferredTestCase finishes on a later host tick, once the greeting event
// was delivered. Begin returns right away; the host keeps running meanwhile.
func (m *HelloWorldModule) myDeferredTestCase(ctx hosttest.CaseContext, done *hosttest.Completion) {
	h := ctx.Host()
	log := ctx.Logger()

	var unsubscribe func()
	unsubscribe = h.Events().Subscribe(GreetingEvent, func(payload any) {
		unsubscribe()
		log.Infof("Received greeting '%v'", payload)
		if payload != m.greeting {
			done.Fail(fmt.Sprintf("expected greeting '%s', got '%v'", m.greeting, payload))
			return
		}
		done.Pass()
	})

	h.SetTimeout(func() {
		h.Events().Emit(GreetingEvent, m.greeting)
	}, 100*time.Millisecond)

	h.SetTimeout(func() {
		unsubscribe()
		done.Fail("no greeting within 2s")
	}, 2*time.Second)
}
