package helloworld

import (
	"testing"
	"time"

	"hosttest/internal/loader"
	"hosttest/pkg/hosttest/config"
	"hosttest/pkg/hosttest/host"
	"hosttest/pkg/hosttest/session"
	"hosttest/pkg/hosttest/stream"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelloWorldPackage(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	tests := "tests"
	loader.Register(tests, &HelloWorldModule{})
	t.Cleanup(func() { loader.Unregister(tests) })

	cfg, err := config.Load(config.SettingsFileName, nil)
	require.NoError(t, err)

	loop := host.NewManualLoop()
	out := stream.NewBuffer()
	run := session.New(loop, log).Start(session.Options{
		Package: "helloworld",
		Root:    ".",
		Config:  cfg,
		Stream:  out,
	})

	loop.Advance(5 * time.Second)

	select {
	case <-run.Done():
	default:
		t.Fatal("run did not finish")
	}

	assert.NoError(t, run.Err())
	assert.True(t, run.Successful(), out.String())
	assert.Equal(t, "skipped: 1; passed: 5; total: 6", run.Summary())
	assert.Contains(t, out.String(), "tests.hello_world.myDeferredTestCase ... PASS")
	assert.Contains(t, out.String(), "tests.test_greetings.hears_hello ... PASS")
}
