package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"hosttest/internal/testerror"
	"hosttest/pkg/hosttest/core"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func names(s *core.Suite) []string {
	var out []string
	core.Walk(s, func(t core.Test) error {
		out = append(out, t.Name())
		return nil
	})
	return out
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	l := New(true, quietLogger(), WithCache(NewCache()))
	suite := l.Discover(t.TempDir(), "test*.yaml")

	assert.Empty(t, suite.Tests())
	assert.Zero(t, suite.CountCases())
}

func TestDiscoverLayout(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "test_b.yaml"), "cases:\n  - name: second\n")
	write(t, filepath.Join(root, "test_a.yaml"), "cases:\n  - name: first\n    steps:\n      - yield: 1s\n")
	write(t, filepath.Join(root, "helpers.yaml"), "cases:\n  - name: ignored\n")
	write(t, filepath.Join(root, "nested", "test_c.yaml"), "cases:\n  - name: third\n")
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))

	cache := NewCache()
	suite := New(true, quietLogger(), WithCache(cache)).Discover(root, "test*.yaml")

	// entries are visited by name, directories included
	assert.Equal(t, []string{"third", "first", "second"}, names(suite))
	require.Len(t, suite.Tests(), 3, "empty directories are omitted")
	assert.Equal(t, "nested", suite.Tests()[0].Name())
	assert.Equal(t, "test_a", suite.Tests()[1].Name())
	assert.Len(t, cache.Loaded(), 3)

	core.Walk(suite, func(tc core.Test) error {
		moded, ok := tc.(core.Moded)
		require.True(t, ok)
		assert.Equal(t, core.ModeDeferred, moded.Mode())
		return nil
	})
}

func TestDiscoverPicksUpChanges(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "test_panels.yaml")
	write(t, path, "cases:\n  - name: before\n")

	cache := NewCache()
	l := New(false, quietLogger(), WithCache(cache))
	assert.Equal(t, []string{"before"}, names(l.Discover(root, "test*.yaml")))

	write(t, path, "cases:\n  - name: after\n  - name: added\n")
	assert.Equal(t, []string{"after", "added"}, names(l.Discover(root, "test*.yaml")))
	assert.Len(t, cache.Loaded(), 1)
}

func TestDiscoverCollectionErrors(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "test_bad.yaml"), "cases: [")
	write(t, filepath.Join(root, "test_good.yaml"), "cases:\n  - name: ok\n")

	suite := New(false, quietLogger(), WithCache(NewCache())).Discover(root, "test*.yaml")
	tests := suite.Tests()
	require.Len(t, tests, 2)

	bad, ok := tests[0].(core.TestCase)
	require.True(t, ok)
	assert.Equal(t, "collection:"+filepath.Join(root, "test_bad.yaml"), bad.Name())

	var ce *testerror.CollectionError
	require.ErrorAs(t, bad.Run(nil), &ce)
	assert.Equal(t, filepath.Join(root, "test_bad.yaml"), ce.Path)

	assert.Equal(t, "test_good", tests[1].Name())
}

func TestDiscoverMissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	suite := New(false, quietLogger(), WithCache(NewCache())).Discover(missing, "test*.yaml")

	require.Len(t, suite.Tests(), 1)
	err := suite.Tests()[0].(core.TestCase).Run(nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDiscoverInvalidPattern(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "test_a.yaml"), "cases:\n  - name: first\n")
	write(t, filepath.Join(root, "nested", "test_b.yaml"), "cases:\n  - name: second\n")
	Register(root, goModule{})
	t.Cleanup(func() { Unregister(root) })

	suite := New(true, quietLogger(), WithCache(NewCache())).Discover(root, "test[.yaml")
	tests := suite.Tests()
	require.Len(t, tests, 2, "the error is reported once and registered modules survive")

	bad, ok := tests[0].(core.TestCase)
	require.True(t, ok)
	assert.Equal(t, "collection:"+root, bad.Name())
	assert.ErrorContains(t, bad.Run(nil), "invalid pattern 'test[.yaml'")

	assert.Equal(t, "go_module", tests[1].Name())
	assert.Equal(t, []string{"collection:" + root, "compiled", "compiled_deferred"}, names(suite))
}

type goModule struct{}

func (goModule) Name() string {
	return "go_module"
}

func (goModule) RegisterTestCases(r core.TestRegistrar) error {
	r.RegisterTestCase("compiled", func(core.CaseContext) error { return nil })
	r.RegisterDeferredCase("compiled_deferred", func(_ core.CaseContext, c *core.Completion) { c.Pass() })
	return nil
}

func TestDiscoverRegisteredModules(t *testing.T) {
	root := filepath.Join(t.TempDir(), "go_only")
	Register(root, goModule{})
	t.Cleanup(func() { Unregister(root) })

	suite := New(true, quietLogger(), WithCache(NewCache())).Discover(root, "test*.yaml")
	assert.Equal(t, []string{"compiled", "compiled_deferred"}, names(suite))

	module := suite.Tests()[0].(*core.Suite)
	assert.False(t, core.IsDeferrable(module.Tests()[0]))
	assert.True(t, core.IsDeferrable(module.Tests()[1]))
	assert.Equal(t, core.ModeDeferred, module.Tests()[1].(core.Moded).Mode())
}

func TestCachePurge(t *testing.T) {
	c := NewCache()
	c.store("/pkg/tests/test_a.yaml", "test_a")
	c.store("/pkg/tests/sub/test_b.yaml", "test_b")
	c.store("/pkg/testsuite/test_c.yaml", "test_c")

	assert.Equal(t, 2, c.Purge("/pkg/tests"))
	assert.Equal(t, []string{"/pkg/testsuite/test_c.yaml"}, c.Loaded())
}
