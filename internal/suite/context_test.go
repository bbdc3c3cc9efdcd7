package suite

import (
	"os"
	"path/filepath"
	"testing"

	"hosttest/pkg/hosttest/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, config.SettingsFileName), []byte("verbosity: 1\nfailfast: true\n"), 0o644))

	pkg, err := Resolve(root, "", map[string]any{"failfast": false})
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(root), pkg.Name)
	assert.Equal(t, 1, pkg.Config.Verbosity)
	assert.False(t, pkg.Config.FailFast)
	assert.Equal(t, filepath.Join(root, "tests"), pkg.TestsPath())
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "missing"), "", nil)
	assert.ErrorContains(t, err, "failed to open package directory")

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Resolve(file, "", nil)
	assert.ErrorContains(t, err, "is not a directory")

	_, err = Resolve(t.TempDir(), "", map[string]any{"colour": true})
	assert.Error(t, err)
}

func TestFlagsOverrides(t *testing.T) {
	deferred := false
	ceiling := 3
	f := Flags{Deferred: &deferred, PollCeiling: &ceiling}

	assert.Equal(t, map[string]any{"deferred": false, "poll_ceiling": 3}, f.Overrides())
	assert.Empty(t, (&Flags{}).Overrides())

	pkg, err := f.Resolve(t.TempDir())
	require.NoError(t, err)
	assert.False(t, pkg.Config.Deferred)
	assert.Equal(t, 3, pkg.Config.PollCeiling)
}
