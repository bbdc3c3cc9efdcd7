// Package suite resolves the package a command operates on.
package suite

import (
	"os"
	"path/filepath"

	"hosttest/pkg/hosttest/config"
	"hosttest/pkg/hosttest/core"

	"github.com/pkg/errors"
)

// Context is bound into every command.
type Context interface {
	core.LoggerProvider

	// Returns whether Azure DevOps logging commands should be emitted.
	AzureDevops() bool
}

// Package is a package directory resolved from the command line.
type Package struct {
	// Name is the base name of the package directory.
	Name string

	// Root is the absolute package directory.
	Root string

	Config config.RunConfiguration
}

// TestsPath is the directory the package's test modules are discovered in.
func (p Package) TestsPath() string {
	return p.Config.TestsPath(p.Root)
}

// Resolve loads the configuration of the package at dir. settings defaults
// to the settings file inside dir; overrides win over both.
func Resolve(dir, settings string, overrides map[string]any) (Package, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return Package{}, errors.Wrapf(err, "failed to resolve package directory '%s'", dir)
	}

	info, err := os.Stat(root)
	if err != nil {
		return Package{}, errors.Wrap(err, "failed to open package directory")
	}
	if !info.IsDir() {
		return Package{}, errors.Errorf("package path '%s' is not a directory", root)
	}

	if settings == "" {
		settings = filepath.Join(root, config.SettingsFileName)
	}

	cfg, err := config.Load(settings, overrides)
	if err != nil {
		return Package{}, err
	}

	return Package{
		Name:   filepath.Base(root),
		Root:   root,
		Config: cfg,
	}, nil
}
