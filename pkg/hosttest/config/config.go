// Package config resolves the configuration of one test run.
//
// Values are layered: built-in defaults, then the package's settings file,
// then overrides given by the caller. Later layers win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"hosttest/internal/testerror"

	"github.com/spf13/viper"
)

const SettingsFileName = "hosttest.yaml"

// RunConfiguration is the resolved configuration of one run. It is passed by
// value and never changed after Load returns it.
type RunConfiguration struct {
	// Run on a background goroutine instead of the caller's.
	Asynchronous bool `mapstructure:"asynchronous"`

	// Copy the process console and log records into the report stream.
	CaptureConsole bool `mapstructure:"capture_console"`

	// Use the deferring runner, which supports deferrable cases.
	Deferred bool `mapstructure:"deferred"`

	// Detect deferred completions by polling instead of callbacks.
	LegacyRunner bool `mapstructure:"legacy_runner"`

	Verbosity int    `mapstructure:"verbosity"`
	Pattern   string `mapstructure:"pattern"`
	TestsDir  string `mapstructure:"tests_dir"`

	// Report file used instead of the console, if set.
	Output string `mapstructure:"output"`

	FailFast bool `mapstructure:"failfast"`

	PollInterval     time.Duration `mapstructure:"poll_interval"`
	PollCeiling      int           `mapstructure:"poll_ceiling"`
	ConditionTimeout time.Duration `mapstructure:"condition_timeout"`
}

var defaults = map[string]any{
	"asynchronous":      false,
	"capture_console":   false,
	"deferred":          true,
	"legacy_runner":     false,
	"verbosity":         2,
	"pattern":           "test*.yaml",
	"tests_dir":         "tests",
	"output":            "",
	"failfast":          false,
	"poll_interval":     500 * time.Millisecond,
	"poll_ceiling":      600,
	"condition_timeout": 4 * time.Second,
}

// Keys returns the recognised option names, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Default returns the built-in configuration.
func Default() RunConfiguration {
	c, err := Load("", nil)
	if err != nil {
		panic(fmt.Sprintf("built-in configuration is invalid: %v", err))
	}
	return c
}

// Load merges the defaults, the settings file (skipped when empty or
// missing) and overrides. Unknown options and invalid values are reported as
// a *testerror.ConfigurationError.
func Load(settingsFile string, overrides map[string]any) (RunConfiguration, error) {
	v := viper.New()
	for k, value := range defaults {
		v.SetDefault(k, value)
	}

	if settingsFile != "" {
		if _, err := os.Stat(settingsFile); err == nil {
			v.SetConfigType("yaml")
			v.SetConfigFile(settingsFile)
			if err := v.ReadInConfig(); err != nil {
				return RunConfiguration{}, testerror.NewConfigurationError(
					"failed to read settings file '%s': %v", settingsFile, err,
				)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return RunConfiguration{}, testerror.NewConfigurationError(
				"failed to read settings file '%s': %v", settingsFile, err,
			)
		}
	}

	for k, value := range overrides {
		if _, ok := defaults[k]; !ok {
			return RunConfiguration{}, testerror.NewConfigurationError(
				"unknown option '%s', expected one of: %s", k, strings.Join(Keys(), ", "),
			)
		}
		v.Set(k, value)
	}

	var c RunConfiguration
	if err := v.UnmarshalExact(&c); err != nil {
		return RunConfiguration{}, testerror.NewConfigurationError("invalid configuration: %v", err)
	}

	if err := c.validate(); err != nil {
		return RunConfiguration{}, err
	}

	return c, nil
}

func (c RunConfiguration) validate() error {
	if c.Verbosity < 0 {
		return testerror.NewConfigurationError("verbosity must not be negative, got %d", c.Verbosity)
	}

	if c.Pattern == "" {
		return testerror.NewConfigurationError("pattern must not be empty")
	}
	if _, err := filepath.Match(c.Pattern, ""); err != nil {
		return testerror.NewConfigurationError("invalid pattern '%s': %v", c.Pattern, err)
	}

	if filepath.IsAbs(c.TestsDir) || !filepath.IsLocal(c.TestsDir) {
		return testerror.NewConfigurationError("tests_dir must be a relative path inside the package, got '%s'", c.TestsDir)
	}

	if c.PollInterval <= 0 {
		return testerror.NewConfigurationError("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.PollCeiling <= 0 {
		return testerror.NewConfigurationError("poll_ceiling must be positive, got %d", c.PollCeiling)
	}
	if c.ConditionTimeout <= 0 {
		return testerror.NewConfigurationError("condition_timeout must be positive, got %s", c.ConditionTimeout)
	}

	return nil
}

// TestsPath returns the tests directory of the package at root.
func (c RunConfiguration) TestsPath(root string) string {
	return filepath.Join(root, c.TestsDir)
}
