// Package script loads test modules written as YAML files.
//
// A module holds named cases, each a list of steps. A case whose steps may
// suspend (yield, await, wait_until) is deferrable and only runs under the
// deferring runner.
package script

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hosttest/internal/collector"
	"hosttest/pkg/hosttest/core"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConditionTimeout = 4 * time.Second
	DefaultConditionPoll    = 50 * time.Millisecond
)

// Options for building the cases of a module.
type Options struct {
	// Mode tags every case of the module.
	Mode core.Mode

	// ConditionTimeout applies to wait_until and await steps that do not set
	// their own timeout.
	ConditionTimeout time.Duration
}

type Module struct {
	Name  string
	Path  string
	Tests []core.Test
}

type moduleFile struct {
	Name  string     `yaml:"name"`
	Cases []caseFile `yaml:"cases"`
}

type caseFile struct {
	Name  string                 `yaml:"name"`
	Steps []map[string]yaml.Node `yaml:"steps"`
}

// Load reads and parses the module at path.
func Load(path string, opts Options) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read test module")
	}
	return Parse(path, data, opts)
}

// Parse builds the module in data. path names the module in errors and
// provides its default name.
func Parse(path string, data []byte, opts Options) (*Module, error) {
	if opts.ConditionTimeout <= 0 {
		opts.ConditionTimeout = DefaultConditionTimeout
	}

	var file moduleFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "failed to parse test module '%s'", path)
	}

	module := &Module{
		Name: file.Name,
		Path: path,
	}
	if module.Name == "" {
		module.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	} else if err := core.ValidateEntityName(module.Name, "module"); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(file.Cases))
	for _, c := range file.Cases {
		names = append(names, c.Name)
	}
	if err := collector.CheckNames(names, "test case"); err != nil {
		return nil, errors.Wrapf(err, "invalid test module '%s'", path)
	}

	for _, c := range file.Cases {
		steps := make([]step, 0, len(c.Steps))
		deferrable := false
		for i, raw := range c.Steps {
			s, err := parseStep(raw, opts)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: case '%s' step %d", path, c.Name, i+1)
			}
			deferrable = deferrable || s.suspends()
			steps = append(steps, s)
		}

		sc := &scriptCase{name: c.Name, mode: opts.Mode, steps: steps}
		if deferrable {
			module.Tests = append(module.Tests, &deferredScriptCase{sc})
		} else {
			module.Tests = append(module.Tests, sc)
		}
	}

	return module, nil
}

func parseStep(raw map[string]yaml.Node, opts Options) (step, error) {
	if len(raw) != 1 {
		return nil, fmt.Errorf("a step must have exactly one key, found %d", len(raw))
	}

	var (
		kind string
		node yaml.Node
	)
	for k, v := range raw {
		kind, node = k, v
	}

	switch kind {
	case "print":
		var text string
		err := node.Decode(&text)
		return &printStep{text: text}, err
	case "log":
		var text string
		err := node.Decode(&text)
		return &logStep{text: text}, err
	case "set":
		vars := make(map[string]any)
		if err := node.Decode(&vars); err != nil {
			return nil, err
		}
		for name := range vars {
			if err := core.ValidateEntityName(name, "variable"); err != nil {
				return nil, err
			}
		}
		return &setStep{vars: vars}, nil
	case "assert":
		var source string
		if err := node.Decode(&source); err != nil {
			return nil, err
		}
		program, err := compile(source)
		if err != nil {
			return nil, err
		}
		return &assertStep{source: source, program: program}, nil
	case "fail", "skip", "error":
		var text string
		err := node.Decode(&text)
		return &outcomeStep{kind: kind, text: text}, err
	case "emit":
		var args struct {
			Event   string `yaml:"event"`
			Payload any    `yaml:"payload"`
			After   string `yaml:"after"`
		}
		if err := decodeStrict(node, &args); err != nil {
			return nil, err
		}
		if args.Event == "" {
			return nil, errors.New("emit requires an event")
		}
		after, err := parseDuration(args.After, 0)
		if err != nil {
			return nil, err
		}
		return &emitStep{event: args.Event, payload: args.Payload, after: after}, nil
	case "yield":
		var text string
		if err := node.Decode(&text); err != nil {
			return nil, err
		}
		d, err := parseDuration(text, 0)
		if err != nil {
			return nil, err
		}
		return &yieldStep{delay: d}, nil
	case "await":
		var args struct {
			Event   string `yaml:"event"`
			Timeout string `yaml:"timeout"`
			As      string `yaml:"as"`
		}
		if err := decodeStrict(node, &args); err != nil {
			return nil, err
		}
		if args.Event == "" {
			return nil, errors.New("await requires an event")
		}
		if args.As != "" {
			if err := core.ValidateEntityName(args.As, "variable"); err != nil {
				return nil, err
			}
		}
		timeout, err := parseDuration(args.Timeout, opts.ConditionTimeout)
		if err != nil {
			return nil, err
		}
		return &awaitStep{event: args.Event, timeout: timeout, as: args.As}, nil
	case "wait_until":
		var args struct {
			Condition string `yaml:"condition"`
			Timeout   string `yaml:"timeout"`
			Interval  string `yaml:"interval"`
		}
		if err := decodeStrict(node, &args); err != nil {
			return nil, err
		}
		program, err := compile(args.Condition)
		if err != nil {
			return nil, err
		}
		timeout, err := parseDuration(args.Timeout, opts.ConditionTimeout)
		if err != nil {
			return nil, err
		}
		interval, err := parseDuration(args.Interval, DefaultConditionPoll)
		if err != nil {
			return nil, err
		}
		return &waitUntilStep{
			source:   args.Condition,
			program:  program,
			timeout:  timeout,
			interval: interval,
		}, nil
	default:
		return nil, fmt.Errorf("unknown step '%s'", kind)
	}
}

// decodeStrict decodes a mapping node, rejecting unknown keys.
func decodeStrict(node yaml.Node, out any) error {
	data, err := yaml.Marshal(&node)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(out)
}

func parseDuration(text string, def time.Duration) (time.Duration, error) {
	if text == "" {
		return def, nil
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration '%s' must not be negative", text)
	}
	return d, nil
}

// compileEnv declares the functions available to expressions. Variables set
// by a case are not known at load time.
var compileEnv = map[string]any{
	"emitted": func(string) int { return 0 },
}

func compile(source string) (*vm.Program, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("empty expression")
	}
	program, err := expr.Compile(source, expr.Env(compileEnv), expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, errors.Wrapf(err, "invalid expression '%s'", source)
	}
	return program, nil
}
